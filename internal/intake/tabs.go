package intake

import "github.com/cockroachdb/errors"

var ErrInvalidTransition = errors.New("invalid tab transition")

// Tab is a section of the intake form.
type Tab string

const (
	TabGeneral  Tab = "general"
	TabClinical Tab = "clinical"
	TabFiles    Tab = "files"
)

var tabOrder = []Tab{TabGeneral, TabClinical, TabFiles}

func (t Tab) index() int {
	for i, o := range tabOrder {
		if o == t {
			return i
		}
	}
	return -1
}

// ParseTab returns the tab named s, or general for anything unknown.
func ParseTab(s string) Tab {
	t := Tab(s)
	if t.index() < 0 {
		return TabGeneral
	}
	return t
}

// TabController tracks the visible section. Moves are one step at a time;
// the caller persists the form before committing a move with Move.
type TabController struct {
	current Tab
}

func NewTabController() *TabController {
	return &TabController{current: TabGeneral}
}

func (c *TabController) Current() Tab {
	return c.current
}

// NextTab returns the tab after the current one without moving.
func (c *TabController) NextTab() (Tab, error) {
	i := c.current.index()
	if i+1 >= len(tabOrder) {
		return "", errors.Wrapf(ErrInvalidTransition, "no tab after %s", c.current)
	}
	return tabOrder[i+1], nil
}

// PreviousTab returns the tab before the current one without moving.
func (c *TabController) PreviousTab() (Tab, error) {
	i := c.current.index()
	if i <= 0 {
		return "", errors.Wrapf(ErrInvalidTransition, "no tab before %s", c.current)
	}
	return tabOrder[i-1], nil
}

// Move switches to an adjacent tab.
func (c *TabController) Move(to Tab) error {
	from, target := c.current.index(), to.index()
	if target < 0 || (target != from+1 && target != from-1) {
		return errors.Wrapf(ErrInvalidTransition, "%s to %s", c.current, to)
	}
	c.current = to
	return nil
}

// CanSubmit reports whether the form may be submitted from the current tab.
func (c *TabController) CanSubmit() error {
	if c.current != TabFiles {
		return errors.Wrapf(ErrInvalidTransition, "submit from %s", c.current)
	}
	return nil
}

// restore puts the controller back on a checkpointed tab.
func (c *TabController) restore(t Tab) {
	c.current = ParseTab(string(t))
}
