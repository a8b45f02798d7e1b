package intake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"caseintake/internal/apiclient"
	"caseintake/internal/models"
	"caseintake/internal/slots"
	"caseintake/internal/upload"
)

var ErrSaveInProgress = errors.New("a save is already in progress")

type categoryState struct {
	gen     uint64
	country string
	loading bool
	options []models.CaseCategoryOption
	err     string
}

// CategoryView is the category choice offered for the current country.
type CategoryView struct {
	Country string                      `json:"country"`
	Loading bool                        `json:"loading"`
	Options []models.CaseCategoryOption `json:"options"`
	Error   string                      `json:"error,omitempty"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	ID         string                   `json:"id"`
	PatientID  string                   `json:"patientId"`
	CaseID     string                   `json:"caseId"`
	Tab        Tab                      `json:"tab"`
	Saving     bool                     `json:"saving"`
	Record     models.PatientCaseRecord `json:"record"`
	Slots      []models.UploadSlot      `json:"slots"`
	TextStatus []TextStatus             `json:"textStatus"`
	Categories CategoryView             `json:"categories"`
}

// Session is one open intake form. The record, tab and category state are
// guarded by mu; the slot registry and notice board lock themselves.
type Session struct {
	id     string
	owner  string
	m      *Manager
	logger zerolog.Logger

	mu         sync.Mutex
	agg        *Aggregator
	tabs       *TabController
	categories categoryState

	slots   *slots.Registry
	notices noticeBoard
	saving  atomic.Bool
}

func newSession(m *Manager, id, owner string) *Session {
	return &Session{
		id:      id,
		owner:   owner,
		m:       m,
		logger:  m.logger.With().Str("session", id).Logger(),
		agg:     NewAggregator(),
		tabs:    NewTabController(),
		slots:   slots.NewRegistry(),
		notices: noticeBoard{now: m.now},
	}
}

func (s *Session) ID() string {
	return s.id
}

// Apply updates form fields. A country change clears the dependent fields at
// once and reloads the category list in the background.
func (s *Session) Apply(token string, updates []FieldUpdate) error {
	s.mu.Lock()
	effect, err := s.agg.Apply(updates, s.checkPrice)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	if effect == RefetchCategories {
		s.refreshCategories(token)
	}
	return nil
}

// checkPrice rejects a package that the loaded categories do not offer for
// the selected category. Without a loaded list any value is accepted.
func (s *Session) checkPrice(r *models.PatientCaseRecord) error {
	c := s.categories
	if r.SelectedPrice == "" || c.loading || c.country != r.Country {
		return nil
	}
	for _, opt := range c.options {
		if opt.Category != r.CaseCategory {
			continue
		}
		if !opt.HasPrice(r.SelectedPrice) {
			return errors.Wrapf(ErrInvalidValue, "selectedPrice: %q is not a package of %s", r.SelectedPrice, r.CaseCategory)
		}
		return nil
	}
	return nil
}

// refreshCategories starts a category fetch for the current country. Only the
// latest fetch may update the list.
func (s *Session) refreshCategories(token string) {
	s.mu.Lock()
	s.categories.gen++
	gen := s.categories.gen
	country := s.agg.Record().Country
	s.categories.country = country
	s.categories.loading = true
	s.categories.options = nil
	s.categories.err = ""
	s.mu.Unlock()

	s.m.wg.Add(1)
	go func() {
		defer s.m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.m.fetchTimeout)
		defer cancel()
		opts, err := s.m.categories.CaseCategories(ctx, token, country)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.categories.gen {
			s.logger.Debug().Str("country", country).Msg("discarding superseded case categories")
			return
		}
		s.categories.loading = false
		if err != nil {
			s.logger.Warn().Err(err).Str("country", country).Msg("failed to load case categories")
			s.categories.err = err.Error()
			s.notices.post(NoticeError, "Failed to load case categories")
			return
		}
		s.categories.options = opts
	}()
}

// Categories returns the category options of the current country.
func (s *Session) Categories() CategoryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categoryView()
}

func (s *Session) categoryView() CategoryView {
	c := s.categories
	opts := c.options
	if opts == nil {
		opts = []models.CaseCategoryOption{}
	}
	return CategoryView{Country: c.country, Loading: c.loading, Options: opts, Error: c.err}
}

// Save validates the record and creates or updates the case.
func (s *Session) Save(ctx context.Context, token string) error {
	return s.save(ctx, token)
}

func (s *Session) save(ctx context.Context, token string) error {
	if !s.saving.CompareAndSwap(false, true) {
		return ErrSaveInProgress
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	if err := s.agg.Validate(); err != nil {
		s.mu.Unlock()
		s.notices.post(NoticeError, err.Error())
		return err
	}
	s.agg.SetFiles(s.slots.Files())
	rec := s.agg.Record()
	s.mu.Unlock()

	if rec.ID == "" {
		created, err := s.m.patients.CreatePatient(ctx, token, rec)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to create patient")
			s.notices.post(NoticeError, noticeText(err))
			return err
		}
		s.mu.Lock()
		s.agg.SetIdentity(created.PatientID, created.CaseID)
		s.mu.Unlock()
		s.logger.Info().Str("patient", created.PatientID).Str("case", created.CaseID).Msg("patient created")
		s.notices.post(NoticeSuccess, "Patient created successfully")
	} else {
		if err := s.m.patients.UpdatePatient(ctx, token, rec.ID, rec); err != nil {
			s.logger.Warn().Err(err).Str("patient", rec.ID).Msg("failed to update patient")
			s.notices.post(NoticeError, noticeText(err))
			return err
		}
		s.logger.Info().Str("patient", rec.ID).Msg("patient updated")
		s.notices.post(NoticeSuccess, "Patient updated successfully")
	}
	s.checkpoint(ctx)
	return nil
}

// Next saves the form and moves to the following tab.
func (s *Session) Next(ctx context.Context, token string) (Tab, error) {
	return s.move(ctx, token, (*TabController).NextTab)
}

// Previous saves the form and moves to the preceding tab.
func (s *Session) Previous(ctx context.Context, token string) (Tab, error) {
	return s.move(ctx, token, (*TabController).PreviousTab)
}

func (s *Session) move(ctx context.Context, token string, target func(*TabController) (Tab, error)) (Tab, error) {
	s.mu.Lock()
	to, err := target(s.tabs)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, token); err != nil {
		return "", err
	}
	s.mu.Lock()
	err = s.tabs.Move(to)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.checkpoint(ctx)
	return to, nil
}

// Submit saves the form from the files tab and returns the path of the
// case's detail view.
func (s *Session) Submit(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	err := s.tabs.CanSubmit()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, token); err != nil {
		return "", err
	}
	s.mu.Lock()
	id := s.agg.ID()
	s.mu.Unlock()
	return "/patients/" + id, nil
}

// Upload streams f into slot.
func (s *Session) Upload(ctx context.Context, slot int, f upload.File) (models.UploadSlot, error) {
	out, err := s.m.pipeline.Upload(ctx, s.slots, s, slot, f)
	if err != nil {
		return models.UploadSlot{}, err
	}
	s.checkpoint(ctx)
	return out, nil
}

// DeleteFile removes the file held by slot.
func (s *Session) DeleteFile(ctx context.Context, slot int) error {
	if err := s.m.pipeline.Delete(ctx, s.slots, s, slot); err != nil {
		return err
	}
	s.checkpoint(ctx)
	return nil
}

func (s *Session) Slots() []models.UploadSlot {
	return s.slots.Snapshot()
}

// Notices returns the notices posted after seq.
func (s *Session) Notices(seq uint64) []Notice {
	return s.notices.since(seq)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.agg.Record()
	return View{
		ID:         s.id,
		PatientID:  rec.ID,
		CaseID:     rec.CaseID,
		Tab:        s.tabs.Current(),
		Saving:     s.saving.Load(),
		Record:     rec,
		Slots:      s.slots.Snapshot(),
		TextStatus: s.agg.TextStatus(),
		Categories: s.categoryView(),
	}
}

func (s *Session) draft() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Draft{
		SessionID: s.id,
		Owner:     s.owner,
		PatientID: s.agg.ID(),
		CaseID:    s.agg.record.CaseID,
		Tab:       string(s.tabs.Current()),
		Slots:     s.slots.Snapshot(),
	}
}

// checkpoint stores the session's draft. A failed checkpoint only costs the
// ability to resume, so it is logged and not returned.
func (s *Session) checkpoint(ctx context.Context) {
	if s.m.drafts == nil {
		return
	}
	if err := s.m.drafts.SaveDraft(context.WithoutCancel(ctx), s.draft()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to checkpoint session")
	}
}

// noticeText is what the user is shown for err.
func noticeText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// upload.Observer

func (s *Session) OnProgress(int, float64) {}

func (s *Session) OnFailure(slot int, err error) {
	s.notices.post(NoticeError, fmt.Sprintf("Failed to upload %s: %s", models.SlotKey(slot), err))
}

func (s *Session) OnComplete(slot int, _, _ string) {
	s.notices.post(NoticeSuccess, fmt.Sprintf("%s uploaded successfully", models.SlotKey(slot)))
}

func (s *Session) OnDeleted(slot int, err error) {
	if err != nil {
		s.notices.post(NoticeError, fmt.Sprintf("Failed to delete %s: %s", models.SlotKey(slot), err))
		return
	}
	s.notices.post(NoticeSuccess, fmt.Sprintf("%s deleted", models.SlotKey(slot)))
}

var _ upload.Observer = (*Session)(nil)
