package intake

import "unicode/utf8"

const (
	defaultTextLimit = 1500
	warnRatio        = 0.9
)

// TextState classifies how close a bounded field is to its limit.
type TextState string

const (
	TextOK      TextState = "ok"
	TextWarning TextState = "warning"
	TextAtLimit TextState = "limit"
)

// TextLimit bounds a free-text field to Max characters.
type TextLimit struct {
	Max int
}

// Clamp cuts s to the limit, counting characters rather than bytes.
func (l TextLimit) Clamp(s string) string {
	if utf8.RuneCountInString(s) <= l.Max {
		return s
	}
	n := 0
	for i := range s {
		if n == l.Max {
			return s[:i]
		}
		n++
	}
	return s
}

func (l TextLimit) State(s string) TextState {
	n := utf8.RuneCountInString(s)
	switch {
	case n >= l.Max:
		return TextAtLimit
	case float64(n) >= float64(l.Max)*warnRatio:
		return TextWarning
	default:
		return TextOK
	}
}

// TextStatus reports a bounded field for rendering its counter.
type TextStatus struct {
	Field  string    `json:"field"`
	Length int       `json:"length"`
	Limit  int       `json:"limit"`
	State  TextState `json:"state"`
}

func (l TextLimit) Status(field, s string) TextStatus {
	return TextStatus{
		Field:  field,
		Length: utf8.RuneCountInString(s),
		Limit:  l.Max,
		State:  l.State(s),
	}
}
