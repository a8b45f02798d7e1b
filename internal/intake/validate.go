package intake

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"caseintake/internal/models"
)

var validate = validator.New()

// ValidationError is a failed save precondition. Nothing was sent to the API.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// saveGate lists the fields a case needs before any save. Field order is the
// order in which failures are reported.
type saveGate struct {
	NatureOfAvailability string
	FollowUpMonths       string `validate:"required_if=NatureOfAvailability traveling"`
	CaseType             string `validate:"required"`
	CaseCategory         string `validate:"required"`
	SelectedPrice        string `validate:"required"`
	UserID               string `validate:"required"`
}

var gateMessages = map[string]ValidationError{
	"FollowUpMonths": {Field: "followUpMonths", Message: "Please enter the follow-up months for a traveling patient"},
	"CaseType":       {Field: "caseType", Message: "Please select a case type"},
	"CaseCategory":   {Field: "caseCategory", Message: "Please select a case category"},
	"SelectedPrice":  {Field: "selectedPrice", Message: "Please select a package"},
	"UserID":         {Field: "userId", Message: "Please select the doctor for this case"},
}

// Validate checks the save preconditions of rec and returns the first failure.
func Validate(rec *models.PatientCaseRecord) error {
	g := saveGate{
		NatureOfAvailability: strings.TrimSpace(rec.NatureOfAvailability),
		FollowUpMonths:       strings.TrimSpace(string(rec.FollowUpMonths)),
		CaseType:             strings.TrimSpace(rec.CaseType),
		CaseCategory:         strings.TrimSpace(rec.CaseCategory),
		SelectedPrice:        strings.TrimSpace(rec.SelectedPrice),
		UserID:               strings.TrimSpace(rec.UserID),
	}
	err := validate.Struct(g)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.Wrap(err, "validating case")
	}
	if msg, ok := gateMessages[verrs[0].StructField()]; ok {
		return &msg
	}
	return &ValidationError{Field: verrs[0].Field(), Message: verrs[0].Error()}
}
