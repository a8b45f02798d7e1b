package intake

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/biter777/countries"
	"github.com/cockroachdb/errors"

	"caseintake/internal/models"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

// Effect is a follow-up an update asks the session to run.
type Effect int

const (
	NoEffect Effect = iota
	RefetchCategories
)

// FieldUpdate is one input change as sent by the form: the field name and its
// raw JSON value.
type FieldUpdate struct {
	Name  string          `json:"name" binding:"required"`
	Value json.RawMessage `json:"value"`
}

type fieldUpdater func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error)

type boundedField struct {
	name  string
	limit TextLimit
	get   func(r *models.PatientCaseRecord) *string
}

type fieldTable struct {
	updaters map[string]fieldUpdater
	bounded  []boundedField
}

var fields = buildFieldTable()

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func decodeString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrap(ErrInvalidValue, "expected a string")
	}
	return s, nil
}

func decodeBool(raw json.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	s, err := decodeString(raw)
	if err != nil {
		return false, errors.Wrap(ErrInvalidValue, "expected a boolean")
	}
	b, err = strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrap(ErrInvalidValue, "expected a boolean")
	}
	return b, nil
}

func (t *fieldTable) text(name string, get func(r *models.PatientCaseRecord) *string, options ...string) {
	t.updaters[name] = func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
		v, err := decodeString(raw)
		if err != nil {
			return NoEffect, err
		}
		if v != "" && len(options) > 0 && !contains(options, v) {
			return NoEffect, errors.Wrapf(ErrInvalidValue, "must be one of %s", strings.Join(options, ", "))
		}
		*get(r) = v
		return NoEffect, nil
	}
}

func (t *fieldTable) freeText(name string, max int, get func(r *models.PatientCaseRecord) *string) {
	limit := TextLimit{Max: max}
	t.bounded = append(t.bounded, boundedField{name: name, limit: limit, get: get})
	t.updaters[name] = func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
		v, err := decodeString(raw)
		if err != nil {
			return NoEffect, err
		}
		*get(r) = limit.Clamp(v)
		return NoEffect, nil
	}
}

func (t *fieldTable) flag(name string, get func(r *models.PatientCaseRecord) *bool) {
	t.updaters[name] = func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
		v, err := decodeBool(raw)
		if err != nil {
			return NoEffect, err
		}
		*get(r) = v
		return NoEffect, nil
	}
}

// flex accepts a number or a string and stores its string form.
func (t *fieldTable) flex(name string, get func(r *models.PatientCaseRecord) *models.FlexString) {
	t.updaters[name] = func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
		var v models.FlexString
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &v); err != nil {
				return NoEffect, errors.Wrap(ErrInvalidValue, "expected a number or a string")
			}
		}
		*get(r) = models.FlexString(strings.TrimSpace(string(v)))
		return NoEffect, nil
	}
}

func (t *fieldTable) teeth(name string, get func(r *models.PatientCaseRecord) *models.ToothSet) {
	t.updaters[name] = func(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
		var in []int
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &in); err != nil {
				return NoEffect, errors.Wrap(ErrInvalidValue, "expected a list of tooth numbers")
			}
		}
		for _, n := range in {
			if !models.ValidTooth(n) {
				return NoEffect, errors.Wrapf(ErrInvalidValue, "%d is not a tooth number", n)
			}
		}
		*get(r) = models.NewToothSet(in)
		return NoEffect, nil
	}
}

// setCountry clears every field that depends on the country and asks for the
// case categories of the new one.
func setCountry(r *models.PatientCaseRecord, raw json.RawMessage) (Effect, error) {
	v, err := decodeString(raw)
	if err != nil {
		return NoEffect, err
	}
	v = strings.TrimSpace(v)
	if v != "" && countries.ByName(v) == countries.Unknown {
		return NoEffect, errors.Wrapf(ErrInvalidValue, "unknown country %q", v)
	}
	r.Country = v
	r.State = ""
	r.City = ""
	r.CaseCategory = ""
	r.SelectedPrice = ""
	r.CaseCategoryDetails = ""
	return RefetchCategories, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func buildFieldTable() *fieldTable {
	t := &fieldTable{updaters: map[string]fieldUpdater{}}
	g := func(f func(g *models.GeneralInfo) *string) func(r *models.PatientCaseRecord) *string {
		return func(r *models.PatientCaseRecord) *string { return f(&r.GeneralInfo) }
	}
	c := func(f func(c *models.ClinicalExam) *string) func(r *models.PatientCaseRecord) *string {
		return func(r *models.PatientCaseRecord) *string { return f(&r.Clinical) }
	}

	// general
	t.text("patientName", g(func(g *models.GeneralInfo) *string { return &g.PatientName }))
	t.flex("age", func(r *models.PatientCaseRecord) *models.FlexString { return &r.Age })
	t.text("gender", g(func(g *models.GeneralInfo) *string { return &g.Gender }))
	t.updaters["country"] = setCountry
	t.text("state", g(func(g *models.GeneralInfo) *string { return &g.State }))
	t.text("city", g(func(g *models.GeneralInfo) *string { return &g.City }))
	t.freeText("primaryAddress", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.PrimaryAddress }))
	t.freeText("shippingAddress", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.ShippingAddress }))
	t.freeText("billingAddress", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.BillingAddress }))
	t.freeText("pastMedicalHistory", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.PastMedicalHistory }))
	t.freeText("pastDentalHistory", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.PastDentalHistory }))
	t.freeText("chiefComplaint", 500, g(func(g *models.GeneralInfo) *string { return &g.ChiefComplaint }))
	t.text("caseType", g(func(g *models.GeneralInfo) *string { return &g.CaseType }), "Single Arch", "Double Arch")
	t.text("singleArchType", g(func(g *models.GeneralInfo) *string { return &g.SingleArchType }), "Upper", "Lower")
	t.text("caseCategory", g(func(g *models.GeneralInfo) *string { return &g.CaseCategory }))
	t.text("selectedPrice", g(func(g *models.GeneralInfo) *string { return &g.SelectedPrice }))
	t.freeText("caseCategoryDetails", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.CaseCategoryDetails }))
	t.text("natureOfAvailability", g(func(g *models.GeneralInfo) *string { return &g.NatureOfAvailability }))
	t.flex("followUpMonths", func(r *models.PatientCaseRecord) *models.FlexString { return &r.FollowUpMonths })
	t.text("userId", g(func(g *models.GeneralInfo) *string { return &g.UserID }))
	t.freeText("treatmentPlan", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.TreatmentPlan }))
	t.text("midline", g(func(g *models.GeneralInfo) *string { return &g.Midline }))
	t.text("archExpansion", g(func(g *models.GeneralInfo) *string { return &g.ArchExpansion }))
	t.flag("extraction.required", func(r *models.PatientCaseRecord) *bool { return &r.Extraction.Required })
	t.freeText("extraction.comments", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.Extraction.Comments }))
	t.freeText("interproximalReduction.detail1", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.InterproximalReduction.Detail1 }))
	t.freeText("interproximalReduction.detail2", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.InterproximalReduction.Detail2 }))
	t.freeText("interproximalReduction.detail3", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.InterproximalReduction.Detail3 }))
	t.freeText("interproximalReduction.detail4", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.InterproximalReduction.Detail4 }))
	t.freeText("measureOfIPR.detailA", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.MeasureOfIPR.DetailA }))
	t.freeText("measureOfIPR.detailB", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.MeasureOfIPR.DetailB }))
	t.freeText("measureOfIPR.detailC", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.MeasureOfIPR.DetailC }))
	t.freeText("additionalComments", defaultTextLimit, g(func(g *models.GeneralInfo) *string { return &g.AdditionalComments }))
	t.flag("privacyAccepted", func(r *models.PatientCaseRecord) *bool { return &r.PrivacyAccepted })
	t.flag("declarationAccepted", func(r *models.PatientCaseRecord) *bool { return &r.DeclarationAccepted })

	// clinical examination
	t.text("facialProfile", c(func(c *models.ClinicalExam) *string { return &c.FacialProfile }))
	t.text("facialSymmetry", c(func(c *models.ClinicalExam) *string { return &c.FacialSymmetry }))
	t.text("lipCompetence", c(func(c *models.ClinicalExam) *string { return &c.LipCompetence }))
	t.text("smileArc", c(func(c *models.ClinicalExam) *string { return &c.SmileArc }))
	t.flag("tmjPain", func(r *models.PatientCaseRecord) *bool { return &r.Clinical.TMJPain })
	t.flag("tmjClicking", func(r *models.PatientCaseRecord) *bool { return &r.Clinical.TMJClicking })
	t.flag("tmjDeviation", func(r *models.PatientCaseRecord) *bool { return &r.Clinical.TMJDeviation })
	t.freeText("tmjNotes", defaultTextLimit, c(func(c *models.ClinicalExam) *string { return &c.TMJNotes }))
	t.text("gingivalHealth", c(func(c *models.ClinicalExam) *string { return &c.GingivalHealth }))
	t.text("frenumAttachment", c(func(c *models.ClinicalExam) *string { return &c.FrenumAttachment }))
	t.freeText("softTissueNotes", defaultTextLimit, c(func(c *models.ClinicalExam) *string { return &c.SoftTissueNotes }))
	t.text("molarRelationship", c(func(c *models.ClinicalExam) *string { return &c.MolarRelationship }))
	t.text("canineRelationship", c(func(c *models.ClinicalExam) *string { return &c.CanineRelationship }))
	t.text("overjet", c(func(c *models.ClinicalExam) *string { return &c.Overjet }))
	t.text("overbite", c(func(c *models.ClinicalExam) *string { return &c.Overbite }))
	t.text("crossbite", c(func(c *models.ClinicalExam) *string { return &c.Crossbite }))
	t.text("crowding", c(func(c *models.ClinicalExam) *string { return &c.Crowding }))
	t.text("spacing", c(func(c *models.ClinicalExam) *string { return &c.Spacing }))
	t.freeText("hardTissueNotes", defaultTextLimit, c(func(c *models.ClinicalExam) *string { return &c.HardTissueNotes }))
	t.teeth("missingTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.MissingTeeth })
	t.teeth("impactedTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.ImpactedTeeth })
	t.teeth("crownedTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.CrownedTeeth })
	t.teeth("implantTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.ImplantTeeth })
	t.teeth("doNotMoveTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.DoNotMoveTeeth })
	t.teeth("attachmentFreeTeeth", func(r *models.PatientCaseRecord) *models.ToothSet { return &r.Clinical.AttachmentFreeTeeth })

	return t
}

// applyUpdate routes one update to its field.
func applyUpdate(r *models.PatientCaseRecord, u FieldUpdate) (Effect, error) {
	f, ok := fields.updaters[u.Name]
	if !ok {
		return NoEffect, errors.Wrapf(ErrUnknownField, "%q", u.Name)
	}
	eff, err := f(r, u.Value)
	if err != nil {
		return NoEffect, errors.Wrapf(err, "%s", u.Name)
	}
	return eff, nil
}

// FieldNames lists every field the form may update.
func FieldNames() []string {
	names := make([]string, 0, len(fields.updaters))
	for n := range fields.updaters {
		names = append(names, n)
	}
	return names
}
