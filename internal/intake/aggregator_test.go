package intake

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseintake/internal/models"
)

func upd(name string, value any) FieldUpdate {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return FieldUpdate{Name: name, Value: raw}
}

func TestApplyFieldKinds(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{
		upd("patientName", "Asha Rao"),
		upd("age", 14),
		upd("followUpMonths", "6"),
		upd("privacyAccepted", true),
		upd("tmjClicking", "true"),
		upd("extraction.required", true),
		upd("extraction.comments", "lower premolars"),
		upd("interproximalReduction.detail3", "0.2mm"),
		upd("measureOfIPR.detailB", "upper anterior"),
		upd("missingTeeth", []int{48, 18, 38, 18}),
	})
	require.NoError(t, err)

	rec := a.Record()
	assert.Equal(t, "Asha Rao", rec.PatientName)
	assert.Equal(t, models.FlexString("14"), rec.Age)
	assert.Equal(t, models.FlexString("6"), rec.FollowUpMonths)
	assert.True(t, rec.PrivacyAccepted)
	assert.True(t, rec.Clinical.TMJClicking)
	assert.True(t, rec.Extraction.Required)
	assert.Equal(t, "lower premolars", rec.Extraction.Comments)
	assert.Equal(t, "0.2mm", rec.InterproximalReduction.Detail3)
	assert.Equal(t, "upper anterior", rec.MeasureOfIPR.DetailB)
	assert.Equal(t, models.ToothSet{18, 38, 48}, rec.Clinical.MissingTeeth)
}

func TestApplyRejects(t *testing.T) {
	tests := []struct {
		name   string
		update FieldUpdate
		target error
	}{
		{"unknown field", upd("favouriteColour", "blue"), ErrUnknownField},
		{"case type outside options", upd("caseType", "Triple Arch"), ErrInvalidValue},
		{"single arch outside options", upd("singleArchType", "Middle"), ErrInvalidValue},
		{"not a tooth", upd("impactedTeeth", []int{19}), ErrInvalidValue},
		{"not a country", upd("country", "Atlantis"), ErrInvalidValue},
		{"bool from garbage", upd("tmjPain", "maybe"), ErrInvalidValue},
		{"string from object", upd("city", map[string]string{"a": "b"}), ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator().Apply([]FieldUpdate{tt.update})
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{upd("patientName", "first")})
	require.NoError(t, err)

	_, err = a.Apply([]FieldUpdate{upd("patientName", "second"), upd("caseType", "Quad Arch")})
	require.Error(t, err)
	assert.Equal(t, "first", a.Record().PatientName)
}

func TestCountryClearsDependents(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{
		upd("country", "India"),
		upd("state", "Kerala"),
		upd("city", "Kochi"),
		upd("caseCategory", "Comprehensive"),
		upd("selectedPrice", "P1"),
		upd("caseCategoryDetails", "notes"),
		upd("patientName", "kept"),
	})
	require.NoError(t, err)

	effect, err := a.Apply([]FieldUpdate{upd("country", "France")})
	require.NoError(t, err)
	assert.Equal(t, RefetchCategories, effect)

	rec := a.Record()
	assert.Equal(t, "France", rec.Country)
	assert.Empty(t, rec.State)
	assert.Empty(t, rec.City)
	assert.Empty(t, rec.CaseCategory)
	assert.Empty(t, rec.SelectedPrice)
	assert.Empty(t, rec.CaseCategoryDetails)
	assert.Equal(t, "kept", rec.PatientName)
}

func TestFreeTextIsBounded(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{
		upd("chiefComplaint", strings.Repeat("é", 600)),
		upd("treatmentPlan", strings.Repeat("x", 1400)),
		upd("hardTissueNotes", "short"),
	})
	require.NoError(t, err)
	assert.Equal(t, 500, len([]rune(a.Record().ChiefComplaint)))

	byField := map[string]TextStatus{}
	for _, st := range a.TextStatus() {
		byField[st.Field] = st
	}
	assert.Equal(t, TextStatus{Field: "chiefComplaint", Length: 500, Limit: 500, State: TextAtLimit}, byField["chiefComplaint"])
	assert.Equal(t, TextStatus{Field: "treatmentPlan", Length: 1400, Limit: 1500, State: TextWarning}, byField["treatmentPlan"])
	assert.Equal(t, TextOK, byField["hardTissueNotes"].State)
	assert.Equal(t, TextOK, byField["pastMedicalHistory"].State)
}

func TestMergeTakesFalsyValues(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{
		upd("privacyAccepted", true),
		upd("age", 30),
		upd("city", "Pune"),
		upd("patientName", "kept"),
	})
	require.NoError(t, err)

	require.NoError(t, a.Merge([]byte(`{"_id":"p-9","privacyAccepted":false,"age":0,"city":""}`)))
	rec := a.Record()
	assert.Equal(t, "p-9", rec.ID)
	assert.False(t, rec.PrivacyAccepted)
	assert.Equal(t, models.FlexString("0"), rec.Age)
	assert.Empty(t, rec.City)
	assert.Equal(t, "kept", rec.PatientName)
}

func TestMergeRejectsGarbage(t *testing.T) {
	a := NewAggregator()
	assert.Error(t, a.Merge([]byte(`not json`)))
}

func TestRecordIsACopy(t *testing.T) {
	a := NewAggregator()
	_, err := a.Apply([]FieldUpdate{upd("crownedTeeth", []int{11, 21})})
	require.NoError(t, err)

	rec := a.Record()
	rec.Clinical.CrownedTeeth[0] = 48
	assert.Equal(t, models.ToothSet{11, 21}, a.Record().Clinical.CrownedTeeth)
}

func TestValidateGate(t *testing.T) {
	valid := func() []FieldUpdate {
		return []FieldUpdate{
			upd("caseType", "Double Arch"),
			upd("caseCategory", "X"),
			upd("selectedPrice", "P1"),
			upd("userId", "doc1"),
		}
	}
	tests := []struct {
		name  string
		extra []FieldUpdate
		field string
	}{
		{"traveling without follow-up", []FieldUpdate{upd("natureOfAvailability", "traveling")}, "followUpMonths"},
		{"missing case type", []FieldUpdate{upd("caseType", "")}, "caseType"},
		{"blank category", []FieldUpdate{upd("caseCategory", "  ")}, "caseCategory"},
		{"missing package", []FieldUpdate{upd("selectedPrice", "")}, "selectedPrice"},
		{"missing doctor", []FieldUpdate{upd("userId", "")}, "userId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAggregator()
			_, err := a.Apply(append(valid(), tt.extra...))
			require.NoError(t, err)

			var verr *ValidationError
			require.True(t, errors.As(a.Validate(), &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Message)
		})
	}

	t.Run("traveling with follow-up", func(t *testing.T) {
		a := NewAggregator()
		_, err := a.Apply(append(valid(), upd("natureOfAvailability", "traveling"), upd("followUpMonths", 3)))
		require.NoError(t, err)
		assert.NoError(t, a.Validate())
	})

	t.Run("follow-up is checked first", func(t *testing.T) {
		a := NewAggregator()
		_, err := a.Apply([]FieldUpdate{upd("natureOfAvailability", "traveling")})
		require.NoError(t, err)
		var verr *ValidationError
		require.True(t, errors.As(a.Validate(), &verr))
		assert.Equal(t, "followUpMonths", verr.Field)
	})
}
