package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// PatientCaseRecord defines the full intake form of one patient case.
// General fields are stored flat at the top level of the document, the
// clinical examination and files are nested sub-documents.
type PatientCaseRecord struct {
	ID     string `json:"_id,omitempty"`
	CaseID string `json:"caseId,omitempty"`
	GeneralInfo
	Clinical ClinicalExam `json:"clinicalExamination"`
	Files    CaseFiles    `json:"files"`
}

// GeneralInfo holds the first tab: identity, location, addressing, histories,
// case classification, availability and the treatment brief.
type GeneralInfo struct {
	PatientName     string     `json:"patientName"`
	Age             FlexString `json:"age"`
	Gender          string     `json:"gender"`
	Country         string     `json:"country"`
	State           string     `json:"state"`
	City            string     `json:"city"`
	PrimaryAddress  string     `json:"primaryAddress"`
	ShippingAddress string     `json:"shippingAddress"`
	BillingAddress  string     `json:"billingAddress"`

	PastMedicalHistory string `json:"pastMedicalHistory"`
	PastDentalHistory  string `json:"pastDentalHistory"`
	ChiefComplaint     string `json:"chiefComplaint"`

	CaseType            string `json:"caseType"`
	SingleArchType      string `json:"singleArchType"`
	CaseCategory        string `json:"caseCategory"`
	SelectedPrice       string `json:"selectedPrice"`
	CaseCategoryDetails string `json:"caseCategoryDetails"`

	NatureOfAvailability string     `json:"natureOfAvailability"`
	FollowUpMonths       FlexString `json:"followUpMonths"`
	UserID               string     `json:"userId"`

	TreatmentPlan          string                 `json:"treatmentPlan"`
	Midline                string                 `json:"midline"`
	ArchExpansion          string                 `json:"archExpansion"`
	Extraction             Extraction             `json:"extraction"`
	InterproximalReduction InterproximalReduction `json:"interproximalReduction"`
	MeasureOfIPR           MeasureOfIPR           `json:"measureOfIPR"`
	AdditionalComments     string                 `json:"additionalComments"`

	PrivacyAccepted     bool `json:"privacyAccepted"`
	DeclarationAccepted bool `json:"declarationAccepted"`
}

// Extraction records whether teeth must be extracted before treatment.
type Extraction struct {
	Required bool   `json:"required"`
	Comments string `json:"comments"`
}

// InterproximalReduction holds the free-text IPR instructions.
type InterproximalReduction struct {
	Detail1 string `json:"detail1"`
	Detail2 string `json:"detail2"`
	Detail3 string `json:"detail3"`
	Detail4 string `json:"detail4"`
}

// MeasureOfIPR holds the IPR amounts per region.
type MeasureOfIPR struct {
	DetailA string `json:"detailA"`
	DetailB string `json:"detailB"`
	DetailC string `json:"detailC"`
}

// FlexString is a string that also accepts a JSON number. Form inputs such as
// age and follow-up months arrive as either.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*s = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*s = FlexString(n.String())
	return nil
}
