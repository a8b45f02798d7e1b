package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"

	"caseintake/internal/models"
)

// Created is what the API returns for a new case.
type Created struct {
	PatientID string `json:"patientId"`
	CaseID    string `json:"caseId"`
}

// PatientPage is one page of the case list. Records are left raw; the list
// view only renders them.
type PatientPage struct {
	Patients []json.RawMessage `json:"patients"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// CreatePatient stores a new case record.
func (c *Client) CreatePatient(ctx context.Context, token string, rec models.PatientCaseRecord) (Created, error) {
	var out Created
	if err := c.do(ctx, token, http.MethodPost, "/api/patients", nil, rec, &out); err != nil {
		return Created{}, err
	}
	if out.PatientID == "" {
		return Created{}, errors.New("create patient: response carries no patientId")
	}
	return out, nil
}

// UpdatePatient replaces the stored case record id.
func (c *Client) UpdatePatient(ctx context.Context, token, id string, rec models.PatientCaseRecord) error {
	q := url.Values{"id": {id}}
	return c.do(ctx, token, http.MethodPut, "/api/patients/update-details", q, rec, nil)
}

// GetPatient returns the stored record as sent by the API, so callers can tell
// which fields are present.
func (c *Client) GetPatient(ctx context.Context, token, id string) (json.RawMessage, error) {
	var out struct {
		Patient json.RawMessage `json:"patient"`
	}
	q := url.Values{"id": {id}}
	if err := c.do(ctx, token, http.MethodGet, "/api/patients/update-details", q, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Patient) == 0 || string(out.Patient) == "null" {
		return nil, &APIError{Status: http.StatusNotFound, Method: http.MethodGet,
			Path: "/api/patients/update-details", Message: "patient not found"}
	}
	return out.Patient, nil
}

// ListPatients returns a page of cases visible to the caller.
func (c *Client) ListPatients(ctx context.Context, token string, page, limit int) (PatientPage, error) {
	q := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	var out PatientPage
	if err := c.do(ctx, token, http.MethodGet, "/api/patients", q, nil, &out); err != nil {
		return PatientPage{}, err
	}
	return out, nil
}

// PatientFiles returns the files sub-document of a case.
func (c *Client) PatientFiles(ctx context.Context, token, patientID string) (models.CaseFiles, error) {
	var out struct {
		Files models.CaseFiles `json:"files"`
	}
	q := url.Values{"patientId": {patientID}}
	if err := c.do(ctx, token, http.MethodGet, "/api/patients/files", q, nil, &out); err != nil {
		return models.CaseFiles{}, err
	}
	return out.Files, nil
}

// Comments lists the review comments of a case.
func (c *Client) Comments(ctx context.Context, token, patientID string) ([]models.Comment, error) {
	var out struct {
		Comments []models.Comment `json:"comments"`
	}
	q := url.Values{"patientId": {patientID}}
	if err := c.do(ctx, token, http.MethodGet, "/api/patients/comments", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

// AddComment posts a review comment on a case.
func (c *Client) AddComment(ctx context.Context, token, patientID, text string) (models.Comment, error) {
	in := models.Comment{PatientID: patientID, Comment: text}
	var out struct {
		Comment models.Comment `json:"comment"`
	}
	q := url.Values{"patientId": {patientID}}
	if err := c.do(ctx, token, http.MethodPost, "/api/patients/comments", q, in, &out); err != nil {
		return models.Comment{}, err
	}
	return out.Comment, nil
}
