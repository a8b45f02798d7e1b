package models

import "time"

// Draft defines the checkpoint of an open intake session, so a session can be
// resumed after the gateway restarts.
type Draft struct {
	SessionID string       `json:"session_id" gorm:"primaryKey;size:36"`
	Owner     string       `json:"-" gorm:"size:64;not null;default:''"`
	PatientID string       `json:"patient_id" gorm:"index"`
	CaseID    string       `json:"case_id"`
	Tab       string       `json:"tab"`
	Slots     []UploadSlot `json:"slots" gorm:"serializer:json"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
