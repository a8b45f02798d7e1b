package models

// Comment is a review note attached to a patient case.
type Comment struct {
	ID         string `json:"_id,omitempty"`
	PatientID  string `json:"patientId"`
	Comment    string `json:"comment"`
	CommentBy  string `json:"commentBy,omitempty"`
	AuthorRole Role   `json:"authorRole,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}
