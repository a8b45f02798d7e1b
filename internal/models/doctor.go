package models

// Profile defines the user record returned by the profile endpoint. Doctors
// listed for case assignment use the same shape.
type Profile struct {
	ID        string  `json:"_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
	Role      Role    `json:"role"`
	Country   *string `json:"country,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// AdminAccount defines an entry of the other-admins listing.
type AdminAccount struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	CreatedAt string `json:"createdAt,omitempty"`
}
