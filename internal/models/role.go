package models

// Role names the kind of user driving an intake form.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

// IsAdmin reports whether the role may assign cases to any doctor.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
