package model

// Well-known role names seeded by configuration management. The booking
// engine depends on RoleDoctor existing; its absence is a server-side
// configuration error, not a user mistake.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleStaff  = "staff"
)

type Role struct {
	Base
	Name        string  `db:"name" json:"name"`
	Description string  `db:"description" json:"description"`
	Permissions JSONMap `db:"permissions" json:"permissions,omitempty"`
}

// HasAdministration reports whether the role grants administrative
// rights over appointments it does not own.
func (r *Role) HasAdministration() bool {
	if r.Name == RoleAdmin {
		return true
	}
	v, ok := r.Permissions["administration"].(bool)
	return ok && v
}
