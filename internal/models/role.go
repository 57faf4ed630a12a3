package models

// Role is the caller's role, supplied by the identity collaborator on every
// request. It is never read from ambient state.
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleGovernment Role = "government"
	RoleNGO        Role = "ngo"
	RoleAdmin      Role = "admin"
)

var Roles = []Role{RoleCitizen, RoleGovernment, RoleNGO, RoleAdmin}

func (r Role) IsValid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}
