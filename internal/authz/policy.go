// Package authz holds the role and ownership rules for incident operations
// in one table so the gating is auditable in a single place.
package authz

import "github.com/dzsentinel/incident_reporting_system/internal/models"

// Operation names a gated lifecycle operation.
type Operation string

const (
	// OpUpdate edits an incident's fields.
	OpUpdate Operation = "update"
	// OpSetStatus changes an incident's lifecycle status via update.
	OpSetStatus Operation = "set_status"
	// OpVerify marks an incident as verified.
	OpVerify Operation = "verify"
	// OpDelete removes an incident permanently.
	OpDelete Operation = "delete"
)

// rule allows an operation for the listed roles, and for the incident's own
// reporter when reporterMayAct is set.
type rule struct {
	roles          []models.Role
	reporterMayAct bool
}

// PrivilegedRoles may verify incidents and moderate any report.
var PrivilegedRoles = []models.Role{models.RoleGovernment, models.RoleNGO, models.RoleAdmin}

var policy = map[Operation]rule{
	OpUpdate:    {roles: PrivilegedRoles, reporterMayAct: true},
	OpSetStatus: {roles: PrivilegedRoles},
	OpVerify:    {roles: PrivilegedRoles},
	OpDelete:    {roles: []models.Role{models.RoleAdmin}, reporterMayAct: true},
}

// Allowed reports whether a caller with the given role may perform op,
// isReporter indicating whether the caller created the incident in question.
// Unknown operations are denied.
func Allowed(op Operation, role models.Role, isReporter bool) bool {
	r, ok := policy[op]
	if !ok {
		return false
	}
	if r.reporterMayAct && isReporter {
		return true
	}
	for _, allowed := range r.roles {
		if role == allowed {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role belongs to the privileged set.
func IsPrivileged(role models.Role) bool {
	for _, r := range PrivilegedRoles {
		if role == r {
			return true
		}
	}
	return false
}
