package models

import "github.com/google/uuid"

// Actor is the authenticated identity behind a request: the user id plus the
// organization-wide system roles supplied by the authentication layer.
type Actor struct {
	ID          uuid.UUID
	SystemRoles []string
}

// IsManager reports whether the actor carries the organization-wide manager
// override that bypasses per-contract collaborator checks.
func (a Actor) IsManager() bool {
	for _, r := range a.SystemRoles {
		if r == SystemRoleManager {
			return true
		}
	}
	return false
}
