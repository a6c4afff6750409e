package models

import (
	"time"

	"github.com/google/uuid"
)

// Collaborator is one user's role-bearing relationship to one contract.
// Removal deactivates the row instead of deleting it so audit correlation
// survives; re-adding the same user reactivates the same logical row.
type Collaborator struct {
	ContractID             uuid.UUID  `json:"contract_id"`
	UserID                 uuid.UUID  `json:"user_id"`
	Role                   Role       `json:"role"`
	Active                 bool       `json:"active"`
	CanExport              bool       `json:"can_export"`
	CanManageCollaborators bool       `json:"can_manage_collaborators"`
	AddedBy                *uuid.UUID `json:"added_by,omitempty"`
	Note                   *string    `json:"note,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Capabilities is the UI-facing snapshot of what one user may do on one
// contract. Derived on demand, never persisted.
type Capabilities struct {
	IsOwner                bool `json:"is_owner"`
	CanView                bool `json:"can_view"`
	CanEdit                bool `json:"can_edit"`
	CanReview              bool `json:"can_review"`
	CanExport              bool `json:"can_export"`
	CanManageCollaborators bool `json:"can_manage_collaborators"`
	CanApprove             bool `json:"can_approve"`
}
