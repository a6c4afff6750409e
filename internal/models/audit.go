package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action tags. Stable strings, referenced by queries and summaries.
const (
	AuditAddCollaborator          = "ADD_COLLABORATOR"
	AuditReactivateCollaborator   = "REACTIVATE_COLLABORATOR"
	AuditUpdateCollaboratorRole   = "UPDATE_COLLABORATOR_ROLE"
	AuditUpdateCollaboratorGrants = "UPDATE_COLLABORATOR_GRANTS"
	AuditRemoveCollaborator       = "REMOVE_COLLABORATOR"
	AuditTransferOwnership        = "TRANSFER_OWNERSHIP"
	AuditCreateContract           = "CREATE_CONTRACT"
	AuditUpdateContract           = "UPDATE_CONTRACT"
	AuditRetentionSweep           = "AUDIT_RETENTION_SWEEP"
)

// AuditLogEntry is an immutable record of one state-changing action.
// Entries are never updated; the retention sweep is the only deletion path.
type AuditLogEntry struct {
	ID          uuid.UUID  `json:"id"`
	ContractID  *uuid.UUID `json:"contract_id,omitempty"` // nil for system-wide entries
	UserID      *uuid.UUID `json:"user_id,omitempty"`     // nil for system actions
	Action      string     `json:"action"`
	Meta        any        `json:"meta,omitempty"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuditSummaryRow is one bucket of the activity summary, grouped either by
// action or by acting user.
type AuditSummaryRow struct {
	Action string     `json:"action,omitempty"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
	Count  int64      `json:"count"`
}
