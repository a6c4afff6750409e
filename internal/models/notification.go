package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types
const (
	NotifyCollaboratorAdded   = "collaborator_added"
	NotifyCollaboratorRemoved = "collaborator_removed"
	NotifyRoleChanged         = "role_changed"
	NotifyOwnershipReceived   = "ownership_received"
	NotifyOwnershipReleased   = "ownership_released"
)

// Notification channels
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

type Notification struct {
	ID         uuid.UUID  `json:"id"`
	ContractID *uuid.UUID `json:"contract_id,omitempty"`
	UserID     uuid.UUID  `json:"user_id"`
	Type       string     `json:"type"`
	Channel    string     `json:"channel"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Metadata   any        `json:"metadata,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
