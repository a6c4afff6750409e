package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract statuses
const (
	ContractStatusDraft    = "draft"
	ContractStatusReview   = "review"
	ContractStatusApproved = "approved"
	ContractStatusActive   = "active"
	ContractStatusExpired  = "expired"
	ContractStatusArchived = "archived"
)

type Contract struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	IsPublic    bool       `json:"is_public"`
	Description *string    `json:"description,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var contractStatuses = map[string]bool{
	ContractStatusDraft:    true,
	ContractStatusReview:   true,
	ContractStatusApproved: true,
	ContractStatusActive:   true,
	ContractStatusExpired:  true,
	ContractStatusArchived: true,
}

func IsValidContractStatus(s string) bool {
	return contractStatuses[s]
}
