package dto

import "github.com/lumi-ct/backend/internal/models"

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type PermissionsResponse struct {
	Permissions models.Capabilities `json:"permissions"`
}

type AuditSummaryResponse struct {
	GroupBy string                   `json:"group_by"`
	Rows    []models.AuditSummaryRow `json:"rows"`
}
