package dto

type MintTokenRequest struct {
	UserID      string   `json:"user_id"`
	SystemRoles []string `json:"system_roles,omitempty"`
}

type CreateContractRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	IsPublic    bool    `json:"is_public"`
}

type UpdateContractRequest struct {
	Title       *string `json:"title,omitempty"`
	Status      *string `json:"status,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
	Description *string `json:"description,omitempty"`
}

type AddCollaboratorRequest struct {
	UserID string  `json:"user_id"`
	Role   string  `json:"role"`
	Note   *string `json:"note,omitempty"`
}

// UpdateCollaboratorRequest drives both role changes and removal: setting
// active to false removes the collaborator.
type UpdateCollaboratorRequest struct {
	Role      *string `json:"role,omitempty"`
	Active    *bool   `json:"active,omitempty"`
	CanExport *bool   `json:"can_export,omitempty"`
	CanManage *bool   `json:"can_manage_collaborators,omitempty"`
}

type TransferOwnershipRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
}
