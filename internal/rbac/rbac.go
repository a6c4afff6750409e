package rbac

import "github.com/lumi-ct/backend/internal/models"

// Action keys
const (
	ActionViewContract        = "view_contract"
	ActionEditContract        = "edit_contract"
	ActionReviewContract      = "review_contract"
	ActionExportContract      = "export_contract"
	ActionManageCollaborators = "manage_collaborators"
	ActionTransferOwnership   = "transfer_ownership"
	ActionViewAuditLog        = "view_audit_log"
)

// TargetAny is the wildcard entry: the action may be performed against a
// collaborator of any role.
const TargetAny = models.Role("*")

// matrix maps (action, holder role) to the target roles the holder may act
// upon. An empty or missing entry means the action is denied for that role.
var matrix = map[string]map[models.Role][]models.Role{
	ActionViewContract: {
		models.RoleOwner:    {TargetAny},
		models.RoleEditor:   {TargetAny},
		models.RoleReviewer: {TargetAny},
		models.RoleViewer:   {TargetAny},
	},
	ActionEditContract: {
		models.RoleOwner:  {TargetAny},
		models.RoleEditor: {TargetAny},
	},
	ActionReviewContract: {
		models.RoleOwner:    {TargetAny},
		models.RoleEditor:   {TargetAny},
		models.RoleReviewer: {TargetAny},
	},
	ActionExportContract: {
		models.RoleOwner:  {TargetAny},
		models.RoleEditor: {TargetAny},
	},
	ActionManageCollaborators: {
		models.RoleOwner:  {TargetAny},
		models.RoleEditor: {models.RoleReviewer, models.RoleViewer},
	},
	ActionTransferOwnership: {
		models.RoleOwner: {TargetAny},
	},
	ActionViewAuditLog: {
		models.RoleOwner:  {TargetAny},
		models.RoleEditor: {TargetAny},
	},
}

// Known reports whether action exists in the matrix. Unknown actions must be
// denied and logged as configuration warnings by the caller.
func Known(action string) bool {
	_, ok := matrix[action]
	return ok
}

// AllowedTargets returns the target roles the holder may act upon for action.
// Nil means denied.
func AllowedTargets(action string, holder models.Role) []models.Role {
	perRole, ok := matrix[action]
	if !ok {
		return nil
	}
	return perRole[holder]
}

// Allows reports whether a holder of role holder may perform action. When
// target is non-nil the holder's permission list must contain either the
// wildcard or the exact target role. Fails closed on unknown actions.
func Allows(action string, holder models.Role, target *models.Role) bool {
	targets := AllowedTargets(action, holder)
	if len(targets) == 0 {
		return false
	}
	if target == nil {
		return true
	}
	for _, t := range targets {
		if t == TargetAny || t == *target {
			return true
		}
	}
	return false
}

// CanModify implements the role-hierarchy rule for administrative actions on
// another collaborator: an owner may modify anyone, an editor only reviewers
// and viewers, reviewers and viewers no one. A role never modifies a higher
// one. Self-modification is the caller's concern.
func CanModify(actor, target models.Role) bool {
	switch actor {
	case models.RoleOwner:
		return true
	case models.RoleEditor:
		return target == models.RoleReviewer || target == models.RoleViewer
	default:
		return false
	}
}
