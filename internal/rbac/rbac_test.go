package rbac

import (
	"testing"

	"github.com/lumi-ct/backend/internal/models"
)

func rolePtr(r models.Role) *models.Role { return &r }

func TestAllows(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		holder   models.Role
		target   *models.Role
		expected bool
	}{
		// Coarse checks (no target role)
		{"viewer can view", ActionViewContract, models.RoleViewer, nil, true},
		{"viewer cannot edit", ActionEditContract, models.RoleViewer, nil, false},
		{"reviewer can review", ActionReviewContract, models.RoleReviewer, nil, true},
		{"reviewer cannot export", ActionExportContract, models.RoleReviewer, nil, false},
		{"editor can edit", ActionEditContract, models.RoleEditor, nil, true},
		{"owner can transfer", ActionTransferOwnership, models.RoleOwner, nil, true},
		{"editor cannot transfer", ActionTransferOwnership, models.RoleEditor, nil, false},

		// Targeted checks
		{"owner manages owner", ActionManageCollaborators, models.RoleOwner, rolePtr(models.RoleOwner), true},
		{"editor manages viewer", ActionManageCollaborators, models.RoleEditor, rolePtr(models.RoleViewer), true},
		{"editor manages reviewer", ActionManageCollaborators, models.RoleEditor, rolePtr(models.RoleReviewer), true},
		{"editor cannot manage editor", ActionManageCollaborators, models.RoleEditor, rolePtr(models.RoleEditor), false},
		{"editor cannot manage owner", ActionManageCollaborators, models.RoleEditor, rolePtr(models.RoleOwner), false},
		{"reviewer manages no one", ActionManageCollaborators, models.RoleReviewer, rolePtr(models.RoleViewer), false},

		// Fail closed
		{"unknown action denies owner", "delete_everything", models.RoleOwner, nil, false},
		{"unknown role denies", ActionViewContract, models.Role("superuser"), nil, false},
		{"empty action denies", "", models.RoleOwner, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allows(tt.action, tt.holder, tt.target); got != tt.expected {
				t.Errorf("Allows(%q, %q, %v) = %v, want %v", tt.action, tt.holder, tt.target, got, tt.expected)
			}
		})
	}
}

func TestKnown(t *testing.T) {
	if !Known(ActionViewContract) {
		t.Error("expected view_contract to be a known action")
	}
	if Known("made_up_action") {
		t.Error("expected made_up_action to be unknown")
	}
}

func TestCanModifyHierarchy(t *testing.T) {
	roles := []models.Role{models.RoleViewer, models.RoleReviewer, models.RoleEditor, models.RoleOwner}

	// A role strictly below the target may never modify it.
	for _, actor := range roles {
		for _, target := range roles {
			if actor.Rank() < target.Rank() && CanModify(actor, target) {
				t.Errorf("%s must not be able to modify %s", actor, target)
			}
		}
	}

	if !CanModify(models.RoleOwner, models.RoleOwner) {
		t.Error("owner should be able to modify another owner")
	}
	if !CanModify(models.RoleEditor, models.RoleViewer) {
		t.Error("editor should be able to modify a viewer")
	}
	if CanModify(models.RoleEditor, models.RoleEditor) {
		t.Error("editor must not modify a peer editor")
	}
	if CanModify(models.RoleReviewer, models.RoleViewer) {
		t.Error("reviewer must not modify anyone")
	}
	if CanModify(models.RoleViewer, models.RoleViewer) {
		t.Error("viewer must not modify anyone")
	}
}

func TestRoleOrdering(t *testing.T) {
	if !(models.RoleViewer.Rank() < models.RoleReviewer.Rank() &&
		models.RoleReviewer.Rank() < models.RoleEditor.Rank() &&
		models.RoleEditor.Rank() < models.RoleOwner.Rank()) {
		t.Fatal("role ordering viewer < reviewer < editor < owner is broken")
	}
	if models.Role("nonexistent").Rank() != 0 {
		t.Error("unknown role should rank 0")
	}
	if !models.RoleEditor.AtLeast(models.RoleReviewer) {
		t.Error("editor should meet a reviewer minimum bar")
	}
	if models.RoleViewer.AtLeast(models.RoleEditor) {
		t.Error("viewer should not meet an editor minimum bar")
	}
}

func TestActorIsManager(t *testing.T) {
	if !(models.Actor{SystemRoles: []string{"user", "manager"}}).IsManager() {
		t.Error("expected manager role to be detected")
	}
	if (models.Actor{SystemRoles: []string{"user"}}).IsManager() {
		t.Error("plain user must not be a manager")
	}
	if (models.Actor{}).IsManager() {
		t.Error("empty system roles must not be a manager")
	}
}
