package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/rbac"
	"go.uber.org/zap"
)

type policyFixture struct {
	*collabFixture
	policy *PolicyService
	flags  *fakeContractFlags
}

func newPolicyFixture(t *testing.T) *policyFixture {
	t.Helper()
	cf := newCollabFixture(t)
	flags := &fakeContractFlags{public: map[uuid.UUID]bool{cf.contract: false}}
	return &policyFixture{
		collabFixture: cf,
		policy:        NewPolicyService(cf.svc, flags, zap.NewNop()),
		flags:         flags,
	}
}

func TestHasPermission(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()
	editor := uuid.New()
	f.mustAdd(t, editor, models.RoleEditor)

	tests := []struct {
		name     string
		userID   uuid.UUID
		action   string
		target   *models.Role
		expected bool
	}{
		{"owner edits", f.owner, rbac.ActionEditContract, nil, true},
		{"editor edits", editor, rbac.ActionEditContract, nil, true},
		{"editor cannot transfer", editor, rbac.ActionTransferOwnership, nil, false},
		{"editor manages viewer", editor, rbac.ActionManageCollaborators, rolePtr(models.RoleViewer), true},
		{"editor cannot manage owner", editor, rbac.ActionManageCollaborators, rolePtr(models.RoleOwner), false},
		{"outsider denied", uuid.New(), rbac.ActionViewContract, nil, false},
		{"unknown action fails closed", f.owner, "launch_missiles", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.policy.HasPermission(ctx, f.contract, tt.userID, tt.action, tt.target)
			if err != nil {
				t.Fatalf("HasPermission: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func rolePtr(r models.Role) *models.Role { return &r }

func TestCanModifyCollaborator(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()
	editor, viewer := uuid.New(), uuid.New()
	f.mustAdd(t, editor, models.RoleEditor)
	f.mustAdd(t, viewer, models.RoleViewer)

	if ok, _ := f.policy.CanModifyCollaborator(ctx, f.contract, f.owner, editor); !ok {
		t.Error("owner should modify editor")
	}
	if ok, _ := f.policy.CanModifyCollaborator(ctx, f.contract, editor, viewer); !ok {
		t.Error("editor should modify viewer")
	}
	if ok, _ := f.policy.CanModifyCollaborator(ctx, f.contract, editor, f.owner); ok {
		t.Error("editor must not modify owner")
	}
	if ok, _ := f.policy.CanModifyCollaborator(ctx, f.contract, viewer, viewer); ok {
		t.Error("viewer must not modify anyone")
	}

	// The sole owner cannot administratively modify itself: that is how a
	// contract would lose its last owner.
	if ok, _ := f.policy.CanModifyCollaborator(ctx, f.contract, f.owner, f.owner); ok {
		t.Error("sole owner self-modification must be blocked")
	}
}

func TestCapabilities(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()

	editor, reviewer := uuid.New(), uuid.New()
	f.mustAdd(t, editor, models.RoleEditor)
	f.mustAdd(t, reviewer, models.RoleReviewer)
	if _, err := f.svc.UpdateGrants(ctx, f.contract, editor, true, false, f.actorOwner()); err != nil {
		t.Fatalf("UpdateGrants: %v", err)
	}

	ownerCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: f.owner})
	if err != nil {
		t.Fatalf("Capabilities(owner): %v", err)
	}
	if !ownerCaps.IsOwner || !ownerCaps.CanEdit || !ownerCaps.CanManageCollaborators {
		t.Errorf("unexpected owner capabilities: %+v", ownerCaps)
	}
	if ownerCaps.CanApprove {
		t.Error("approval is reserved to the manager system role")
	}

	editorCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: editor})
	if err != nil {
		t.Fatalf("Capabilities(editor): %v", err)
	}
	if editorCaps.IsOwner || !editorCaps.CanEdit || !editorCaps.CanExport {
		t.Errorf("unexpected editor capabilities: %+v", editorCaps)
	}

	reviewerCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: reviewer})
	if err != nil {
		t.Fatalf("Capabilities(reviewer): %v", err)
	}
	if reviewerCaps.CanEdit || !reviewerCaps.CanReview || !reviewerCaps.CanView {
		t.Errorf("unexpected reviewer capabilities: %+v", reviewerCaps)
	}

	managerCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: uuid.New(), SystemRoles: []string{models.SystemRoleManager}})
	if err != nil {
		t.Fatalf("Capabilities(manager): %v", err)
	}
	if !managerCaps.CanApprove || !managerCaps.CanEdit || !managerCaps.CanManageCollaborators {
		t.Errorf("unexpected manager capabilities: %+v", managerCaps)
	}
}

func TestCapabilitiesOutsider(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()
	outsider := models.Actor{ID: uuid.New()}

	caps, err := f.policy.Capabilities(ctx, f.contract, outsider)
	if err != nil {
		t.Fatalf("Capabilities(outsider): %v", err)
	}
	if caps.CanView {
		t.Error("outsider must not view a private contract")
	}

	// Flipping the contract public grants read access without a role.
	f.flags.public[f.contract] = true
	caps, err = f.policy.Capabilities(ctx, f.contract, outsider)
	if err != nil {
		t.Fatalf("Capabilities(outsider, public): %v", err)
	}
	if !caps.CanView {
		t.Error("outsider should view a public contract")
	}
	if caps.CanEdit || caps.CanReview || caps.CanExport || caps.CanManageCollaborators {
		t.Errorf("public read must grant nothing beyond viewing: %+v", caps)
	}
}

// Capabilities must reflect a transfer immediately.
func TestCapabilitiesAfterTransfer(t *testing.T) {
	f := newPolicyFixture(t)
	ctx := context.Background()
	target := uuid.New()
	f.mustAdd(t, target, models.RoleEditor)

	if err := f.svc.TransferOwnership(ctx, f.contract, f.owner, target, f.actorOwner()); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}

	oldCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: f.owner})
	if err != nil {
		t.Fatalf("Capabilities(old owner): %v", err)
	}
	if oldCaps.IsOwner || oldCaps.CanEdit {
		t.Errorf("demoted owner still has elevated capabilities: %+v", oldCaps)
	}

	newCaps, err := f.policy.Capabilities(ctx, f.contract, models.Actor{ID: target})
	if err != nil {
		t.Fatalf("Capabilities(new owner): %v", err)
	}
	if !newCaps.IsOwner {
		t.Errorf("new owner not reflected in capabilities: %+v", newCaps)
	}
}
