package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/rbac"
	"go.uber.org/zap"
)

// ContractFlags is the narrow slice of the contract store the policy layer
// reads: just the public-visibility flag.
type ContractFlags interface {
	IsPublic(ctx context.Context, id uuid.UUID) (bool, error)
}

// PolicyService renders allow/deny decisions by composing the registry with
// the static permission matrix. It holds no authority of its own: every
// answer is derived from the collaborator rows and the matrix at call time.
type PolicyService struct {
	collab    *CollaboratorService
	contracts ContractFlags
	log       *zap.Logger
}

func NewPolicyService(collab *CollaboratorService, contracts ContractFlags, log *zap.Logger) *PolicyService {
	return &PolicyService{collab: collab, contracts: contracts, log: log}
}

// HasPermission reports whether the user may perform action on the contract,
// optionally against a collaborator holding targetRole. Unknown action keys
// deny and are logged as configuration warnings: fail closed, never open.
func (p *PolicyService) HasPermission(ctx context.Context, contractID, userID uuid.UUID, action string, targetRole *models.Role) (bool, error) {
	if !rbac.Known(action) {
		p.log.Warn("unknown permission action, denying",
			zap.String("action", action),
			zap.String("contract_id", contractID.String()),
		)
		return false, nil
	}

	role, ok, err := p.collab.GetRole(ctx, contractID, userID)
	if err != nil || !ok {
		return false, err
	}
	return rbac.Allows(action, role, targetRole), nil
}

// CanModifyCollaborator layers the role hierarchy on top of the matrix: an
// owner may modify anyone except itself while it is the sole owner, an
// editor only viewers and reviewers, everyone else no one.
func (p *PolicyService) CanModifyCollaborator(ctx context.Context, contractID, actorID, targetID uuid.UUID) (bool, error) {
	actorRole, ok, err := p.collab.GetRole(ctx, contractID, actorID)
	if err != nil || !ok {
		return false, err
	}
	targetRole, ok, err := p.collab.GetRole(ctx, contractID, targetID)
	if err != nil || !ok {
		return false, err
	}

	if actorID == targetID && actorRole == models.RoleOwner {
		owners, err := p.collab.store.CountActiveOwners(ctx, contractID)
		if err != nil {
			return false, err
		}
		if owners <= 1 {
			return false, nil
		}
	}
	return rbac.CanModify(actorRole, targetRole), nil
}

// Capabilities computes the UI snapshot of booleans for one user on one
// contract. Computed on demand, never cached across requests: a stale
// snapshot after a role change or transfer would be worse than the extra
// row lookup.
func (p *PolicyService) Capabilities(ctx context.Context, contractID uuid.UUID, actor models.Actor) (models.Capabilities, error) {
	if actor.IsManager() {
		return models.Capabilities{
			IsOwner:                false,
			CanView:                true,
			CanEdit:                true,
			CanReview:              true,
			CanExport:              true,
			CanManageCollaborators: true,
			CanApprove:             true,
		}, nil
	}

	c, err := p.collab.GetActive(ctx, contractID, actor.ID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return models.Capabilities{}, err
		}
		// Not a collaborator: public contracts still grant read access.
		isPublic, perr := p.contracts.IsPublic(ctx, contractID)
		if perr != nil {
			return models.Capabilities{}, perr
		}
		return models.Capabilities{CanView: isPublic}, nil
	}

	return models.Capabilities{
		IsOwner:                c.Role == models.RoleOwner,
		CanView:                true,
		CanEdit:                c.Role.AtLeast(models.RoleEditor),
		CanReview:              c.Role.AtLeast(models.RoleReviewer),
		CanExport:              c.CanExport && c.Role.AtLeast(models.RoleEditor),
		CanManageCollaborators: c.Role == models.RoleOwner || c.CanManageCollaborators,
		CanApprove:             false,
	}, nil
}
