package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/config"
	"github.com/lumi-ct/backend/internal/events"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/rbac"
	"go.uber.org/zap"
)

// roleCacheSize bounds the short-TTL collaborator cache.
const roleCacheSize = 4096

// CollaboratorStore is the persistence surface the registry needs. The pgx
// implementation lives in internal/repositories; tests use an in-memory fake.
type CollaboratorStore interface {
	Get(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error)
	GetActive(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error)
	Insert(ctx context.Context, c *models.Collaborator) (*models.Collaborator, error)
	Reactivate(ctx context.Context, contractID, userID uuid.UUID, role models.Role, addedBy *uuid.UUID, note *string) (*models.Collaborator, error)
	UpdateRole(ctx context.Context, contractID, userID uuid.UUID, role models.Role) (*models.Collaborator, error)
	UpdateGrants(ctx context.Context, contractID, userID uuid.UUID, canExport, canManage bool) (*models.Collaborator, error)
	Deactivate(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error)
	Transfer(ctx context.Context, contractID, fromUserID, toUserID uuid.UUID) error
	ListActive(ctx context.Context, contractID uuid.UUID) ([]models.Collaborator, error)
	CountActiveOwners(ctx context.Context, contractID uuid.UUID) (int, error)
}

// AuditRecorder is the slice of the audit service the registry uses.
type AuditRecorder interface {
	Record(ctx context.Context, e models.AuditLogEntry)
}

// CollaboratorService is the single source of truth for who can do what on a
// contract: it owns the (contract, user) -> role mapping, enforces the
// at-least-one-owner invariant, and routes all ownership changes through the
// transactional transfer path.
type CollaboratorService struct {
	store     CollaboratorStore
	audit     AuditRecorder
	notifier  Notifier
	publisher events.Publisher
	cache     *lru.LRU[string, models.Collaborator]
	log       *zap.Logger
}

func NewCollaboratorService(
	store CollaboratorStore,
	audit AuditRecorder,
	notifier Notifier,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *CollaboratorService {
	s := &CollaboratorService{
		store:     store,
		audit:     audit,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
	}
	if cfg != nil && cfg.RoleCacheTTL > 0 {
		s.cache = lru.NewLRU[string, models.Collaborator](roleCacheSize, nil, cfg.RoleCacheTTL)
	}
	return s
}

func cacheKey(contractID, userID uuid.UUID) string {
	return contractID.String() + "_" + userID.String()
}

// invalidate drops the cached row for (contract, user). Every mutation path
// must call it so a role change is visible on the next lookup.
func (s *CollaboratorService) invalidate(contractID, userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Remove(cacheKey(contractID, userID))
	}
}

// getActiveCached resolves the active collaborator row, serving recent
// lookups from the short-TTL cache. Only positive hits are cached so an
// absent row is always re-checked against the store.
func (s *CollaboratorService) getActiveCached(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	if s.cache != nil {
		if c, ok := s.cache.Get(cacheKey(contractID, userID)); ok {
			return &c, nil
		}
	}
	c, err := s.store.GetActive(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(cacheKey(contractID, userID), *c)
	}
	return c, nil
}

// authorizeManage checks that actor may administratively act on a
// collaborator holding targetRole. System managers bypass the check. The
// explicit can_manage_collaborators grant delegates administration over
// strictly lower roles.
func (s *CollaboratorService) authorizeManage(ctx context.Context, contractID uuid.UUID, actor models.Actor, targetRole models.Role) error {
	if actor.IsManager() {
		return nil
	}

	actorCollab, err := s.store.GetActive(ctx, contractID, actor.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.Forbidden("insufficient permission")
		}
		return err
	}

	if rbac.Allows(rbac.ActionManageCollaborators, actorCollab.Role, &targetRole) {
		return nil
	}
	if actorCollab.CanManageCollaborators && targetRole.Rank() < actorCollab.Role.Rank() {
		return nil
	}
	return apperr.Forbidden("insufficient permission")
}

// Add registers a user on a contract. A previously removed pair is
// reactivated with the new role instead of creating a duplicate row; an
// active pair is a Conflict. Two adds racing over the same pair collapse
// into one Conflict via the store's unique constraint.
func (s *CollaboratorService) Add(ctx context.Context, contractID, userID uuid.UUID, role models.Role, actor models.Actor, note *string) (*models.Collaborator, error) {
	if !role.Valid() {
		return nil, apperr.BadRequestf("invalid role %q", role)
	}
	if err := s.authorizeManage(ctx, contractID, actor, role); err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, contractID, userID)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, err
	}

	var (
		stored *models.Collaborator
		action = models.AuditAddCollaborator
	)
	switch {
	case existing != nil && existing.Active:
		return nil, apperr.Conflict("user is already a collaborator on this contract")
	case existing != nil:
		stored, err = s.store.Reactivate(ctx, contractID, userID, role, &actor.ID, note)
		if apperr.IsNotFound(err) {
			// The row was reactivated between our read and write.
			return nil, apperr.Conflict("user is already a collaborator on this contract")
		}
		action = models.AuditReactivateCollaborator
	default:
		stored, err = s.store.Insert(ctx, &models.Collaborator{
			ContractID: contractID,
			UserID:     userID,
			Role:       role,
			AddedBy:    &actor.ID,
			Note:       note,
		})
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(contractID, userID)

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID:  &contractID,
		UserID:      &actor.ID,
		Action:      action,
		Meta:        map[string]any{"target_user_id": userID.String(), "role": string(role)},
		Description: fmt.Sprintf("collaborator %s added with role %s", userID, role),
	})
	s.notifier.Notify(ctx, models.Notification{
		ContractID: &contractID,
		UserID:     userID,
		Type:       models.NotifyCollaboratorAdded,
		Title:      "Added to contract",
		Message:    fmt.Sprintf("You were added to a contract as %s", role),
	})
	s.publish(ctx, events.EventCollaboratorAdded, contractID, map[string]any{
		"user_id": userID.String(),
		"role":    string(role),
	})

	return stored, nil
}

// BootstrapOwner seeds the creating user as the first owner of a brand-new
// contract. No authorization runs: the contract has no collaborators yet.
// Only contract creation may call this.
func (s *CollaboratorService) BootstrapOwner(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	stored, err := s.store.Insert(ctx, &models.Collaborator{
		ContractID:             contractID,
		UserID:                 userID,
		Role:                   models.RoleOwner,
		CanExport:              true,
		CanManageCollaborators: true,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(contractID, userID)
	return stored, nil
}

// UpdateRole changes an active collaborator's role. Promotion to owner is
// rejected here: ownership changes only go through TransferOwnership, which
// is what keeps the at-least-one-owner invariant enforceable in one place.
func (s *CollaboratorService) UpdateRole(ctx context.Context, contractID, userID uuid.UUID, newRole models.Role, actor models.Actor) (*models.Collaborator, error) {
	if !newRole.Valid() {
		return nil, apperr.BadRequestf("invalid role %q", newRole)
	}
	if newRole == models.RoleOwner {
		return nil, apperr.BadRequest("ownership changes must go through transfer-ownership")
	}

	target, err := s.store.GetActive(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() {
		actorCollab, err := s.store.GetActive(ctx, contractID, actor.ID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.Forbidden("insufficient permission")
			}
			return nil, err
		}
		if !rbac.CanModify(actorCollab.Role, target.Role) || !rbac.Allows(rbac.ActionManageCollaborators, actorCollab.Role, &newRole) {
			return nil, apperr.Forbidden("insufficient permission")
		}
	}

	// Demoting an owner is only safe while another owner remains. This
	// precheck picks the error kind; the store re-checks under row locks
	// so concurrent demotions cannot both pass.
	if target.Role == models.RoleOwner {
		owners, err := s.store.CountActiveOwners(ctx, contractID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			if actor.ID == userID {
				return nil, apperr.Forbidden("the sole owner cannot demote itself")
			}
			return nil, apperr.BadRequest("cannot demote the last owner of a contract")
		}
	}

	updated, err := s.store.UpdateRole(ctx, contractID, userID, newRole)
	if err != nil {
		return nil, err
	}
	s.invalidate(contractID, userID)

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID: &contractID,
		UserID:     &actor.ID,
		Action:     models.AuditUpdateCollaboratorRole,
		Meta: map[string]any{
			"target_user_id": userID.String(),
			"old_role":       string(target.Role),
			"new_role":       string(newRole),
		},
		Description: fmt.Sprintf("collaborator %s role changed from %s to %s", userID, target.Role, newRole),
	})
	s.notifier.Notify(ctx, models.Notification{
		ContractID: &contractID,
		UserID:     userID,
		Type:       models.NotifyRoleChanged,
		Title:      "Contract role changed",
		Message:    fmt.Sprintf("Your role on a contract changed to %s", newRole),
	})
	s.publish(ctx, events.EventRoleChanged, contractID, map[string]any{
		"user_id":  userID.String(),
		"old_role": string(target.Role),
		"new_role": string(newRole),
	})

	return updated, nil
}

// UpdateGrants sets the explicit export / collaborator-management grants.
func (s *CollaboratorService) UpdateGrants(ctx context.Context, contractID, userID uuid.UUID, canExport, canManage bool, actor models.Actor) (*models.Collaborator, error) {
	target, err := s.store.GetActive(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeManage(ctx, contractID, actor, target.Role); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateGrants(ctx, contractID, userID, canExport, canManage)
	if err != nil {
		return nil, err
	}
	s.invalidate(contractID, userID)

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID: &contractID,
		UserID:     &actor.ID,
		Action:     models.AuditUpdateCollaboratorGrants,
		Meta: map[string]any{
			"target_user_id": userID.String(),
			"can_export":     canExport,
			"can_manage":     canManage,
		},
		Description: fmt.Sprintf("collaborator %s grants updated", userID),
	})
	return updated, nil
}

// Remove deactivates a collaborator. The row survives so audit correlation
// and later reactivation keep working. Removing the last active owner is
// rejected inside the store's transaction.
func (s *CollaboratorService) Remove(ctx context.Context, contractID, userID uuid.UUID, actor models.Actor) (*models.Collaborator, error) {
	target, err := s.store.GetActive(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() {
		actorCollab, err := s.store.GetActive(ctx, contractID, actor.ID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil, apperr.Forbidden("insufficient permission")
			}
			return nil, err
		}
		allowed := rbac.CanModify(actorCollab.Role, target.Role) ||
			(actorCollab.CanManageCollaborators && target.Role.Rank() < actorCollab.Role.Rank())
		if !allowed {
			return nil, apperr.Forbidden("insufficient permission")
		}
	}

	removed, err := s.store.Deactivate(ctx, contractID, userID)
	if err != nil {
		return nil, err
	}
	s.invalidate(contractID, userID)

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID: &contractID,
		UserID:     &actor.ID,
		Action:     models.AuditRemoveCollaborator,
		Meta: map[string]any{
			"target_user_id": userID.String(),
			"role":           string(target.Role),
		},
		Description: fmt.Sprintf("collaborator %s removed", userID),
	})
	s.notifier.Notify(ctx, models.Notification{
		ContractID: &contractID,
		UserID:     userID,
		Type:       models.NotifyCollaboratorRemoved,
		Title:      "Removed from contract",
		Message:    "You were removed from a contract",
	})
	s.publish(ctx, events.EventCollaboratorRemoved, contractID, map[string]any{
		"user_id": userID.String(),
	})

	return removed, nil
}

// TransferOwnership atomically demotes fromUserID to viewer and promotes
// toUserID to owner. This is the only sanctioned path to change who owns a
// contract. Audit and notifications run after the transaction commits and
// never roll it back.
func (s *CollaboratorService) TransferOwnership(ctx context.Context, contractID, fromUserID, toUserID uuid.UUID, actor models.Actor) error {
	if fromUserID == toUserID {
		return apperr.BadRequest("cannot transfer ownership to the current owner")
	}

	if !actor.IsManager() {
		actorCollab, err := s.store.GetActive(ctx, contractID, actor.ID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return apperr.Forbidden("insufficient permission")
			}
			return err
		}
		if !rbac.Allows(rbac.ActionTransferOwnership, actorCollab.Role, nil) {
			return apperr.Forbidden("insufficient permission")
		}
	}

	if err := s.store.Transfer(ctx, contractID, fromUserID, toUserID); err != nil {
		return err
	}
	s.invalidate(contractID, fromUserID)
	s.invalidate(contractID, toUserID)

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID: &contractID,
		UserID:     &actor.ID,
		Action:     models.AuditTransferOwnership,
		Meta: map[string]any{
			"from_user_id": fromUserID.String(),
			"to_user_id":   toUserID.String(),
		},
		Description: fmt.Sprintf("ownership transferred from %s to %s", fromUserID, toUserID),
	})
	s.notifier.Notify(ctx, models.Notification{
		ContractID: &contractID,
		UserID:     toUserID,
		Type:       models.NotifyOwnershipReceived,
		Title:      "You are now the contract owner",
		Message:    "Ownership of a contract was transferred to you",
	})
	s.notifier.Notify(ctx, models.Notification{
		ContractID: &contractID,
		UserID:     fromUserID,
		Type:       models.NotifyOwnershipReleased,
		Title:      "Contract ownership transferred",
		Message:    "You are no longer the owner of a contract",
	})
	s.publish(ctx, events.EventOwnershipTransfer, contractID, map[string]any{
		"from_user_id": fromUserID.String(),
		"to_user_id":   toUserID.String(),
	})

	return nil
}

// List returns a contract's active collaborators in creation order.
func (s *CollaboratorService) List(ctx context.Context, contractID uuid.UUID) ([]models.Collaborator, error) {
	return s.store.ListActive(ctx, contractID)
}

// GetRole returns the user's active role on the contract, if any.
func (s *CollaboratorService) GetRole(ctx context.Context, contractID, userID uuid.UUID) (models.Role, bool, error) {
	c, err := s.getActiveCached(ctx, contractID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return c.Role, true, nil
}

// GetActive returns the user's full active collaborator row.
func (s *CollaboratorService) GetActive(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	return s.getActiveCached(ctx, contractID, userID)
}

// HasRole reports whether the user holds one of the allowed roles.
func (s *CollaboratorService) HasRole(ctx context.Context, contractID, userID uuid.UUID, allowed []models.Role) (bool, error) {
	role, ok, err := s.GetRole(ctx, contractID, userID)
	if err != nil || !ok {
		return false, err
	}
	for _, r := range allowed {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *CollaboratorService) IsOwner(ctx context.Context, contractID, userID uuid.UUID) (bool, error) {
	return s.HasRole(ctx, contractID, userID, models.OwnerOnly)
}

func (s *CollaboratorService) CanEdit(ctx context.Context, contractID, userID uuid.UUID) (bool, error) {
	return s.HasRole(ctx, contractID, userID, models.EditGroup)
}

func (s *CollaboratorService) CanReview(ctx context.Context, contractID, userID uuid.UUID) (bool, error) {
	return s.HasRole(ctx, contractID, userID, models.ReviewGroup)
}

func (s *CollaboratorService) CanView(ctx context.Context, contractID, userID uuid.UUID) (bool, error) {
	return s.HasRole(ctx, contractID, userID, models.AnyCollaborator)
}

// CanExport requires an edit-capable role plus the explicit export grant.
func (s *CollaboratorService) CanExport(ctx context.Context, contractID, userID uuid.UUID) (bool, error) {
	c, err := s.getActiveCached(ctx, contractID, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return c.CanExport && c.Role.AtLeast(models.RoleEditor), nil
}

func (s *CollaboratorService) publish(ctx context.Context, eventType string, contractID uuid.UUID, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	payload["contract_id"] = contractID.String()
	if err := s.publisher.Publish(ctx, events.StreamContract, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}
