package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/events"
	"github.com/lumi-ct/backend/internal/models"
	"go.uber.org/zap"
)

// ContractStore is the persistence surface the contract service needs.
type ContractStore interface {
	Create(ctx context.Context, c *models.Contract) (*models.Contract, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	Update(ctx context.Context, id uuid.UUID, title, status *string, isPublic *bool, description *string) (*models.Contract, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error)
}

// ContractService is thin CRUD glue around contracts. The interesting logic
// lives in the collaborator registry; this service exists so the guard and
// the capability aggregator have a real resource to protect.
type ContractService struct {
	store     ContractStore
	collab    *CollaboratorService
	audit     AuditRecorder
	publisher events.Publisher
	log       *zap.Logger
}

func NewContractService(
	store ContractStore,
	collab *CollaboratorService,
	audit AuditRecorder,
	publisher events.Publisher,
	log *zap.Logger,
) *ContractService {
	return &ContractService{store: store, collab: collab, audit: audit, publisher: publisher, log: log}
}

// Create stores the contract and seeds the creator as its first owner.
func (s *ContractService) Create(ctx context.Context, title string, description *string, isPublic bool, actor models.Actor) (*models.Contract, error) {
	if title == "" {
		return nil, apperr.BadRequest("title is required")
	}

	contract, err := s.store.Create(ctx, &models.Contract{
		Title:       title,
		Status:      models.ContractStatusDraft,
		IsPublic:    isPublic,
		Description: description,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.collab.BootstrapOwner(ctx, contract.ID, actor.ID); err != nil {
		s.log.Error("failed to seed contract owner",
			zap.String("contract_id", contract.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID:  &contract.ID,
		UserID:      &actor.ID,
		Action:      models.AuditCreateContract,
		Meta:        map[string]any{"title": title, "is_public": isPublic},
		Description: fmt.Sprintf("contract %q created", title),
	})

	return contract, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.store.GetByID(ctx, id)
}

func (s *ContractService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	return s.store.ListForUser(ctx, userID, limit, offset)
}

func (s *ContractService) Update(ctx context.Context, id uuid.UUID, title, status *string, isPublic *bool, description *string, actor models.Actor) (*models.Contract, error) {
	if status != nil && !models.IsValidContractStatus(*status) {
		return nil, apperr.BadRequestf("invalid contract status %q", *status)
	}

	updated, err := s.store.Update(ctx, id, title, status, isPublic, description)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditLogEntry{
		ContractID:  &id,
		UserID:      &actor.ID,
		Action:      models.AuditUpdateContract,
		Meta:        map[string]any{"title": title, "status": status, "is_public": isPublic},
		Description: fmt.Sprintf("contract %s updated", id),
	})
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.StreamContract, events.Event{
			Type:    events.EventContractUpdated,
			Payload: map[string]any{"contract_id": id.String()},
		})
		if err != nil {
			s.log.Warn("failed to publish event",
				zap.String("type", events.EventContractUpdated),
				zap.Error(err),
			)
		}
	}

	return updated, nil
}
