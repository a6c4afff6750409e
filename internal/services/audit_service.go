package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/repositories"
	"go.uber.org/zap"
)

// AuditStore is the persistence surface the audit service needs.
type AuditStore interface {
	Insert(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error)
	Search(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLogEntry, error)
	SummaryByAction(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error)
	SummaryByUser(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditService struct {
	store AuditStore
	log   *zap.Logger
}

func NewAuditService(store AuditStore, log *zap.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// Create persists one immutable audit entry. The calling mutation has
// already committed by the time this runs, so a persistence failure is
// surfaced as an internal error and logged loudly, never used to undo
// the primary change.
func (s *AuditService) Create(ctx context.Context, e models.AuditLogEntry) (*models.AuditLogEntry, error) {
	if e.Action == "" {
		return nil, apperr.BadRequest("audit action must not be empty")
	}

	stored, err := s.store.Insert(ctx, &e)
	if err != nil {
		s.log.Error("audit write failed",
			zap.String("action", e.Action),
			zap.Any("contract_id", e.ContractID),
			zap.Error(err),
		)
		return nil, apperr.Internal("failed to persist audit entry", err)
	}
	return stored, nil
}

// Record is the best-effort variant used after mutations: it logs failures
// and returns nothing, so call sites stay one line.
func (s *AuditService) Record(ctx context.Context, e models.AuditLogEntry) {
	_, _ = s.Create(ctx, e)
}

func (s *AuditService) FindByContract(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]models.AuditLogEntry, error) {
	return s.store.Search(ctx, repositories.AuditFilter{ContractID: &contractID, Limit: limit, Offset: offset})
}

func (s *AuditService) FindByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AuditLogEntry, error) {
	return s.store.Search(ctx, repositories.AuditFilter{UserID: &userID, Limit: limit, Offset: offset})
}

func (s *AuditService) FindByAction(ctx context.Context, action string, limit, offset int) ([]models.AuditLogEntry, error) {
	return s.store.Search(ctx, repositories.AuditFilter{Action: &action, Limit: limit, Offset: offset})
}

func (s *AuditService) Search(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLogEntry, error) {
	return s.store.Search(ctx, f)
}

// Summary aggregates entry counts grouped by action or by user.
func (s *AuditService) Summary(ctx context.Context, contractID *uuid.UUID, groupBy string) ([]models.AuditSummaryRow, error) {
	switch groupBy {
	case "", "action":
		return s.store.SummaryByAction(ctx, contractID)
	case "user":
		return s.store.SummaryByUser(ctx, contractID)
	default:
		return nil, apperr.BadRequestf("unsupported summary grouping %q", groupBy)
	}
}

// RetentionSweep purges entries older than retentionDays. It is the only
// deletion path for audit entries and records a system-level entry about
// the sweep itself.
func (s *AuditService) RetentionSweep(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.Record(ctx, models.AuditLogEntry{
			Action:      models.AuditRetentionSweep,
			Meta:        map[string]any{"deleted": deleted, "cutoff": cutoff.Format(time.RFC3339)},
			Description: fmt.Sprintf("retention sweep purged %d audit entries older than %d days", deleted, retentionDays),
		})
	}

	s.log.Info("audit retention sweep finished",
		zap.Int64("deleted", deleted),
		zap.Int("retention_days", retentionDays),
	)
	return deleted, nil
}
