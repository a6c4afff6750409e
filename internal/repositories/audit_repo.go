package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumi-ct/backend/internal/models"
)

const auditColumns = `id, contract_id, user_id, action, meta, description, created_at`

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// AuditFilter narrows Search results. Zero-valued fields are ignored.
type AuditFilter struct {
	ContractID *uuid.UUID
	UserID     *uuid.UUID
	Action     *string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (r *AuditRepo) Insert(ctx context.Context, e *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO audit_log (contract_id, user_id, action, meta, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+auditColumns+`
	`, e.ContractID, e.UserID, e.Action, e.Meta, e.Description)

	var stored models.AuditLogEntry
	err := row.Scan(&stored.ID, &stored.ContractID, &stored.UserID, &stored.Action,
		&stored.Meta, &stored.Description, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *AuditRepo) Search(ctx context.Context, f AuditFilter) ([]models.AuditLogEntry, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ContractID != nil {
		where += " AND contract_id = " + arg(*f.ContractID)
	}
	if f.UserID != nil {
		where += " AND user_id = " + arg(*f.UserID)
	}
	if f.Action != nil {
		where += " AND action = " + arg(*f.Action)
	}
	if f.From != nil {
		where += " AND created_at >= " + arg(*f.From)
	}
	if f.To != nil {
		where += " AND created_at < " + arg(*f.To)
	}

	query := `SELECT ` + auditColumns + ` FROM audit_log ` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		if err := rows.Scan(&e.ID, &e.ContractID, &e.UserID, &e.Action, &e.Meta, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SummaryByAction counts entries per action, optionally scoped to one contract.
func (r *AuditRepo) SummaryByAction(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error) {
	query := `SELECT action, count(*) FROM audit_log`
	args := []any{}
	if contractID != nil {
		query += ` WHERE contract_id = $1`
		args = append(args, *contractID)
	}
	query += ` GROUP BY action ORDER BY count(*) DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditSummaryRow
	for rows.Next() {
		var s models.AuditSummaryRow
		if err := rows.Scan(&s.Action, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SummaryByUser counts entries per acting user, optionally scoped to one contract.
func (r *AuditRepo) SummaryByUser(ctx context.Context, contractID *uuid.UUID) ([]models.AuditSummaryRow, error) {
	query := `SELECT user_id, count(*) FROM audit_log WHERE user_id IS NOT NULL`
	args := []any{}
	if contractID != nil {
		query += ` AND contract_id = $1`
		args = append(args, *contractID)
	}
	query += ` GROUP BY user_id ORDER BY count(*) DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AuditSummaryRow
	for rows.Next() {
		var s models.AuditSummaryRow
		if err := rows.Scan(&s.UserID, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteOlderThan purges entries past the retention horizon. This is the
// only deletion path for audit entries.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
