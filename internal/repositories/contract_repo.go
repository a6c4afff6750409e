package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/models"
)

const contractColumns = `id, title, status, is_public, description, created_by, created_at, updated_at`

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func (r *ContractRepo) Create(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contracts (title, status, is_public, description, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+contractColumns+`
	`, c.Title, c.Status, c.IsPublic, c.Description, c.CreatedBy)
	return scanContract(row)
}

func (r *ContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM contracts WHERE id = $1
	`, id)

	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("contract not found")
		}
		return nil, err
	}
	return c, nil
}

// IsPublic reports a contract's public-read flag without loading the row.
func (r *ContractRepo) IsPublic(ctx context.Context, id uuid.UUID) (bool, error) {
	var isPublic bool
	err := r.pool.QueryRow(ctx, `SELECT is_public FROM contracts WHERE id = $1`, id).Scan(&isPublic)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperr.NotFound("contract not found")
	}
	return isPublic, err
}

func (r *ContractRepo) Update(ctx context.Context, id uuid.UUID, title, status *string, isPublic *bool, description *string) (*models.Contract, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE contracts SET
			title       = COALESCE($2, title),
			status      = COALESCE($3, status),
			is_public   = COALESCE($4, is_public),
			description = COALESCE($5, description),
			updated_at  = now()
		WHERE id = $1
		RETURNING `+contractColumns+`
	`, id, title, status, isPublic, description)

	c, err := scanContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("contract not found")
		}
		return nil, err
	}
	return c, nil
}

// ListForUser returns contracts where the user is an active collaborator,
// newest first.
func (r *ContractRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.title, c.status, c.is_public, c.description, c.created_by, c.created_at, c.updated_at
		FROM contracts c
		JOIN collaborators col ON col.contract_id = c.id
		WHERE col.user_id = $1 AND col.active
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanContract(row collabRow) (*models.Contract, error) {
	var c models.Contract
	err := row.Scan(&c.ID, &c.Title, &c.Status, &c.IsPublic, &c.Description,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
