package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumi-ct/backend/internal/apperr"
	"github.com/lumi-ct/backend/internal/models"
)

const pgErrUniqueViolation = "23505"

const collaboratorColumns = `contract_id, user_id, role, active, can_export, can_manage_collaborators, added_by, note, created_at, updated_at`

type CollaboratorRepo struct {
	pool *pgxpool.Pool
}

func NewCollaboratorRepo(pool *pgxpool.Pool) *CollaboratorRepo {
	return &CollaboratorRepo{pool: pool}
}

type collabRow interface {
	Scan(dest ...any) error
}

func scanCollaborator(row collabRow) (*models.Collaborator, error) {
	var c models.Collaborator
	err := row.Scan(&c.ContractID, &c.UserID, &c.Role, &c.Active, &c.CanExport,
		&c.CanManageCollaborators, &c.AddedBy, &c.Note, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// Get returns the collaborator row regardless of the active flag.
func (r *CollaboratorRepo) Get(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+collaboratorColumns+`
		FROM collaborators WHERE contract_id = $1 AND user_id = $2
	`, contractID, userID)

	c, err := scanCollaborator(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("collaborator not found")
	}
	return c, err
}

// GetActive returns the collaborator only if the row is active.
func (r *CollaboratorRepo) GetActive(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+collaboratorColumns+`
		FROM collaborators WHERE contract_id = $1 AND user_id = $2 AND active
	`, contractID, userID)

	c, err := scanCollaborator(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("collaborator not found")
	}
	return c, err
}

// Insert creates a new collaborator row. A concurrent insert for the same
// (contract, user) pair surfaces as Conflict via the unique constraint.
func (r *CollaboratorRepo) Insert(ctx context.Context, c *models.Collaborator) (*models.Collaborator, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO collaborators (contract_id, user_id, role, active, can_export, can_manage_collaborators, added_by, note)
		VALUES ($1, $2, $3, true, $4, $5, $6, $7)
		RETURNING `+collaboratorColumns+`
	`, c.ContractID, c.UserID, c.Role, c.CanExport, c.CanManageCollaborators, c.AddedBy, c.Note)

	stored, err := scanCollaborator(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("user is already a collaborator on this contract")
		}
		return nil, err
	}
	return stored, nil
}

// Reactivate flips an inactive row back to active with a fresh role and
// grants. Returns NotFound if the row is missing or already active, which
// lets two racing reactivations collapse into one Conflict at the caller.
func (r *CollaboratorRepo) Reactivate(ctx context.Context, contractID, userID uuid.UUID, role models.Role, addedBy *uuid.UUID, note *string) (*models.Collaborator, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE collaborators
		SET role = $3, active = true, added_by = $4, note = $5, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2 AND NOT active
		RETURNING `+collaboratorColumns+`
	`, contractID, userID, role, addedBy, note)

	c, err := scanCollaborator(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no inactive collaborator row to reactivate")
	}
	return c, err
}

// UpdateRole changes the role of an active collaborator. Ownership changes
// must not go through here; the service enforces that boundary. Demotions
// run under the same row locks as Deactivate so two concurrent demotions of
// a contract's owners cannot both observe a second owner and strip the last.
func (r *CollaboratorRepo) UpdateRole(ctx context.Context, contractID, userID uuid.UUID, role models.Role) (*models.Collaborator, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT user_id, role FROM collaborators
		WHERE contract_id = $1 AND active
		FOR UPDATE
	`, contractID)
	if err != nil {
		return nil, err
	}

	owners := 0
	targetIsOwner := false
	targetActive := false
	for rows.Next() {
		var uid uuid.UUID
		var r models.Role
		if err := rows.Scan(&uid, &r); err != nil {
			rows.Close()
			return nil, err
		}
		if r == models.RoleOwner {
			owners++
		}
		if uid == userID {
			targetActive = true
			targetIsOwner = r == models.RoleOwner
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !targetActive {
		return nil, apperr.NotFound("collaborator not found")
	}
	if targetIsOwner && role != models.RoleOwner && owners <= 1 {
		return nil, apperr.BadRequest("cannot demote the last owner of a contract")
	}

	row := tx.QueryRow(ctx, `
		UPDATE collaborators
		SET role = $3, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2 AND active
		RETURNING `+collaboratorColumns+`
	`, contractID, userID, role)

	c, err := scanCollaborator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("collaborator not found")
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateGrants sets the explicit can_export / can_manage_collaborators flags.
func (r *CollaboratorRepo) UpdateGrants(ctx context.Context, contractID, userID uuid.UUID, canExport, canManage bool) (*models.Collaborator, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE collaborators
		SET can_export = $3, can_manage_collaborators = $4, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2 AND active
		RETURNING `+collaboratorColumns+`
	`, contractID, userID, canExport, canManage)

	c, err := scanCollaborator(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("collaborator not found")
	}
	return c, err
}

// Deactivate soft-removes an active collaborator. Last-owner protection is
// enforced inside a transaction: the contract's active rows are locked so
// two concurrent removals cannot both observe a second owner.
func (r *CollaboratorRepo) Deactivate(ctx context.Context, contractID, userID uuid.UUID) (*models.Collaborator, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT user_id, role FROM collaborators
		WHERE contract_id = $1 AND active
		FOR UPDATE
	`, contractID)
	if err != nil {
		return nil, err
	}

	owners := 0
	targetIsOwner := false
	targetActive := false
	for rows.Next() {
		var uid uuid.UUID
		var role models.Role
		if err := rows.Scan(&uid, &role); err != nil {
			rows.Close()
			return nil, err
		}
		if role == models.RoleOwner {
			owners++
		}
		if uid == userID {
			targetActive = true
			targetIsOwner = role == models.RoleOwner
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !targetActive {
		return nil, apperr.NotFound("collaborator not found")
	}
	if targetIsOwner && owners <= 1 {
		return nil, apperr.BadRequest("cannot remove the last owner of a contract")
	}

	row := tx.QueryRow(ctx, `
		UPDATE collaborators
		SET active = false, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2 AND active
		RETURNING `+collaboratorColumns+`
	`, contractID, userID)

	c, err := scanCollaborator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("collaborator not found")
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Transfer atomically demotes the current owner to viewer and promotes the
// target collaborator to owner. Both updates commit together or neither
// does; a reader never observes zero or two owners mid-transfer.
func (r *CollaboratorRepo) Transfer(ctx context.Context, contractID, fromUserID, toUserID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var fromRole models.Role
	err = tx.QueryRow(ctx, `
		SELECT role FROM collaborators
		WHERE contract_id = $1 AND user_id = $2 AND active
		FOR UPDATE
	`, contractID, fromUserID).Scan(&fromRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("current owner is not an active collaborator")
	}
	if err != nil {
		return err
	}
	if fromRole != models.RoleOwner {
		return apperr.BadRequest("transfer source is not an owner of this contract")
	}

	var toRole models.Role
	err = tx.QueryRow(ctx, `
		SELECT role FROM collaborators
		WHERE contract_id = $1 AND user_id = $2 AND active
		FOR UPDATE
	`, contractID, toUserID).Scan(&toRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("transfer target is not an active collaborator on this contract")
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE collaborators SET role = $3, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2
	`, contractID, fromUserID, models.RoleViewer); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE collaborators SET role = $3, updated_at = now()
		WHERE contract_id = $1 AND user_id = $2
	`, contractID, toUserID, models.RoleOwner); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListActive returns a contract's active collaborators in creation order.
func (r *CollaboratorRepo) ListActive(ctx context.Context, contractID uuid.UUID) ([]models.Collaborator, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+collaboratorColumns+`
		FROM collaborators WHERE contract_id = $1 AND active
		ORDER BY created_at
	`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Collaborator
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CollaboratorRepo) CountActiveOwners(ctx context.Context, contractID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM collaborators
		WHERE contract_id = $1 AND active AND role = $2
	`, contractID, models.RoleOwner).Scan(&n)
	return n, err
}

// ListContractIDsForUser returns the contracts on which the user is an
// active collaborator, newest first.
func (r *CollaboratorRepo) ListContractIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT contract_id FROM collaborators
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
