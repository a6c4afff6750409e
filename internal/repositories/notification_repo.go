package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumi-ct/backend/internal/models"
)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (contract_id, user_id, type, channel, title, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, contract_id, user_id, type, channel, title, message, metadata, read_at, created_at
	`, n.ContractID, n.UserID, n.Type, n.Channel, n.Title, n.Message, n.Metadata)

	var stored models.Notification
	err := row.Scan(&stored.ID, &stored.ContractID, &stored.UserID, &stored.Type, &stored.Channel,
		&stored.Title, &stored.Message, &stored.Metadata, &stored.ReadAt, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *NotificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, contract_id, user_id, type, channel, title, message, metadata, read_at, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.ContractID, &n.UserID, &n.Type, &n.Channel,
			&n.Title, &n.Message, &n.Metadata, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at = now()
		WHERE id = $1 AND user_id = $2 AND read_at IS NULL
	`, notificationID, userID)
	return err
}

// DeleteOlderThan prunes notifications past the configured age, worker only.
func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
