package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// NotificationLogRepository persists notification delivery records.
type NotificationLogRepository struct {
	db *sqlx.DB
}

// NewNotificationLogRepository constructs the repository.
func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Create inserts a delivery record.
func (r *NotificationLogRepository) Create(ctx context.Context, log *models.NotificationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_logs (id, kind, recipient, subject, status, error, user_id, entity_id, created_at)
		VALUES (:id, :kind, :recipient, :subject, :status, :error, :user_id, :entity_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}

// ListByEntity returns delivery records attached to an entity.
func (r *NotificationLogRepository) ListByEntity(ctx context.Context, entityID string) ([]models.NotificationLog, error) {
	const query = `SELECT id, kind, recipient, subject, status, error, user_id, entity_id, created_at
		FROM notification_logs WHERE entity_id = $1 ORDER BY created_at DESC`
	var logs []models.NotificationLog
	if err := r.db.SelectContext(ctx, &logs, query, entityID); err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, nil
}
