package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// SelectionRecordRepository persists selection process outcomes.
type SelectionRecordRepository struct {
	db *sqlx.DB
}

// NewSelectionRecordRepository constructs the repository.
func NewSelectionRecordRepository(db *sqlx.DB) *SelectionRecordRepository {
	return &SelectionRecordRepository{db: db}
}

// UpsertMinutes stores the rendered minutes path for a project, creating
// the record on first use.
func (r *SelectionRecordRepository) UpsertMinutes(ctx context.Context, projectID, minutesPath string, generatedAt time.Time) error {
	const query = `INSERT INTO selection_records (id, project_id, minutes_path, generated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (project_id)
		DO UPDATE SET minutes_path = EXCLUDED.minutes_path, generated_at = EXCLUDED.generated_at, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), projectID, minutesPath, generatedAt, now); err != nil {
		return fmt.Errorf("upsert selection minutes: %w", err)
	}
	return nil
}

// UpsertNotification stores the notification outcome for a project.
func (r *SelectionRecordRepository) UpsertNotification(ctx context.Context, projectID string, notifiedAt time.Time, ok, failed int) error {
	const query = `INSERT INTO selection_records (id, project_id, notified_at, notified_ok, notified_fail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (project_id)
		DO UPDATE SET notified_at = EXCLUDED.notified_at, notified_ok = EXCLUDED.notified_ok,
			notified_fail = EXCLUDED.notified_fail, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), projectID, notifiedAt, ok, failed, now); err != nil {
		return fmt.Errorf("upsert selection notification: %w", err)
	}
	return nil
}

// FindByProjectID returns the selection record for a project.
func (r *SelectionRecordRepository) FindByProjectID(ctx context.Context, projectID string) (*models.SelectionRecord, error) {
	const query = `SELECT id, project_id, minutes_path, generated_at, notified_at, notified_ok, notified_fail, created_at, updated_at
		FROM selection_records WHERE project_id = $1`
	var record models.SelectionRecord
	if err := r.db.GetContext(ctx, &record, query, projectID); err != nil {
		return nil, err
	}
	return &record, nil
}
