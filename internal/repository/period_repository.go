package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// PeriodRepository handles persistence of enrollment periods.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository constructs the repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// Create persists a new enrollment period.
func (r *PeriodRepository) Create(ctx context.Context, period *models.EnrollmentPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	const query = `INSERT INTO enrollment_periods (id, year, semester, starts_at, ends_at, created_at, updated_at)
		VALUES (:id, :year, :semester, :starts_at, :ends_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create enrollment period: %w", err)
	}
	return nil
}

// FindByID returns a period by its ID.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentPeriod, error) {
	const query = `SELECT id, year, semester, starts_at, ends_at, created_at, updated_at
		FROM enrollment_periods WHERE id = $1`
	var period models.EnrollmentPeriod
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindOpen returns the period whose window contains the given instant, or
// sql.ErrNoRows when no window is open.
func (r *PeriodRepository) FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error) {
	const query = `SELECT id, year, semester, starts_at, ends_at, created_at, updated_at
		FROM enrollment_periods WHERE starts_at <= $1 AND ends_at >= $1
		ORDER BY starts_at DESC LIMIT 1`
	var period models.EnrollmentPeriod
	if err := r.db.GetContext(ctx, &period, query, at); err != nil {
		return nil, err
	}
	return &period, nil
}

// ExistsOverlapping reports whether another period for the same term
// overlaps the given window.
func (r *PeriodRepository) ExistsOverlapping(ctx context.Context, year int, semester models.Semester, startsAt, endsAt time.Time, excludeID string) (bool, error) {
	query := `SELECT 1 FROM enrollment_periods
		WHERE year = $1 AND semester = $2 AND starts_at <= $3 AND ends_at >= $4`
	args := []interface{}{year, semester, endsAt, startsAt}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check overlapping period: %w", err)
	}
	return true, nil
}

// Update adjusts a period window.
func (r *PeriodRepository) Update(ctx context.Context, period *models.EnrollmentPeriod) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollment_periods SET starts_at = :starts_at, ends_at = :ends_at, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, period)
	if err != nil {
		return fmt.Errorf("update enrollment period: %w", err)
	}
	return requireRow(result, "update enrollment period")
}

// List returns all periods, most recent first.
func (r *PeriodRepository) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	const query = `SELECT id, year, semester, starts_at, ends_at, created_at, updated_at
		FROM enrollment_periods ORDER BY starts_at DESC`
	var periods []models.EnrollmentPeriod
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list enrollment periods: %w", err)
	}
	return periods, nil
}
