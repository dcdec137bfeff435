package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type periodRepository interface {
	Create(ctx context.Context, period *models.EnrollmentPeriod) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentPeriod, error)
	FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error)
	ExistsOverlapping(ctx context.Context, year int, semester models.Semester, startsAt, endsAt time.Time, excludeID string) (bool, error)
	Update(ctx context.Context, period *models.EnrollmentPeriod) error
	List(ctx context.Context) ([]models.EnrollmentPeriod, error)
}

// PeriodService manages enrollment period windows.
type PeriodService struct {
	repo      periodRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPeriodService constructs PeriodService.
func NewPeriodService(repo periodRepository, validate *validator.Validate, logger *zap.Logger) *PeriodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{repo: repo, validator: validate, logger: logger}
}

// Create opens a new enrollment period. Windows for the same term must not
// overlap.
func (s *PeriodService) Create(ctx context.Context, req models.CreatePeriodRequest) (*models.EnrollmentPeriod, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	overlap, err := s.repo.ExistsOverlapping(ctx, req.Year, req.Semester, req.StartsAt, req.EndsAt, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate period window")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an enrollment period for this term already overlaps the window")
	}
	period := &models.EnrollmentPeriod{
		Year:     req.Year,
		Semester: req.Semester,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}
	return period, nil
}

// Update adjusts an existing period window.
func (s *PeriodService) Update(ctx context.Context, id string, req models.UpdatePeriodRequest) (*models.EnrollmentPeriod, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	if req.StartsAt != nil {
		period.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		period.EndsAt = *req.EndsAt
	}
	if !period.EndsAt.After(period.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must end after it starts")
	}
	overlap, err := s.repo.ExistsOverlapping(ctx, period.Year, period.Semester, period.StartsAt, period.EndsAt, period.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate period window")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an enrollment period for this term already overlaps the window")
	}
	if err := s.repo.Update(ctx, period); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update period")
	}
	return period, nil
}

// Current returns the period open at this instant, if any.
func (s *PeriodService) Current(ctx context.Context) (*models.EnrollmentPeriod, error) {
	period, err := s.repo.FindOpen(ctx, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no enrollment period is currently open")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// List returns all periods.
func (s *PeriodService) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	periods, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, nil
}
