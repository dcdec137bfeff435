package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type vacancyRepository interface {
	FindByApplicationID(ctx context.Context, applicationID string) (*models.Vacancy, error)
	List(ctx context.Context, filter models.VacancyFilter) ([]models.VacancyDetail, int, error)
}

// VacancyService reads occupied vacancies scoped to the caller's role.
type VacancyService struct {
	repo   vacancyRepository
	logger *zap.Logger
}

// NewVacancyService constructs VacancyService.
func NewVacancyService(repo vacancyRepository, logger *zap.Logger) *VacancyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VacancyService{repo: repo, logger: logger}
}

// List returns vacancies visible to the actor. Students see their own,
// professors see vacancies in their projects, admins see everything.
func (s *VacancyService) List(ctx context.Context, actor models.Actor, filter models.VacancyFilter) ([]models.VacancyDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ID
	case models.RoleProfessor:
		filter.ProfessorID = actor.ID
	}

	vacancies, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vacancies")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return vacancies, pagination, nil
}

// GetByApplication returns the vacancy held by an application.
func (s *VacancyService) GetByApplication(ctx context.Context, actor models.Actor, applicationID string) (*models.Vacancy, error) {
	vacancy, err := s.repo.FindByApplicationID(ctx, applicationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "vacancy not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vacancy")
	}
	if actor.Role == models.RoleStudent && vacancy.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "vacancy belongs to another student")
	}
	return vacancy, nil
}
