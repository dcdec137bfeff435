package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/repository"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	UpdateEvaluation(ctx context.Context, id string, discipline, selection, coefficient, finalScore float64) error
	UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) error
	DeclineIfCurrent(ctx context.Context, id string, from models.ApplicationStatus, reason string, at time.Time) error
	SelectWithQuota(ctx context.Context, applicationID string, vacancyType models.VacancyType, at time.Time) error
	AcceptWithVacancy(ctx context.Context, application *models.Application, vacancy *models.Vacancy) error
	HasAcceptedScholarship(ctx context.Context, studentID string, year int, semester models.Semester) (bool, error)
}

type projectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type periodReader interface {
	FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error)
}

type scorePolicy interface {
	Score(discipline, selection, coefficient float64) float64
	Invalidate(ctx context.Context, projectID string)
}

// ApplicationService owns the application lifecycle state machine.
type ApplicationService struct {
	repo       applicationRepository
	projects   projectReader
	periods    periodReader
	ranking    scorePolicy
	users      userReader
	dispatcher Dispatcher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewApplicationService constructs ApplicationService.
func NewApplicationService(repo applicationRepository, projects projectReader, periods periodReader, ranking scorePolicy, users userReader, dispatcher Dispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:       repo,
		projects:   projects,
		periods:    periods,
		ranking:    ranking,
		users:      users,
		dispatcher: dispatcher,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Apply submits a student's candidacy for an approved project while the
// enrollment window is open.
func (s *ApplicationService) Apply(ctx context.Context, actor models.Actor, req models.ApplyRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	now := time.Now().UTC()
	period, err := s.periods.FindOpen(ctx, now)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrWindowClosed, "no enrollment period is currently open")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment period")
	}

	project, err := s.projects.FindByID(ctx, req.ProjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if project.Status != models.ProjectStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "project is not open for applications")
	}
	if project.Year != period.Year || project.Semester != period.Semester {
		return nil, appErrors.Clone(appErrors.ErrWindowClosed, "project belongs to a different academic term")
	}
	if !s.hasCapacityFor(project, req.Preference) {
		return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "project has no vacancies of the desired type")
	}

	application := &models.Application{
		ProjectID:  req.ProjectID,
		StudentID:  actor.ID,
		PeriodID:   period.ID,
		Status:     models.ApplicationStatusSubmitted,
		Preference: req.Preference,
		Motivation: req.Motivation,
	}
	if student, err := s.users.FindByID(ctx, actor.ID); err == nil && student.AcademicCoefficient != nil {
		application.AcademicCoefficient = student.AcademicCoefficient
	}
	if err := s.repo.Create(ctx, application); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateApplication, "student already applied to this project in the current period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.metrics.RecordApplicationTransition("apply")
	return application, nil
}

func (s *ApplicationService) hasCapacityFor(project *models.Project, preference models.VacancyPreference) bool {
	scholarships := 0
	if project.GrantedScholarships != nil {
		scholarships = *project.GrantedScholarships
	}
	switch preference {
	case models.PreferScholarship:
		return scholarships > 0
	case models.PreferVolunteer:
		return project.RequestedVolunteers > 0
	default:
		return scholarships > 0 || project.RequestedVolunteers > 0
	}
}

// Evaluate records the professor's grades and recomputes the final score.
// Status is unchanged; the stored score is a cache of the scoring policy.
func (s *ApplicationService) Evaluate(ctx context.Context, actor models.Actor, id string, req models.EvaluateApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another professor's project")
	}
	if detail.Status != models.ApplicationStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application can only be evaluated while submitted")
	}
	finalScore := s.ranking.Score(req.DisciplineGrade, req.SelectionGrade, req.AcademicCoefficient)
	if err := s.repo.UpdateEvaluation(ctx, id, req.DisciplineGrade, req.SelectionGrade, req.AcademicCoefficient, finalScore); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record evaluation")
	}
	s.ranking.Invalidate(ctx, detail.ProjectID)
	return s.loadApplication(ctx, id)
}

// Select moves a submitted application to the selected state for a vacancy
// type, bounded by the project's granted quota.
func (s *ApplicationService) Select(ctx context.Context, actor models.Actor, id string, req models.SelectApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another professor's project")
	}
	if detail.Status != models.ApplicationStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application can only be selected while submitted")
	}
	if !detail.Preference.Accepts(req.VacancyType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "vacancy type conflicts with the candidate's declared preference")
	}
	if !detail.Evaluated() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "application must be evaluated before selection")
	}

	now := time.Now().UTC()
	if err := s.repo.SelectWithQuota(ctx, id, req.VacancyType, now); err != nil {
		switch err {
		case repository.ErrQuotaReached:
			return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "vacancy quota for this type is already filled")
		case repository.ErrStatusConflict:
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application state changed concurrently")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select application")
		}
	}
	s.metrics.RecordApplicationTransition("select")
	s.ranking.Invalidate(ctx, detail.ProjectID)
	return s.loadApplication(ctx, id)
}

// RejectByProfessor removes a submitted candidate from the process.
func (s *ApplicationService) RejectByProfessor(ctx context.Context, actor models.Actor, id string) (*models.Application, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another professor's project")
	}
	next, ok := models.NextApplicationStatus(detail.Status, models.ApplicationActionRejectByProfessor)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application cannot be rejected from its current state")
	}
	if err := s.repo.UpdateStatusIfCurrent(ctx, id, detail.Status, next, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject application")
	}
	s.metrics.RecordApplicationTransition("reject_by_professor")
	s.ranking.Invalidate(ctx, detail.ProjectID)
	return s.loadApplication(ctx, id)
}

// Respond records the student's decision on a selection. Accepting creates
// exactly one vacancy in the same transaction; declining requires a reason.
func (s *ApplicationService) Respond(ctx context.Context, actor models.Actor, id string, req models.RespondApplicationRequest) (*models.Application, error) {
	application, err := s.loadApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.StudentID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
	}
	if !application.Status.Selected() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "application is not awaiting a response")
	}

	if !req.Accept {
		if req.Reason == nil || strings.TrimSpace(*req.Reason) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required when declining a selection")
		}
		if err := s.repo.DeclineIfCurrent(ctx, id, application.Status, *req.Reason, time.Now().UTC()); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrInvalidState, "application state changed concurrently")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decline selection")
		}
		s.metrics.RecordApplicationTransition("decline")
		return s.loadApplication(ctx, id)
	}

	project, err := s.projects.FindByID(ctx, application.ProjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	vacancyType, _ := application.Status.VacancyType()
	if vacancyType == models.VacancyScholarship {
		held, err := s.repo.HasAcceptedScholarship(ctx, actor.ID, project.Year, project.Semester)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check scholarship holdings")
		}
		if held {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already holds a scholarship in this academic term")
		}
	}

	start, end := models.SemesterBounds(project.Year, project.Semester)
	vacancy := &models.Vacancy{
		ProjectID:  project.ID,
		StudentID:  actor.ID,
		Type:       vacancyType,
		Year:       project.Year,
		Semester:   project.Semester,
		TermNumber: commitmentTermNumber(project.Year, project.Semester, application.ID),
		StartDate:  start,
		EndDate:    end,
	}
	if err := s.repo.AcceptWithVacancy(ctx, application, vacancy); err != nil {
		if err == repository.ErrStatusConflict || repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "application was already responded to")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept selection")
	}
	s.metrics.RecordApplicationTransition("accept")
	s.logger.Info("vacancy created",
		zap.String("application_id", application.ID),
		zap.String("project_id", project.ID),
		zap.String("type", string(vacancyType)))
	return s.loadApplication(ctx, id)
}

// commitmentTermNumber composes the document number for an accepted vacancy,
// e.g. 20251-1a2b3c4d for the first 2025 term.
func commitmentTermNumber(year int, semester models.Semester, applicationID string) string {
	prefix := applicationID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%d%d-%s", year, models.SemesterOrdinal(semester), prefix)
}

// Get returns an application visible to the actor.
func (s *ApplicationService) Get(ctx context.Context, actor models.Actor, id string) (*models.ApplicationDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleProfessor:
		if detail.ProfessorID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another professor's project")
		}
	case models.RoleStudent:
		if detail.StudentID != actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "application belongs to another student")
		}
	}
	return detail, nil
}

// ListByProject returns a project's applications for its professor or an
// administrator.
func (s *ApplicationService) ListByProject(ctx context.Context, actor models.Actor, projectID string, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if actor.Role == models.RoleProfessor && project.ProfessorID != actor.ID {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}
	filter.ProjectID = projectID
	return s.list(ctx, filter)
}

// MyApplications returns the acting student's applications.
func (s *ApplicationService) MyApplications(ctx context.Context, actor models.Actor, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	filter.StudentID = actor.ID
	return s.list(ctx, filter)
}

func (s *ApplicationService) list(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return applications, pagination, nil
}

func (s *ApplicationService) loadApplication(ctx context.Context, id string) (*models.Application, error) {
	application, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

func (s *ApplicationService) loadDetail(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return detail, nil
}
