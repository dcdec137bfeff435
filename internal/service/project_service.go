package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type projectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectDetail, int, error)
	UpdateDraft(ctx context.Context, project *models.Project) error
	UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ProjectStatus, at time.Time) error
	Approve(ctx context.Context, id string, granted int, feedback *string, at time.Time) error
	Reject(ctx context.Context, id, feedback string, at time.Time) error
	SetProfessorSignature(ctx context.Context, id, payload string, at time.Time) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type signatureGate interface {
	Record(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole, signerID string, req models.RecordSignatureRequest) (*models.SignatureRecord, error)
	IsReady(ctx context.Context, entityType models.SignatureEntityType, entityID string, requiredRole models.SignatureRole) (bool, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ProjectService owns the project lifecycle state machine.
type ProjectService struct {
	repo       projectRepository
	signatures signatureGate
	users      userReader
	dispatcher Dispatcher
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProjectService constructs ProjectService.
func NewProjectService(repo projectRepository, signatures signatureGate, users userReader, dispatcher Dispatcher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		repo:       repo,
		signatures: signatures,
		users:      users,
		dispatcher: dispatcher,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Create registers a new draft project owned by the acting professor.
func (s *ProjectService) Create(ctx context.Context, actor models.Actor, req models.CreateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project := &models.Project{
		Title:                 req.Title,
		Description:           req.Description,
		Department:            req.Department,
		ProfessorID:           actor.ID,
		Year:                  req.Year,
		Semester:              req.Semester,
		PropositionType:       req.PropositionType,
		Status:                models.ProjectStatusDraft,
		RequestedScholarships: req.RequestedScholarships,
		RequestedVolunteers:   req.RequestedVolunteers,
		WeeklyHours:           req.WeeklyHours,
		WeekCount:             req.WeekCount,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	return project, nil
}

// Import registers a project on behalf of a professor. The project awaits
// the professor's signature before it can be submitted.
func (s *ProjectService) Import(ctx context.Context, actor models.Actor, req models.ImportProjectRequest) (*models.Project, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may import projects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	professor, err := s.users.FindByID(ctx, req.ProfessorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if professor.Role != models.RoleProfessor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "designated owner is not a professor")
	}
	project := &models.Project{
		Title:                 req.Title,
		Description:           req.Description,
		Department:            req.Department,
		ProfessorID:           req.ProfessorID,
		Year:                  req.Year,
		Semester:              req.Semester,
		PropositionType:       req.PropositionType,
		Status:                models.ProjectStatusPendingSignature,
		RequestedScholarships: req.RequestedScholarships,
		RequestedVolunteers:   req.RequestedVolunteers,
		WeeklyHours:           req.WeeklyHours,
		WeekCount:             req.WeekCount,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import project")
	}
	s.notify(ctx, models.Notification{
		Kind:      models.NotificationSignatureRequired,
		Recipient: professor.Email,
		Subject:   "Project awaiting your signature",
		Body:      fmt.Sprintf("The project %q was registered under your responsibility and awaits your signature before submission.", project.Title),
		UserID:    &professor.ID,
		EntityID:  &project.ID,
	})
	return project, nil
}

// Get returns a project visible to the actor.
func (s *ProjectService) Get(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleProfessor && project.ProfessorID != actor.ID && project.Status != models.ProjectStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}
	return project, nil
}

// List returns projects with pagination metadata. Students see approved
// projects only; professors see their own.
func (s *ProjectService) List(ctx context.Context, actor models.Actor, filter models.ProjectFilter) ([]models.ProjectDetail, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.Status = models.ProjectStatusApproved
	case models.RoleProfessor:
		filter.ProfessorID = actor.ID
	}
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
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
	return projects, pagination, nil
}

// Update edits a draft project's fields.
func (s *ProjectService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}
	if project.Status != models.ProjectStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "project can only be edited while in draft")
	}
	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.RequestedScholarships != nil {
		project.RequestedScholarships = *req.RequestedScholarships
	}
	if req.RequestedVolunteers != nil {
		project.RequestedVolunteers = *req.RequestedVolunteers
	}
	if req.WeeklyHours != nil {
		project.WeeklyHours = *req.WeeklyHours
	}
	if req.WeekCount != nil {
		project.WeekCount = *req.WeekCount
	}
	if err := s.repo.UpdateDraft(ctx, project); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "project left the editable state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}
	return project, nil
}

// RecordSignature stores the professor's signature over the proposal. The
// signature does not change project status; submission is a separate step.
func (s *ProjectService) RecordSignature(ctx context.Context, actor models.Actor, id string, req models.RecordSignatureRequest) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}
	if !project.Status.Editable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "project is not awaiting signature")
	}
	if _, err := s.signatures.Record(ctx, models.SignatureEntityProjectProposal, project.ID, models.SignatureRoleProfessor, actor.ID, req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.repo.SetProfessorSignature(ctx, project.ID, req.Payload, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrAlreadySigned, "project already carries a signature")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store signature")
	}
	s.metrics.RecordProjectTransition("sign")
	return s.load(ctx, id)
}

// Submit moves a signed project into review. The signature gate must report
// the professor signature present.
func (s *ProjectService) Submit(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}
	next, ok := models.NextProjectStatus(project.Status, models.ProjectActionSubmit)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "project cannot be submitted from its current state")
	}
	ready, err := s.signatures.IsReady(ctx, models.SignatureEntityProjectProposal, project.ID, models.SignatureRoleProfessor)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "professor signature required before submission")
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateStatusIfCurrent(ctx, project.ID, project.Status, next, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "project state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit project")
	}
	s.metrics.RecordProjectTransition("submit")
	s.logger.Info("project submitted", zap.String("project_id", project.ID), zap.String("professor_id", actor.ID))
	return s.load(ctx, id)
}

// Approve grants scholarships and moves a submitted project to approved.
func (s *ProjectService) Approve(ctx context.Context, actor models.Actor, id string, req models.ApproveProjectRequest) (*models.Project, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may approve projects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only submitted projects can be approved")
	}
	granted, err := AllocateScholarships(project.RequestedScholarships, req.GrantedScholarships)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := s.repo.Approve(ctx, project.ID, granted, req.Feedback, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "project state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve project")
	}
	s.metrics.RecordProjectTransition("approve")
	s.notifyProfessor(ctx, project, models.NotificationProjectApproved,
		"Project approved",
		fmt.Sprintf("Your project %q was approved with %d scholarship(s).", project.Title, granted))
	return s.load(ctx, id)
}

// Reject moves a submitted project to rejected. Feedback is mandatory.
func (s *ProjectService) Reject(ctx context.Context, actor models.Actor, id string, req models.RejectProjectRequest) (*models.Project, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may reject projects")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection feedback is required")
	}
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only submitted projects can be rejected")
	}
	now := time.Now().UTC()
	if err := s.repo.Reject(ctx, project.ID, req.Feedback, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "project state changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject project")
	}
	s.metrics.RecordProjectTransition("reject")
	s.notifyProfessor(ctx, project, models.NotificationProjectRejected,
		"Project rejected",
		fmt.Sprintf("Your project %q was rejected. Feedback: %s", project.Title, req.Feedback))
	return s.load(ctx, id)
}

// SoftDelete removes a project from workflow operations. Professors may
// delete their own drafts; administrators may delete in any status.
func (s *ProjectService) SoftDelete(ctx context.Context, actor models.Actor, id string) error {
	project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleProfessor:
		if project.ProfessorID != actor.ID {
			return appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
		}
		if project.Status != models.ProjectStatusDraft {
			return appErrors.Clone(appErrors.ErrInvalidState, "professors may only delete draft projects")
		}
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "role cannot delete projects")
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}
	s.logger.Info("project soft deleted", zap.String("project_id", id), zap.String("actor_id", actor.ID), zap.String("actor_role", string(actor.Role)))
	return nil
}

func (s *ProjectService) load(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

func (s *ProjectService) notifyProfessor(ctx context.Context, project *models.Project, kind models.NotificationKind, subject, body string) {
	professor, err := s.users.FindByID(ctx, project.ProfessorID)
	if err != nil {
		s.logger.Warn("failed to load professor for notification", zap.String("project_id", project.ID), zap.Error(err))
		return
	}
	s.notify(ctx, models.Notification{
		Kind:      kind,
		Recipient: professor.Email,
		Subject:   subject,
		Body:      body,
		UserID:    &professor.ID,
		EntityID:  &project.ID,
	})
}

func (s *ProjectService) notify(ctx context.Context, notification models.Notification) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, notification); err != nil {
		s.logger.Warn("failed to dispatch notification",
			zap.String("kind", string(notification.Kind)),
			zap.String("recipient", notification.Recipient),
			zap.Error(err))
	}
}
