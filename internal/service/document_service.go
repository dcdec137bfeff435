package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/export"
)

type documentRenderer interface {
	RenderProposal(data export.ProposalData) ([]byte, error)
	RenderCommitmentTerm(data export.TermData) ([]byte, error)
}

type documentStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type urlSigner interface {
	Generate(documentID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (documentID, relPath string, expiresAt time.Time, err error)
}

type vacancyReader interface {
	FindByApplicationID(ctx context.Context, applicationID string) (*models.Vacancy, error)
}

// SignedDocument points a caller at a rendered artifact.
type SignedDocument struct {
	DocumentID string    `json:"document_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentService renders workflow documents and hands out signed download
// tokens for them.
type DocumentService struct {
	projects     projectReader
	applications applicationRepository
	vacancies    vacancyReader
	users        userReader
	renderer     documentRenderer
	storage      documentStorage
	signer       urlSigner
	logger       *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(projects projectReader, applications applicationRepository, vacancies vacancyReader, users userReader, renderer documentRenderer, storage documentStorage, signer urlSigner, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		projects:     projects,
		applications: applications,
		vacancies:    vacancies,
		users:        users,
		renderer:     renderer,
		storage:      storage,
		signer:       signer,
		logger:       logger,
	}
}

// RenderProposal produces the proposal document for a project and returns a
// signed download token.
func (s *DocumentService) RenderProposal(ctx context.Context, actor models.Actor, projectID string) (*SignedDocument, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if actor.Role == models.RoleProfessor && project.ProfessorID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "project belongs to another professor")
	}

	professorName := ""
	if professor, err := s.users.FindByID(ctx, project.ProfessorID); err == nil {
		professorName = professor.FullName
	}
	signedAt := ""
	if project.SignedAt != nil {
		signedAt = project.SignedAt.Format("2006-01-02")
	}
	data := export.ProposalData{
		Title:                 project.Title,
		Description:           project.Description,
		Department:            project.Department,
		ProfessorName:         professorName,
		Year:                  project.Year,
		Semester:              string(project.Semester),
		PropositionType:       string(project.PropositionType),
		RequestedScholarships: project.RequestedScholarships,
		RequestedVolunteers:   project.RequestedVolunteers,
		WeeklyHours:           project.WeeklyHours,
		WeekCount:             project.WeekCount,
		SignedAt:              signedAt,
	}
	pdf, err := s.renderer.RenderProposal(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render proposal")
	}
	path := fmt.Sprintf("proposals/%s.pdf", project.ID)
	return s.store(project.ID, path, pdf)
}

// RenderCommitmentTerm produces the commitment term for an accepted
// application and returns a signed download token.
func (s *DocumentService) RenderCommitmentTerm(ctx context.Context, actor models.Actor, applicationID string) (*SignedDocument, error) {
	detail, err := s.applications.FindDetailByID(ctx, applicationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
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
	if !detail.Status.Accepted() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "commitment term requires an accepted application")
	}

	vacancy, err := s.vacancies.FindByApplicationID(ctx, applicationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "vacancy not found for application")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vacancy")
	}

	professorName := ""
	weeklyHours := 0
	if project, err := s.projects.FindByID(ctx, detail.ProjectID); err == nil {
		weeklyHours = project.WeeklyHours
		if professor, err := s.users.FindByID(ctx, project.ProfessorID); err == nil {
			professorName = professor.FullName
		}
	}

	data := export.TermData{
		TermNumber:    vacancy.TermNumber,
		StudentName:   detail.StudentName,
		Registration:  detail.StudentRegistration,
		ProjectTitle:  detail.ProjectTitle,
		ProfessorName: professorName,
		VacancyType:   string(vacancy.Type),
		StartDate:     vacancy.StartDate.Format("2006-01-02"),
		EndDate:       vacancy.EndDate.Format("2006-01-02"),
		WeeklyHours:   weeklyHours,
		GeneratedAt:   time.Now().UTC().Format("2006-01-02"),
	}
	pdf, err := s.renderer.RenderCommitmentTerm(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render commitment term")
	}
	path := fmt.Sprintf("terms/%s.pdf", vacancy.TermNumber)
	return s.store(applicationID, path, pdf)
}

// Open resolves a signed token into a readable file handle.
func (s *DocumentService) Open(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return file, nil
}

func (s *DocumentService) store(documentID, path string, pdf []byte) (*SignedDocument, error) {
	if _, err := s.storage.Save(path, pdf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	token, expiresAt, err := s.signer.Generate(documentID, path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document url")
	}
	return &SignedDocument{DocumentID: documentID, Token: token, ExpiresAt: expiresAt}, nil
}
