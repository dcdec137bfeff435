package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/export"
)

type rankProvider interface {
	RankCandidates(ctx context.Context, projectID string, vacancyType models.VacancyType) (*models.Ranking, error)
}

type selectionRecordRepository interface {
	UpsertMinutes(ctx context.Context, projectID, minutesPath string, generatedAt time.Time) error
	UpsertNotification(ctx context.Context, projectID string, notifiedAt time.Time, ok, failed int) error
	FindByProjectID(ctx context.Context, projectID string) (*models.SelectionRecord, error)
}

type applicationLister interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
}

type minutesRenderer interface {
	RenderMinutes(data export.MinutesData) ([]byte, error)
}

type documentStore interface {
	Save(filename string, data []byte) (string, error)
}

// NotifyResultsSummary reports the outcome of a result notification round.
type NotifyResultsSummary struct {
	Dispatched int `json:"dispatched"`
	Failed     int `json:"failed"`
}

// SelectionService produces selection minutes and result notifications for
// a project's completed selection process.
type SelectionService struct {
	projects     projectReader
	applications applicationLister
	ranking      rankProvider
	records      selectionRecordRepository
	users        userReader
	renderer     minutesRenderer
	storage      documentStore
	dispatcher   Dispatcher
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewSelectionService constructs SelectionService.
func NewSelectionService(projects projectReader, applications applicationLister, ranking rankProvider, records selectionRecordRepository, users userReader, renderer minutesRenderer, storage documentStore, dispatcher Dispatcher, metrics *MetricsService, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{
		projects:     projects,
		applications: applications,
		ranking:      ranking,
		records:      records,
		users:        users,
		renderer:     renderer,
		storage:      storage,
		dispatcher:   dispatcher,
		metrics:      metrics,
		logger:       logger,
	}
}

// GenerateMinutes renders the selection minutes document and records its
// storage location.
func (s *SelectionService) GenerateMinutes(ctx context.Context, actor models.Actor, projectID string) (*models.SelectionRecord, error) {
	project, err := s.authorizedProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	professorName := ""
	if professor, err := s.users.FindByID(ctx, project.ProfessorID); err == nil {
		professorName = professor.FullName
	}

	rows := make([]export.CandidateRow, 0)
	for _, vacancyType := range []models.VacancyType{models.VacancyScholarship, models.VacancyVolunteer} {
		ranking, err := s.ranking.RankCandidates(ctx, projectID, vacancyType)
		if err != nil {
			return nil, err
		}
		for _, c := range ranking.Candidates {
			rows = append(rows, export.CandidateRow{
				StudentName:         c.StudentName,
				Registration:        c.StudentRegistration,
				DesiredType:         string(vacancyType),
				DisciplineGrade:     fmt.Sprintf("%.2f", c.DisciplineGrade),
				SelectionGrade:      fmt.Sprintf("%.2f", c.SelectionGrade),
				AcademicCoefficient: fmt.Sprintf("%.2f", c.AcademicCoefficient),
				FinalScore:          fmt.Sprintf("%.2f", c.FinalScore),
				Status:              string(c.Status),
			})
		}
	}

	now := time.Now().UTC()
	data := export.MinutesData{
		ProjectTitle:  project.Title,
		Department:    project.Department,
		ProfessorName: professorName,
		Year:          project.Year,
		Semester:      string(project.Semester),
		SelectionDate: now.Format("2006-01-02"),
		Candidates:    rows,
	}
	pdf, err := s.renderer.RenderMinutes(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render selection minutes")
	}

	path := fmt.Sprintf("minutes/%s.pdf", projectID)
	if _, err := s.storage.Save(path, pdf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store selection minutes")
	}
	if err := s.records.UpsertMinutes(ctx, projectID, path, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record selection minutes")
	}

	record, err := s.records.FindByProjectID(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection record")
	}
	return record, nil
}

// NotifyResults dispatches the selection outcome to every candidate whose
// application reached a decision. Delivery failures are counted, not fatal.
func (s *SelectionService) NotifyResults(ctx context.Context, actor models.Actor, projectID string, message string) (*NotifyResultsSummary, error) {
	project, err := s.authorizedProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	applications, _, err := s.applications.List(ctx, models.ApplicationFilter{ProjectID: projectID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidates")
	}

	summary := &NotifyResultsSummary{}
	for _, app := range applications {
		subject, body, ok := resultMessage(project, app, message)
		if !ok {
			continue
		}
		notification := models.Notification{
			Kind:      models.NotificationSelectionResult,
			Recipient: app.StudentEmail,
			Subject:   subject,
			Body:      body,
			UserID:    &app.StudentID,
			EntityID:  &app.ID,
		}
		if err := s.dispatcher.Dispatch(ctx, notification); err != nil {
			summary.Failed++
			s.metrics.RecordNotification("failed")
			s.logger.Warn("failed to dispatch result notification",
				zap.String("application_id", app.ID),
				zap.String("recipient", app.StudentEmail),
				zap.Error(err))
			continue
		}
		summary.Dispatched++
		s.metrics.RecordNotification("dispatched")
	}

	if err := s.records.UpsertNotification(ctx, projectID, time.Now().UTC(), summary.Dispatched, summary.Failed); err != nil {
		s.logger.Warn("failed to record notification outcome", zap.String("project_id", projectID), zap.Error(err))
	}
	return summary, nil
}

func resultMessage(project *models.Project, app models.ApplicationDetail, custom string) (subject, body string, ok bool) {
	switch {
	case app.Status.Selected():
		vacancyType, _ := app.Status.VacancyType()
		subject = fmt.Sprintf("Selection result for %s", project.Title)
		body = fmt.Sprintf("You were selected for a %s position in the project %q. Please respond to confirm or decline the vacancy.", vacancyType, project.Title)
	case app.Status == models.ApplicationStatusRejectedByProfessor:
		subject = fmt.Sprintf("Selection result for %s", project.Title)
		body = fmt.Sprintf("Your application to the project %q was not selected.", project.Title)
	default:
		return "", "", false
	}
	if custom != "" {
		body += "\n\n" + custom
	}
	return subject, body, true
}

func (s *SelectionService) authorizedProject(ctx context.Context, actor models.Actor, projectID string) (*models.Project, error) {
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
	return project, nil
}
