package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/export"
)

type mockSelectionRecordRepo struct {
	record *models.SelectionRecord
}

func (m *mockSelectionRecordRepo) UpsertMinutes(ctx context.Context, projectID, minutesPath string, generatedAt time.Time) error {
	if m.record == nil {
		m.record = &models.SelectionRecord{ID: "rec-1", ProjectID: projectID}
	}
	m.record.MinutesPath = &minutesPath
	m.record.GeneratedAt = &generatedAt
	return nil
}

func (m *mockSelectionRecordRepo) UpsertNotification(ctx context.Context, projectID string, notifiedAt time.Time, ok, failed int) error {
	if m.record == nil {
		m.record = &models.SelectionRecord{ID: "rec-1", ProjectID: projectID}
	}
	m.record.NotifiedAt = &notifiedAt
	m.record.NotifiedOK = ok
	m.record.NotifiedFail = failed
	return nil
}

func (m *mockSelectionRecordRepo) FindByProjectID(ctx context.Context, projectID string) (*models.SelectionRecord, error) {
	record := *m.record
	return &record, nil
}

type stubRankProvider struct {
	rankings map[models.VacancyType]*models.Ranking
}

func (s *stubRankProvider) RankCandidates(ctx context.Context, projectID string, vacancyType models.VacancyType) (*models.Ranking, error) {
	if r, ok := s.rankings[vacancyType]; ok {
		return r, nil
	}
	return &models.Ranking{ProjectID: projectID, VacancyType: vacancyType}, nil
}

type stubApplicationLister struct {
	applications []models.ApplicationDetail
}

func (s *stubApplicationLister) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	return s.applications, len(s.applications), nil
}

type stubMinutesRenderer struct {
	data export.MinutesData
}

func (s *stubMinutesRenderer) RenderMinutes(data export.MinutesData) ([]byte, error) {
	s.data = data
	return []byte("%PDF-1.4 minutes"), nil
}

type stubDocumentStore struct {
	filename string
	size     int
}

func (s *stubDocumentStore) Save(filename string, data []byte) (string, error) {
	s.filename = filename
	s.size = len(data)
	return "/var/data/" + filename, nil
}

type selectiveDispatcher struct {
	failFor    map[string]bool
	dispatched []string
}

func (d *selectiveDispatcher) Dispatch(ctx context.Context, notification models.Notification) error {
	if d.failFor[notification.Recipient] {
		return errors.New("smtp connection refused")
	}
	d.dispatched = append(d.dispatched, notification.Recipient)
	return nil
}

func candidateDetail(id string, status models.ApplicationStatus, email string) models.ApplicationDetail {
	return models.ApplicationDetail{
		Application: models.Application{
			ID:        id,
			ProjectID: "p1",
			StudentID: "student-" + id,
			Status:    status,
		},
		StudentEmail: email,
		ProfessorID:  "prof-1",
	}
}

func newSelectionFixture(applications []models.ApplicationDetail, dispatcher Dispatcher) (*SelectionService, *mockSelectionRecordRepo, *stubDocumentStore, *stubMinutesRenderer) {
	projects := &mockProjectRepo{projects: map[string]models.Project{
		"p1": {
			ID:          "p1",
			Title:       "Data Structures Monitoring",
			Department:  "DCC",
			Status:      models.ProjectStatusApproved,
			ProfessorID: "prof-1",
			Year:        2025,
			Semester:    models.SemesterFirst,
		},
	}}
	users := &stubUserReader{users: map[string]*models.User{
		"prof-1": {ID: "prof-1", Email: "prof@dcc.ufba.br", FullName: "Prof One", Role: models.RoleProfessor},
	}}
	ranking := &stubRankProvider{rankings: map[models.VacancyType]*models.Ranking{
		models.VacancyScholarship: {
			ProjectID:   "p1",
			VacancyType: models.VacancyScholarship,
			Candidates: []models.RankedCandidate{
				{ApplicationID: "a1", StudentName: "Ana", StudentRegistration: "2021001", FinalScore: 9.1, Position: 1, Status: models.ApplicationStatusSelectedScholarship},
				{ApplicationID: "a2", StudentName: "Bruno", StudentRegistration: "2021002", FinalScore: 8.4, Position: 2, Status: models.ApplicationStatusSubmitted},
			},
		},
	}}
	records := &mockSelectionRecordRepo{}
	renderer := &stubMinutesRenderer{}
	storage := &stubDocumentStore{}
	lister := &stubApplicationLister{applications: applications}
	svc := NewSelectionService(projects, lister, ranking, records, users, renderer, storage, dispatcher, nil, nil)
	return svc, records, storage, renderer
}

func TestSelectionServiceGenerateMinutes(t *testing.T) {
	svc, records, storage, renderer := newSelectionFixture(nil, &captureDispatcher{})

	record, err := svc.GenerateMinutes(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "p1")
	require.NoError(t, err)
	require.NotNil(t, record.MinutesPath)
	assert.Equal(t, "minutes/p1.pdf", *record.MinutesPath)
	assert.NotNil(t, record.GeneratedAt)

	assert.Equal(t, "minutes/p1.pdf", storage.filename)
	assert.Greater(t, storage.size, 0)
	assert.Equal(t, "Data Structures Monitoring", renderer.data.ProjectTitle)
	assert.Equal(t, "Prof One", renderer.data.ProfessorName)
	assert.Len(t, renderer.data.Candidates, 2)
	assert.Equal(t, "Ana", renderer.data.Candidates[0].StudentName)

	assert.NotNil(t, records.record)
}

func TestSelectionServiceGenerateMinutesForbidden(t *testing.T) {
	svc, _, _, _ := newSelectionFixture(nil, &captureDispatcher{})

	_, err := svc.GenerateMinutes(context.Background(), models.Actor{ID: "prof-2", Role: models.RoleProfessor}, "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSelectionServiceNotifyResults(t *testing.T) {
	applications := []models.ApplicationDetail{
		candidateDetail("a1", models.ApplicationStatusSelectedScholarship, "ana@ufba.br"),
		candidateDetail("a2", models.ApplicationStatusSelectedVolunteer, "bruno@ufba.br"),
		candidateDetail("a3", models.ApplicationStatusRejectedByProfessor, "carla@ufba.br"),
		// Undecided and already-responded candidates are skipped.
		candidateDetail("a4", models.ApplicationStatusSubmitted, "dani@ufba.br"),
		candidateDetail("a5", models.ApplicationStatusAcceptedScholarship, "edu@ufba.br"),
	}
	dispatcher := &selectiveDispatcher{failFor: map[string]bool{"bruno@ufba.br": true}}
	svc, records, _, _ := newSelectionFixture(applications, dispatcher)

	summary, err := svc.NotifyResults(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "p1", "Results are posted on the department board.")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dispatched)
	assert.Equal(t, 1, summary.Failed)
	assert.ElementsMatch(t, []string{"ana@ufba.br", "carla@ufba.br"}, dispatcher.dispatched)

	require.NotNil(t, records.record)
	assert.Equal(t, 2, records.record.NotifiedOK)
	assert.Equal(t, 1, records.record.NotifiedFail)
	assert.NotNil(t, records.record.NotifiedAt)
}

func TestSelectionServiceNotifyResultsAdminAllowed(t *testing.T) {
	dispatcher := &selectiveDispatcher{}
	svc, _, _, _ := newSelectionFixture([]models.ApplicationDetail{
		candidateDetail("a1", models.ApplicationStatusSelectedScholarship, "ana@ufba.br"),
	}, dispatcher)

	summary, err := svc.NotifyResults(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Dispatched)
	assert.Equal(t, 0, summary.Failed)
}
