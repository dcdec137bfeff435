package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/repository"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

const applyProjectID = "7e6f0c9a-4d2b-4c31-8f7a-222222222222"

type mockApplicationRepo struct {
	details map[string]*models.ApplicationDetail

	createErr       error
	selectErr       error
	acceptErr       error
	heldScholarship bool

	created  *models.Application
	vacancy  *models.Vacancy
	declined *string
}

func (m *mockApplicationRepo) Create(ctx context.Context, application *models.Application) error {
	if m.createErr != nil {
		return m.createErr
	}
	application.ID = "app-new"
	m.created = application
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if d, ok := m.details[id]; ok {
		app := d.Application
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if d, ok := m.details[id]; ok {
		detail := *d
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var list []models.ApplicationDetail
	for _, d := range m.details {
		if filter.StudentID != "" && d.StudentID != filter.StudentID {
			continue
		}
		if filter.ProjectID != "" && d.ProjectID != filter.ProjectID {
			continue
		}
		list = append(list, *d)
	}
	return list, len(list), nil
}

func (m *mockApplicationRepo) UpdateEvaluation(ctx context.Context, id string, discipline, selection, coefficient, finalScore float64) error {
	d, ok := m.details[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.DisciplineGrade = &discipline
	d.SelectionGrade = &selection
	d.AcademicCoefficient = &coefficient
	d.FinalScore = &finalScore
	return nil
}

func (m *mockApplicationRepo) UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) error {
	d, ok := m.details[id]
	if !ok || d.Status != from {
		return sql.ErrNoRows
	}
	d.Status = to
	return nil
}

func (m *mockApplicationRepo) DeclineIfCurrent(ctx context.Context, id string, from models.ApplicationStatus, reason string, at time.Time) error {
	d, ok := m.details[id]
	if !ok || d.Status != from {
		return sql.ErrNoRows
	}
	d.Status = models.ApplicationStatusRejectedByStudent
	d.DeclineReason = &reason
	m.declined = &reason
	return nil
}

func (m *mockApplicationRepo) SelectWithQuota(ctx context.Context, applicationID string, vacancyType models.VacancyType, at time.Time) error {
	if m.selectErr != nil {
		return m.selectErr
	}
	d, ok := m.details[applicationID]
	if !ok || d.Status != models.ApplicationStatusSubmitted {
		return repository.ErrStatusConflict
	}
	if vacancyType == models.VacancyScholarship {
		d.Status = models.ApplicationStatusSelectedScholarship
	} else {
		d.Status = models.ApplicationStatusSelectedVolunteer
	}
	return nil
}

func (m *mockApplicationRepo) AcceptWithVacancy(ctx context.Context, application *models.Application, vacancy *models.Vacancy) error {
	if m.acceptErr != nil {
		return m.acceptErr
	}
	next, ok := models.NextApplicationStatus(application.Status, models.ApplicationActionAccept)
	if !ok {
		return repository.ErrStatusConflict
	}
	m.details[application.ID].Status = next
	m.vacancy = vacancy
	return nil
}

func (m *mockApplicationRepo) HasAcceptedScholarship(ctx context.Context, studentID string, year int, semester models.Semester) (bool, error) {
	return m.heldScholarship, nil
}

type stubPeriodReader struct {
	period *models.EnrollmentPeriod
}

func (s *stubPeriodReader) FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error) {
	if s.period == nil {
		return nil, sql.ErrNoRows
	}
	return s.period, nil
}

type stubScorePolicy struct {
	invalidated []string
}

func (s *stubScorePolicy) Score(discipline, selection, coefficient float64) float64 {
	return MeanScorer{}.Score(discipline, selection, coefficient)
}

func (s *stubScorePolicy) Invalidate(ctx context.Context, projectID string) {
	s.invalidated = append(s.invalidated, projectID)
}

type applicationFixture struct {
	repo     *mockApplicationRepo
	projects *mockProjectRepo
	periods  *stubPeriodReader
	ranking  *stubScorePolicy
	svc      *ApplicationService
}

func newApplicationFixture() *applicationFixture {
	granted := 1
	f := &applicationFixture{
		repo: &mockApplicationRepo{details: map[string]*models.ApplicationDetail{}},
		projects: &mockProjectRepo{projects: map[string]models.Project{
			applyProjectID: {
				ID:                    applyProjectID,
				Title:                 "Data Structures Monitoring",
				Status:                models.ProjectStatusApproved,
				ProfessorID:           "prof-1",
				Year:                  2025,
				Semester:              models.SemesterFirst,
				RequestedScholarships: 2,
				GrantedScholarships:   &granted,
				RequestedVolunteers:   1,
			},
		}},
		periods: &stubPeriodReader{period: &models.EnrollmentPeriod{
			ID:       "period-1",
			Year:     2025,
			Semester: models.SemesterFirst,
			StartsAt: time.Now().UTC().Add(-time.Hour),
			EndsAt:   time.Now().UTC().Add(time.Hour),
		}},
		ranking: &stubScorePolicy{},
	}
	coefficient := 8.7
	users := &stubUserReader{users: map[string]*models.User{
		"student-1": {ID: "student-1", Email: "student@dcc.ufba.br", Role: models.RoleStudent, AcademicCoefficient: &coefficient},
	}}
	f.svc = NewApplicationService(f.repo, f.projects, f.periods, f.ranking, users, &captureDispatcher{}, nil, nil, nil)
	return f
}

func (f *applicationFixture) seed(id string, status models.ApplicationStatus, preference models.VacancyPreference, evaluated bool) {
	detail := &models.ApplicationDetail{
		Application: models.Application{
			ID:         id,
			ProjectID:  applyProjectID,
			StudentID:  "student-1",
			PeriodID:   "period-1",
			Status:     status,
			Preference: preference,
		},
		ProfessorID: "prof-1",
	}
	if evaluated {
		grade := 8.0
		detail.DisciplineGrade = &grade
		detail.SelectionGrade = &grade
		detail.AcademicCoefficient = &grade
		detail.FinalScore = &grade
	}
	f.repo.details[id] = detail
}

func TestApplicationServiceApply(t *testing.T) {
	f := newApplicationFixture()
	student := models.Actor{ID: "student-1", Role: models.RoleStudent}

	application, err := f.svc.Apply(context.Background(), student, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferAny,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSubmitted, application.Status)
	assert.Equal(t, "period-1", application.PeriodID)
	require.NotNil(t, application.AcademicCoefficient)
	assert.Equal(t, 8.7, *application.AcademicCoefficient)
}

func TestApplicationServiceApplyWindowClosed(t *testing.T) {
	f := newApplicationFixture()
	f.periods.period = nil

	_, err := f.svc.Apply(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferAny,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceApplyProjectNotApproved(t *testing.T) {
	f := newApplicationFixture()
	project := f.projects.projects[applyProjectID]
	project.Status = models.ProjectStatusSubmitted
	f.projects.projects[applyProjectID] = project

	_, err := f.svc.Apply(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferAny,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceApplyTermMismatch(t *testing.T) {
	f := newApplicationFixture()
	f.periods.period.Semester = models.SemesterSecond

	_, err := f.svc.Apply(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferAny,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrWindowClosed.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceApplyNoCapacity(t *testing.T) {
	f := newApplicationFixture()
	none := 0
	project := f.projects.projects[applyProjectID]
	project.GrantedScholarships = &none
	f.projects.projects[applyProjectID] = project

	_, err := f.svc.Apply(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferScholarship,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceApplyDuplicate(t *testing.T) {
	f := newApplicationFixture()
	f.repo.createErr = &pq.Error{Code: "23505"}

	_, err := f.svc.Apply(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, models.ApplyRequest{
		ProjectID:  applyProjectID,
		Preference: models.PreferAny,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateApplication.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceEvaluate(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferAny, false)
	professor := models.Actor{ID: "prof-1", Role: models.RoleProfessor}

	_, err := f.svc.Evaluate(context.Background(), models.Actor{ID: "prof-2", Role: models.RoleProfessor}, "app-1", models.EvaluateApplicationRequest{
		DisciplineGrade: 9, SelectionGrade: 8, AcademicCoefficient: 7,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	application, err := f.svc.Evaluate(context.Background(), professor, "app-1", models.EvaluateApplicationRequest{
		DisciplineGrade: 9, SelectionGrade: 8, AcademicCoefficient: 7,
	})
	require.NoError(t, err)
	require.NotNil(t, application.FinalScore)
	assert.Equal(t, 8.0, *application.FinalScore)
	assert.Equal(t, []string{applyProjectID}, f.ranking.invalidated)
}

func TestApplicationServiceEvaluateOnlySubmitted(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)

	_, err := f.svc.Evaluate(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1", models.EvaluateApplicationRequest{
		DisciplineGrade: 9, SelectionGrade: 8, AcademicCoefficient: 7,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSelect(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferAny, true)

	application, err := f.svc.Select(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1", models.SelectApplicationRequest{
		VacancyType: models.VacancyScholarship,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSelectedScholarship, application.Status)
}

func TestApplicationServiceSelectPreferenceMismatch(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferVolunteer, true)

	_, err := f.svc.Select(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1", models.SelectApplicationRequest{
		VacancyType: models.VacancyScholarship,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSelectRequiresEvaluation(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferAny, false)

	_, err := f.svc.Select(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1", models.SelectApplicationRequest{
		VacancyType: models.VacancyScholarship,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceSelectQuotaReached(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferAny, true)
	f.repo.selectErr = repository.ErrQuotaReached

	_, err := f.svc.Select(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1", models.SelectApplicationRequest{
		VacancyType: models.VacancyScholarship,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceRejectByProfessor(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSubmitted, models.PreferAny, true)

	application, err := f.svc.RejectByProfessor(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejectedByProfessor, application.Status)

	_, err = f.svc.RejectByProfessor(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceRespondDecline(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)
	student := models.Actor{ID: "student-1", Role: models.RoleStudent}

	_, err := f.svc.Respond(context.Background(), student, "app-1", models.RespondApplicationRequest{Accept: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	reason := "accepted another position"
	application, err := f.svc.Respond(context.Background(), student, "app-1", models.RespondApplicationRequest{Accept: false, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejectedByStudent, application.Status)
	require.NotNil(t, f.repo.declined)
	assert.Equal(t, reason, *f.repo.declined)
}

func TestApplicationServiceRespondAccept(t *testing.T) {
	f := newApplicationFixture()
	f.seed("1a2b3c4d-0000-4000-8000-333333333333", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)
	student := models.Actor{ID: "student-1", Role: models.RoleStudent}

	application, err := f.svc.Respond(context.Background(), student, "1a2b3c4d-0000-4000-8000-333333333333", models.RespondApplicationRequest{Accept: true})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAcceptedScholarship, application.Status)

	require.NotNil(t, f.repo.vacancy)
	assert.Equal(t, models.VacancyScholarship, f.repo.vacancy.Type)
	assert.Equal(t, "20251-1a2b3c4d", f.repo.vacancy.TermNumber)
	start, end := models.SemesterBounds(2025, models.SemesterFirst)
	assert.Equal(t, start, f.repo.vacancy.StartDate)
	assert.Equal(t, end, f.repo.vacancy.EndDate)
}

func TestApplicationServiceRespondAcceptScholarshipHeld(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)
	f.repo.heldScholarship = true

	_, err := f.svc.Respond(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "app-1", models.RespondApplicationRequest{Accept: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.vacancy)
}

func TestApplicationServiceRespondAcceptVolunteerSkipsHoldingCheck(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedVolunteer, models.PreferAny, true)
	f.repo.heldScholarship = true

	application, err := f.svc.Respond(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "app-1", models.RespondApplicationRequest{Accept: true})
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAcceptedVolunteer, application.Status)
	assert.Equal(t, models.VacancyVolunteer, f.repo.vacancy.Type)
}

func TestApplicationServiceRespondAcceptConflict(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)
	f.repo.acceptErr = repository.ErrStatusConflict

	_, err := f.svc.Respond(context.Background(), models.Actor{ID: "student-1", Role: models.RoleStudent}, "app-1", models.RespondApplicationRequest{Accept: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApplicationServiceRespondNotOwner(t *testing.T) {
	f := newApplicationFixture()
	f.seed("app-1", models.ApplicationStatusSelectedScholarship, models.PreferAny, true)

	_, err := f.svc.Respond(context.Background(), models.Actor{ID: "student-2", Role: models.RoleStudent}, "app-1", models.RespondApplicationRequest{Accept: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
