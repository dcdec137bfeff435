package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
)

type mockProjectRepo struct {
	projects map[string]models.Project

	approved  *struct{ granted int }
	rejected  *string
	deleted   []string
	submitted bool
	signed    bool
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if m.projects == nil {
		m.projects = make(map[string]models.Project)
	}
	if project.ID == "" {
		project.ID = "new-project"
	}
	m.projects[project.ID] = *project
	return nil
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProjectRepo) List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectDetail, int, error) {
	var list []models.ProjectDetail
	for _, p := range m.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.ProfessorID != "" && p.ProfessorID != filter.ProfessorID {
			continue
		}
		list = append(list, models.ProjectDetail{Project: p})
	}
	return list, len(list), nil
}

func (m *mockProjectRepo) UpdateDraft(ctx context.Context, project *models.Project) error {
	p, ok := m.projects[project.ID]
	if !ok || !p.Status.Editable() {
		return sql.ErrNoRows
	}
	m.projects[project.ID] = *project
	return nil
}

func (m *mockProjectRepo) UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ProjectStatus, at time.Time) error {
	p, ok := m.projects[id]
	if !ok || p.Status != from {
		return sql.ErrNoRows
	}
	p.Status = to
	m.projects[id] = p
	m.submitted = true
	return nil
}

func (m *mockProjectRepo) Approve(ctx context.Context, id string, granted int, feedback *string, at time.Time) error {
	p, ok := m.projects[id]
	if !ok || p.Status != models.ProjectStatusSubmitted {
		return sql.ErrNoRows
	}
	p.Status = models.ProjectStatusApproved
	p.GrantedScholarships = &granted
	m.projects[id] = p
	m.approved = &struct{ granted int }{granted}
	return nil
}

func (m *mockProjectRepo) Reject(ctx context.Context, id, feedback string, at time.Time) error {
	p, ok := m.projects[id]
	if !ok || p.Status != models.ProjectStatusSubmitted {
		return sql.ErrNoRows
	}
	p.Status = models.ProjectStatusRejected
	p.AdminFeedback = &feedback
	m.projects[id] = p
	m.rejected = &feedback
	return nil
}

func (m *mockProjectRepo) SetProfessorSignature(ctx context.Context, id, payload string, at time.Time) error {
	p, ok := m.projects[id]
	if !ok || p.ProfessorSignature != nil {
		return sql.ErrNoRows
	}
	p.ProfessorSignature = &payload
	p.SignedAt = &at
	m.projects[id] = p
	m.signed = true
	return nil
}

func (m *mockProjectRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if _, ok := m.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.projects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSignatureGate struct {
	ready     bool
	recordErr error
	recorded  int
}

func (m *mockSignatureGate) Record(ctx context.Context, entityType models.SignatureEntityType, entityID string, role models.SignatureRole, signerID string, req models.RecordSignatureRequest) (*models.SignatureRecord, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	m.recorded++
	m.ready = true
	return &models.SignatureRecord{EntityType: entityType, EntityID: entityID, Role: role, SignerID: signerID, Payload: req.Payload}, nil
}

func (m *mockSignatureGate) IsReady(ctx context.Context, entityType models.SignatureEntityType, entityID string, requiredRole models.SignatureRole) (bool, error) {
	return m.ready, nil
}

type stubUserReader struct {
	users map[string]*models.User
}

func (m *stubUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type captureDispatcher struct {
	dispatched []models.Notification
	err        error
}

func (m *captureDispatcher) Dispatch(ctx context.Context, notification models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.dispatched = append(m.dispatched, notification)
	return nil
}

func submittedProject(id, professorID string, requested int) models.Project {
	return models.Project{
		ID:                    id,
		Title:                 "Data Structures Monitoring",
		Status:                models.ProjectStatusSubmitted,
		ProfessorID:           professorID,
		RequestedScholarships: requested,
		RequestedVolunteers:   2,
		Year:                  2025,
		Semester:              models.SemesterFirst,
	}
}

func newProjectService(repo *mockProjectRepo, gate *mockSignatureGate, users *stubUserReader, dispatcher *captureDispatcher) *ProjectService {
	if users == nil {
		users = &stubUserReader{users: map[string]*models.User{
			"prof-1": {ID: "prof-1", Email: "prof@dcc.ufba.br", FullName: "Prof One", Role: models.RoleProfessor},
		}}
	}
	return NewProjectService(repo, gate, users, dispatcher, nil, nil, nil)
}

func TestProjectServiceCreateDraft(t *testing.T) {
	repo := &mockProjectRepo{}
	svc := newProjectService(repo, &mockSignatureGate{}, nil, &captureDispatcher{})

	project, err := svc.Create(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, models.CreateProjectRequest{
		Title:                 "Data Structures Monitoring",
		Description:           "Weekly assistance sessions",
		Department:            "DCC",
		Year:                  2025,
		Semester:              models.SemesterFirst,
		PropositionType:       models.PropositionIndividual,
		RequestedScholarships: 2,
		RequestedVolunteers:   1,
		WeeklyHours:           12,
		WeekCount:             16,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
	assert.Equal(t, "prof-1", project.ProfessorID)
}

func TestProjectServiceSubmitRequiresSignature(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": {ID: "p1", Status: models.ProjectStatusDraft, ProfessorID: "prof-1"},
	}}
	svc := newProjectService(repo, &mockSignatureGate{ready: false}, nil, &captureDispatcher{})

	_, err := svc.Submit(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.submitted)
}

func TestProjectServiceSignThenSubmit(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": {ID: "p1", Status: models.ProjectStatusPendingSignature, ProfessorID: "prof-1"},
	}}
	gate := &mockSignatureGate{}
	svc := newProjectService(repo, gate, nil, &captureDispatcher{})
	actor := models.Actor{ID: "prof-1", Role: models.RoleProfessor}

	_, err := svc.RecordSignature(context.Background(), actor, "p1", models.RecordSignatureRequest{Payload: "signature-blob"})
	require.NoError(t, err)
	assert.True(t, repo.signed)
	assert.Equal(t, 1, gate.recorded)

	project, err := svc.Submit(context.Background(), actor, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusSubmitted, project.Status)
}

func TestProjectServiceSubmitNotOwner(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": {ID: "p1", Status: models.ProjectStatusDraft, ProfessorID: "prof-1"},
	}}
	svc := newProjectService(repo, &mockSignatureGate{ready: true}, nil, &captureDispatcher{})

	_, err := svc.Submit(context.Background(), models.Actor{ID: "prof-2", Role: models.RoleProfessor}, "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceApproveCapsGrant(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": submittedProject("p1", "prof-1", 2),
	}}
	dispatcher := &captureDispatcher{}
	svc := newProjectService(repo, &mockSignatureGate{ready: true}, nil, dispatcher)
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}

	project, err := svc.Approve(context.Background(), admin, "p1", models.ApproveProjectRequest{GrantedScholarships: 1})
	require.NoError(t, err)
	require.NotNil(t, project.GrantedScholarships)
	assert.Equal(t, 1, *project.GrantedScholarships)
	assert.Equal(t, models.ProjectStatusApproved, project.Status)
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, models.NotificationProjectApproved, dispatcher.dispatched[0].Kind)
}

func TestProjectServiceApproveRejectsExcessGrant(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": submittedProject("p1", "prof-1", 2),
	}}
	svc := newProjectService(repo, &mockSignatureGate{ready: true}, nil, &captureDispatcher{})

	_, err := svc.Approve(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, "p1", models.ApproveProjectRequest{GrantedScholarships: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.approved)
}

func TestProjectServiceApproveRequiresAdmin(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": submittedProject("p1", "prof-1", 2),
	}}
	svc := newProjectService(repo, &mockSignatureGate{ready: true}, nil, &captureDispatcher{})

	_, err := svc.Approve(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "p1", models.ApproveProjectRequest{GrantedScholarships: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceRejectRequiresFeedback(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": submittedProject("p1", "prof-1", 2),
	}}
	svc := newProjectService(repo, &mockSignatureGate{ready: true}, nil, &captureDispatcher{})
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}

	_, err := svc.Reject(context.Background(), admin, "p1", models.RejectProjectRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.rejected)

	project, err := svc.Reject(context.Background(), admin, "p1", models.RejectProjectRequest{Feedback: "scope too broad"})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusRejected, project.Status)
	require.NotNil(t, repo.rejected)
	assert.Equal(t, "scope too broad", *repo.rejected)
}

func TestProjectServiceUpdateOnlyDraft(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"p1": submittedProject("p1", "prof-1", 2),
	}}
	svc := newProjectService(repo, &mockSignatureGate{}, nil, &captureDispatcher{})
	title := "New title"

	_, err := svc.Update(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, "p1", models.UpdateProjectRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceSoftDeletePolicy(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"draft":     {ID: "draft", Status: models.ProjectStatusDraft, ProfessorID: "prof-1"},
		"submitted": submittedProject("submitted", "prof-1", 2),
	}}
	svc := newProjectService(repo, &mockSignatureGate{}, nil, &captureDispatcher{})
	professor := models.Actor{ID: "prof-1", Role: models.RoleProfessor}

	err := svc.SoftDelete(context.Background(), professor, "submitted")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.SoftDelete(context.Background(), professor, "draft"))

	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	require.NoError(t, svc.SoftDelete(context.Background(), admin, "submitted"))
	assert.ElementsMatch(t, []string{"draft", "submitted"}, repo.deleted)
}

func TestProjectServiceListScopesByRole(t *testing.T) {
	repo := &mockProjectRepo{projects: map[string]models.Project{
		"approved": {ID: "approved", Status: models.ProjectStatusApproved, ProfessorID: "prof-1"},
		"draft":    {ID: "draft", Status: models.ProjectStatusDraft, ProfessorID: "prof-1"},
		"other":    {ID: "other", Status: models.ProjectStatusDraft, ProfessorID: "prof-2"},
	}}
	svc := newProjectService(repo, &mockSignatureGate{}, nil, &captureDispatcher{})

	student, _, err := svc.List(context.Background(), models.Actor{ID: "s1", Role: models.RoleStudent}, models.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, student, 1)
	assert.Equal(t, "approved", student[0].ID)

	own, _, err := svc.List(context.Background(), models.Actor{ID: "prof-1", Role: models.RoleProfessor}, models.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)
}

func TestProjectServiceImport(t *testing.T) {
	repo := &mockProjectRepo{}
	users := &stubUserReader{users: map[string]*models.User{
		"3f1f2a44-9f5e-4b13-9c70-111111111111": {ID: "3f1f2a44-9f5e-4b13-9c70-111111111111", Email: "prof@dcc.ufba.br", Role: models.RoleProfessor},
	}}
	dispatcher := &captureDispatcher{}
	svc := newProjectService(repo, &mockSignatureGate{}, users, dispatcher)

	req := models.ImportProjectRequest{
		CreateProjectRequest: models.CreateProjectRequest{
			Title:           "Imported Project",
			Description:     "Registered by the program office",
			Department:      "DCC",
			Year:            2025,
			Semester:        models.SemesterFirst,
			PropositionType: models.PropositionCollective,
			WeeklyHours:     12,
			WeekCount:       16,
		},
		ProfessorID: "3f1f2a44-9f5e-4b13-9c70-111111111111",
	}

	_, err := svc.Import(context.Background(), models.Actor{ID: "prof-x", Role: models.RoleProfessor}, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	project, err := svc.Import(context.Background(), models.Actor{ID: "admin-1", Role: models.RoleAdmin}, req)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusPendingSignature, project.Status)
	require.Len(t, dispatcher.dispatched, 1)
	assert.Equal(t, models.NotificationSignatureRequired, dispatcher.dispatched[0].Kind)
}
