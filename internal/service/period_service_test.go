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

type mockPeriodRepo struct {
	periods map[string]models.EnrollmentPeriod
}

func (m *mockPeriodRepo) Create(ctx context.Context, period *models.EnrollmentPeriod) error {
	if m.periods == nil {
		m.periods = make(map[string]models.EnrollmentPeriod)
	}
	if period.ID == "" {
		period.ID = "period-new"
	}
	m.periods[period.ID] = *period
	return nil
}

func (m *mockPeriodRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentPeriod, error) {
	if p, ok := m.periods[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error) {
	for _, p := range m.periods {
		if p.Open(at) {
			period := p
			return &period, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockPeriodRepo) ExistsOverlapping(ctx context.Context, year int, semester models.Semester, startsAt, endsAt time.Time, excludeID string) (bool, error) {
	for _, p := range m.periods {
		if p.ID == excludeID || p.Year != year || p.Semester != semester {
			continue
		}
		if startsAt.Before(p.EndsAt) && endsAt.After(p.StartsAt) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPeriodRepo) Update(ctx context.Context, period *models.EnrollmentPeriod) error {
	if _, ok := m.periods[period.ID]; !ok {
		return sql.ErrNoRows
	}
	m.periods[period.ID] = *period
	return nil
}

func (m *mockPeriodRepo) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	var out []models.EnrollmentPeriod
	for _, p := range m.periods {
		out = append(out, p)
	}
	return out, nil
}

func februaryWindow() (time.Time, time.Time) {
	return time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 15, 23, 59, 59, 0, time.UTC)
}

func TestPeriodServiceCreate(t *testing.T) {
	repo := &mockPeriodRepo{}
	svc := NewPeriodService(repo, nil, nil)
	starts, ends := februaryWindow()

	period, err := svc.Create(context.Background(), models.CreatePeriodRequest{
		Year: 2025, Semester: models.SemesterFirst, StartsAt: starts, EndsAt: ends,
	})
	require.NoError(t, err)
	assert.Equal(t, 2025, period.Year)
	assert.Equal(t, models.SemesterFirst, period.Semester)
}

func TestPeriodServiceCreateRejectsOverlap(t *testing.T) {
	starts, ends := februaryWindow()
	repo := &mockPeriodRepo{periods: map[string]models.EnrollmentPeriod{
		"existing": {ID: "existing", Year: 2025, Semester: models.SemesterFirst, StartsAt: starts, EndsAt: ends},
	}}
	svc := NewPeriodService(repo, nil, nil)

	_, err := svc.Create(context.Background(), models.CreatePeriodRequest{
		Year: 2025, Semester: models.SemesterFirst,
		StartsAt: starts.Add(7 * 24 * time.Hour),
		EndsAt:   ends.Add(7 * 24 * time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Another term may reuse the same window.
	_, err = svc.Create(context.Background(), models.CreatePeriodRequest{
		Year: 2025, Semester: models.SemesterSecond, StartsAt: starts, EndsAt: ends,
	})
	require.NoError(t, err)
}

func TestPeriodServiceCreateValidatesWindow(t *testing.T) {
	svc := NewPeriodService(&mockPeriodRepo{}, nil, nil)
	starts, _ := februaryWindow()

	_, err := svc.Create(context.Background(), models.CreatePeriodRequest{
		Year: 2025, Semester: models.SemesterFirst, StartsAt: starts, EndsAt: starts.Add(-time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceUpdate(t *testing.T) {
	starts, ends := februaryWindow()
	repo := &mockPeriodRepo{periods: map[string]models.EnrollmentPeriod{
		"p1": {ID: "p1", Year: 2025, Semester: models.SemesterFirst, StartsAt: starts, EndsAt: ends},
	}}
	svc := NewPeriodService(repo, nil, nil)

	extended := ends.Add(48 * time.Hour)
	period, err := svc.Update(context.Background(), "p1", models.UpdatePeriodRequest{EndsAt: &extended})
	require.NoError(t, err)
	assert.Equal(t, extended, period.EndsAt)

	// The window must stay ordered after a partial update.
	invalid := starts.Add(-time.Hour)
	_, err = svc.Update(context.Background(), "p1", models.UpdatePeriodRequest{EndsAt: &invalid})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceUpdateRejectsOverlap(t *testing.T) {
	starts, ends := februaryWindow()
	repo := &mockPeriodRepo{periods: map[string]models.EnrollmentPeriod{
		"p1": {ID: "p1", Year: 2025, Semester: models.SemesterFirst, StartsAt: starts, EndsAt: ends},
		"p2": {ID: "p2", Year: 2025, Semester: models.SemesterFirst, StartsAt: ends.Add(24 * time.Hour), EndsAt: ends.Add(10 * 24 * time.Hour)},
	}}
	svc := NewPeriodService(repo, nil, nil)

	overlapping := ends.Add(48 * time.Hour)
	_, err := svc.Update(context.Background(), "p1", models.UpdatePeriodRequest{EndsAt: &overlapping})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceCurrent(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockPeriodRepo{periods: map[string]models.EnrollmentPeriod{
		"open":   {ID: "open", Year: 2025, Semester: models.SemesterFirst, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
		"closed": {ID: "closed", Year: 2024, Semester: models.SemesterSecond, StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-24 * time.Hour)},
	}}
	svc := NewPeriodService(repo, nil, nil)

	period, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "open", period.ID)
}

func TestPeriodServiceCurrentNoneOpen(t *testing.T) {
	svc := NewPeriodService(&mockPeriodRepo{}, nil, nil)

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
