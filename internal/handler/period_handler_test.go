package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/service"
)

type periodRepoStub struct {
	periods map[string]models.EnrollmentPeriod
}

func (m *periodRepoStub) Create(ctx context.Context, period *models.EnrollmentPeriod) error {
	if m.periods == nil {
		m.periods = make(map[string]models.EnrollmentPeriod)
	}
	if period.ID == "" {
		period.ID = "period-new"
	}
	m.periods[period.ID] = *period
	return nil
}

func (m *periodRepoStub) FindByID(ctx context.Context, id string) (*models.EnrollmentPeriod, error) {
	if p, ok := m.periods[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *periodRepoStub) FindOpen(ctx context.Context, at time.Time) (*models.EnrollmentPeriod, error) {
	for _, p := range m.periods {
		if p.Open(at) {
			period := p
			return &period, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *periodRepoStub) ExistsOverlapping(ctx context.Context, year int, semester models.Semester, startsAt, endsAt time.Time, excludeID string) (bool, error) {
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

func (m *periodRepoStub) Update(ctx context.Context, period *models.EnrollmentPeriod) error {
	if _, ok := m.periods[period.ID]; !ok {
		return sql.ErrNoRows
	}
	m.periods[period.ID] = *period
	return nil
}

func (m *periodRepoStub) List(ctx context.Context) ([]models.EnrollmentPeriod, error) {
	var out []models.EnrollmentPeriod
	for _, p := range m.periods {
		out = append(out, p)
	}
	return out, nil
}

func newPeriodHandlerTest(repo *periodRepoStub) *PeriodHandler {
	return NewPeriodHandler(service.NewPeriodService(repo, nil, nil))
}

func TestPeriodHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &periodRepoStub{}
	handler := newPeriodHandlerTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.CreatePeriodRequest{
		Year:     2025,
		Semester: models.SemesterFirst,
		StartsAt: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
	})
	req, _ := http.NewRequest(http.MethodPost, "/periods", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, repo.periods, 1)
}

func TestPeriodHandlerCreateOverlapConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &periodRepoStub{periods: map[string]models.EnrollmentPeriod{
		"existing": {
			ID: "existing", Year: 2025, Semester: models.SemesterFirst,
			StartsAt: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
		},
	}}
	handler := newPeriodHandlerTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.CreatePeriodRequest{
		Year:     2025,
		Semester: models.SemesterFirst,
		StartsAt: time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC),
	})
	req, _ := http.NewRequest(http.MethodPost, "/periods", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPeriodHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPeriodHandlerTest(&periodRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/periods", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPeriodHandlerCurrentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPeriodHandlerTest(&periodRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/periods/current", nil)
	c.Request = req

	handler.Current(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPeriodHandlerCurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now().UTC()
	repo := &periodRepoStub{periods: map[string]models.EnrollmentPeriod{
		"open": {ID: "open", Year: 2025, Semester: models.SemesterFirst, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)},
	}}
	handler := newPeriodHandlerTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/periods/current", nil)
	c.Request = req

	handler.Current(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"open"`)
}
