package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/service"
	"github.com/dcc-ufba/monitoria-api/pkg/response"
)

// VacancyHandler exposes vacancy read endpoints.
type VacancyHandler struct {
	vacancies *service.VacancyService
}

// NewVacancyHandler constructs VacancyHandler.
func NewVacancyHandler(vacancies *service.VacancyService) *VacancyHandler {
	return &VacancyHandler{vacancies: vacancies}
}

// List godoc
// @Summary List occupied vacancies
// @Tags Vacancies
// @Produce json
// @Param projectId query string false "Filter by project"
// @Param type query string false "Filter by vacancy type"
// @Param year query int false "Filter by year"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /vacancies [get]
func (h *VacancyHandler) List(c *gin.Context) {
	var filter models.VacancyFilter
	filter.ProjectID = c.Query("projectId")
	filter.Type = models.VacancyType(c.Query("type"))
	filter.Semester = models.Semester(c.Query("semester"))
	if year := c.Query("year"); year != "" {
		if v, err := strconv.Atoi(year); err == nil {
			filter.Year = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	vacancies, pagination, err := h.vacancies.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vacancies, pagination)
}
