package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/service"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/response"
)

// ApplicationHandler exposes application lifecycle endpoints.
type ApplicationHandler struct {
	applications *service.ApplicationService
	documents    *service.DocumentService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications *service.ApplicationService, documents *service.DocumentService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, documents: documents}
}

// Apply godoc
// @Summary Apply to a project
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body models.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req models.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.Apply(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.applications.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Mine godoc
// @Summary List the current student's applications
// @Tags Applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications/mine [get]
func (h *ApplicationHandler) Mine(c *gin.Context) {
	filter := h.parseFilter(c)
	applications, pagination, err := h.applications.MyApplications(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// ListByProject godoc
// @Summary List applications for a project
// @Tags Applications
// @Produce json
// @Param id path string true "Project ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/applications [get]
func (h *ApplicationHandler) ListByProject(c *gin.Context) {
	filter := h.parseFilter(c)
	applications, pagination, err := h.applications.ListByProject(c.Request.Context(), actorFromContext(c), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Evaluate godoc
// @Summary Record evaluation grades for an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.EvaluateApplicationRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/evaluate [post]
func (h *ApplicationHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.Evaluate(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Select godoc
// @Summary Select a candidate for a vacancy
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.SelectApplicationRequest true "Selection payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/select [post]
func (h *ApplicationHandler) Select(c *gin.Context) {
	var req models.SelectApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.Select(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Reject godoc
// @Summary Reject a candidate
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	application, err := h.applications.RejectByProfessor(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Respond godoc
// @Summary Accept or decline an offered vacancy
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.RespondApplicationRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/respond [post]
func (h *ApplicationHandler) Respond(c *gin.Context) {
	var req models.RespondApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.applications.Respond(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// CommitmentTerm godoc
// @Summary Render the commitment term and return a signed download link
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/commitment-term [post]
func (h *ApplicationHandler) CommitmentTerm(c *gin.Context) {
	doc, err := h.documents.RenderCommitmentTerm(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

func (h *ApplicationHandler) parseFilter(c *gin.Context) models.ApplicationFilter {
	var filter models.ApplicationFilter
	filter.Status = models.ApplicationStatus(c.Query("status"))
	filter.PeriodID = c.Query("periodId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
