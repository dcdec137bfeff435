package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/service"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/response"
)

// ProjectHandler exposes project lifecycle endpoints.
type ProjectHandler struct {
	projects  *service.ProjectService
	ranking   *service.RankingService
	selection *service.SelectionService
	documents *service.DocumentService
}

// NewProjectHandler constructs ProjectHandler.
func NewProjectHandler(projects *service.ProjectService, ranking *service.RankingService, selection *service.SelectionService, documents *service.DocumentService) *ProjectHandler {
	return &ProjectHandler{projects: projects, ranking: ranking, selection: selection, documents: documents}
}

// List godoc
// @Summary List projects
// @Tags Projects
// @Produce json
// @Param search query string false "Search by title or description"
// @Param status query string false "Filter by status"
// @Param year query int false "Filter by year"
// @Param semester query string false "Filter by semester"
// @Param department query string false "Filter by department"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var filter models.ProjectFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Status = models.ProjectStatus(c.Query("status"))
	filter.Semester = models.Semester(c.Query("semester"))
	filter.Department = c.Query("department")
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
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	projects, pagination, err := h.projects.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Get godoc
// @Summary Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Create godoc
// @Summary Create project draft
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body models.CreateProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Import godoc
// @Summary Import a pre-approved project proposal
// @Description Registers a proposal on behalf of a professor, pending their signature
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body models.ImportProjectRequest true "Import payload"
// @Success 201 {object} response.Envelope
// @Router /projects/import [post]
func (h *ProjectHandler) Import(c *gin.Context) {
	var req models.ImportProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Import(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update godoc
// @Summary Update project draft
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.UpdateProjectRequest true "Project payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Sign godoc
// @Summary Record the professor's signature on a proposal
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.RecordSignatureRequest true "Signature payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/sign [post]
func (h *ProjectHandler) Sign(c *gin.Context) {
	var req models.RecordSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.RecordSignature(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Submit godoc
// @Summary Submit a signed project for review
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/submit [post]
func (h *ProjectHandler) Submit(c *gin.Context) {
	project, err := h.projects.Submit(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Approve godoc
// @Summary Approve a submitted project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.ApproveProjectRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/approve [post]
func (h *ProjectHandler) Approve(c *gin.Context) {
	var req models.ApproveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Reject godoc
// @Summary Reject a submitted project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.RejectProjectRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/reject [post]
func (h *ProjectHandler) Reject(c *gin.Context) {
	var req models.RejectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	project, err := h.projects.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Soft delete a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 204 {object} response.Envelope
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.SoftDelete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Ranking godoc
// @Summary Rank candidates for a project vacancy type
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param type query string true "Vacancy type (SCHOLARSHIP or VOLUNTEER)"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/ranking [get]
func (h *ProjectHandler) Ranking(c *gin.Context) {
	vacancyType := models.VacancyType(c.DefaultQuery("type", string(models.VacancyScholarship)))
	if vacancyType != models.VacancyScholarship && vacancyType != models.VacancyVolunteer {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be SCHOLARSHIP or VOLUNTEER"))
		return
	}

	if _, err := h.projects.Get(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	ranking, err := h.ranking.RankCandidates(c.Request.Context(), c.Param("id"), vacancyType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, nil)
}

// GenerateMinutes godoc
// @Summary Generate the selection minutes document
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/minutes [post]
func (h *ProjectHandler) GenerateMinutes(c *gin.Context) {
	record, err := h.selection.GenerateMinutes(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// NotifyResults godoc
// @Summary Notify candidates of selection results
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body object false "Optional custom message"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/notify-results [post]
func (h *ProjectHandler) NotifyResults(c *gin.Context) {
	var payload struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&payload)

	summary, err := h.selection.NotifyResults(c.Request.Context(), actorFromContext(c), c.Param("id"), payload.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ProposalDocument godoc
// @Summary Render the proposal document and return a signed download link
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id}/proposal-document [post]
func (h *ProjectHandler) ProposalDocument(c *gin.Context) {
	doc, err := h.documents.RenderProposal(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}
