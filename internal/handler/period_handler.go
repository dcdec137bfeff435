package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dcc-ufba/monitoria-api/internal/models"
	"github.com/dcc-ufba/monitoria-api/internal/service"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/response"
)

// PeriodHandler exposes enrollment period endpoints.
type PeriodHandler struct {
	periods *service.PeriodService
}

// NewPeriodHandler constructs PeriodHandler.
func NewPeriodHandler(periods *service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// List godoc
// @Summary List enrollment periods
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	periods, err := h.periods.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// Current godoc
// @Summary Get the currently open enrollment period
// @Tags Periods
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /periods/current [get]
func (h *PeriodHandler) Current(c *gin.Context) {
	period, err := h.periods.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Create godoc
// @Summary Open a new enrollment period
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body models.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Router /periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	var req models.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.periods.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// Update godoc
// @Summary Adjust an enrollment period window
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body models.UpdatePeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Router /periods/{id} [put]
func (h *PeriodHandler) Update(c *gin.Context) {
	var req models.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.periods.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}
