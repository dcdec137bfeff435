package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dcc-ufba/monitoria-api/internal/service"
	appErrors "github.com/dcc-ufba/monitoria-api/pkg/errors"
	"github.com/dcc-ufba/monitoria-api/pkg/response"
)

// DocumentHandler serves rendered documents through signed tokens.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Download godoc
// @Summary Download a rendered document
// @Description Streams the PDF referenced by a signed token
// @Tags Documents
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /documents/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, err := h.documents.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "inline")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
