// analyze.go probes a PDF with every available backend without storing
// anything, so callers can pick a method before converting.
//
// POST /api/v1/analyze
package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// Analyze uploads a PDF and reports per-backend table counts and quality
// scores plus a recommended method. Nothing is persisted.
// POST /api/v1/analyze
func (h *Handler) Analyze(c *gin.Context) {
	up, _, ok := h.receiveUpload(c)
	if !ok {
		return
	}
	defer os.Remove(up.path)

	analysis, err := h.Pipeline.Analyze(c.Request.Context(), up.document)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "analysis_failed",
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
		return
	}

	c.JSON(http.StatusOK, analysis)
}
