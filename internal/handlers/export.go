// export.go serves completed conversions as downloadable files.
//
// Supported formats:
//   - csv  — All tables in one CSV (a leading table-index column when
//     more than one table is present)
//   - xlsx — One worksheet per table plus a Metadata sheet
//   - json — Full table payload with types, sources, and quality
//
// Go Pattern: Each format is its own function behind a switch — adding a
// format is one case plus one writer in services/export.
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/export"
)

// ExportConversion renders a completed conversion in the requested format.
// GET /api/v1/conversions/:id/export?format=csv|xlsx|json
func (h *Handler) ExportConversion(c *gin.Context) {
	id := c.Param("id")
	format := c.DefaultQuery("format", "csv")

	// Validate format before doing any database work
	validFormats := map[string]bool{"csv": true, "xlsx": true, "json": true}
	if !validFormats[format] {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_format",
			Message: "Supported formats: csv, xlsx, json",
			Code:    http.StatusBadRequest,
		})
		return
	}

	conversion, err := h.DB.GetConversion(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Conversion not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	if conversion.Status != models.StatusCompleted {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_ready",
			Message: "Conversion is not completed (status: " + string(conversion.Status) + ")",
			Code:    http.StatusNotFound,
		})
		return
	}

	result, err := h.Results.Load(id)
	if err != nil {
		c.JSON(http.StatusGone, models.ErrorResponse{
			Error:   "result_expired",
			Message: "The extracted tables for this conversion are no longer stored",
			Code:    http.StatusGone,
		})
		return
	}

	filename := sanitizeFilename(strings.TrimSuffix(conversion.OriginalName, ".pdf"))
	if filename == "" {
		filename = conversion.ID
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		err = export.WriteCSV(&buf, result.Tables)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		err = export.WriteExcel(&buf, result.Tables)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "json":
		err = export.WriteJSON(&buf, result.Tables)
		contentType = "application/json; charset=utf-8"
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "export_error",
			Message: "Failed to render export: " + err.Error(),
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, filename, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// sanitizeFilename removes characters that aren't safe for the
// Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
