// convert.go handles the PDF table extraction endpoint.
//
// POST /api/v1/convert — Upload a PDF, extract its tables synchronously
//
// Form fields:
//   - file          (required) the PDF
//   - pages         page selector, e.g. "1,3,5-7" (default: all pages)
//   - method        "auto" or a specific backend id (default: auto)
//   - merge_similar merge structurally equivalent tables across pages
package handlers

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/middleware"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
	"github.com/fileto-labs/pdf-tables-api/internal/services/pipeline"
)

// ConvertResponse returns the stored conversion record together with the
// extracted tables.
type ConvertResponse struct {
	Conversion models.Conversion    `json:"conversion"`
	Tables     []models.MergedTable `json:"tables"`
	Degraded   bool                 `json:"degraded"`
	EmptyPages []int                `json:"empty_pages,omitempty"`
}

// Convert handles PDF upload and synchronous table extraction.
// POST /api/v1/convert
func (h *Handler) Convert(c *gin.Context) {
	upload, apiKeyID, ok := h.receiveUpload(c)
	if !ok {
		return
	}
	defer os.Remove(upload.path)

	opts, ok := h.bindOptions(c)
	if !ok {
		return
	}

	pages, err := pipeline.ParsePageSelector(opts.Pages)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_pages",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	// Re-uploads of a file we already processed with default options are
	// served from the stored result instead of re-running extraction. Both
	// the request and the prior run must use default options — tables from
	// a pages/method/merge run are specific to those options.
	if opts.IsDefault() {
		if prev, err := h.DB.GetConversionByHash(c.Request.Context(), upload.document.ContentHash); err == nil && prev.DefaultOptions() {
			if cached, err := h.Results.Load(prev.ID); err == nil {
				log.Printf("♻️  Duplicate upload %s, serving conversion %s from stored result", upload.originalName, prev.ID)
				c.JSON(http.StatusOK, ConvertResponse{
					Conversion: *prev,
					Tables:     cached.Tables,
					Degraded:   cached.Degraded,
					EmptyPages: cached.EmptyPages,
				})
				return
			}
		}
	}

	req := models.ExtractionRequest{
		Document:     upload.document,
		Pages:        pages,
		Method:       opts.Method,
		MergeSimilar: opts.MergeSimilar,
	}

	result, err := h.Pipeline.Run(c.Request.Context(), req)
	if err != nil {
		h.recordFailure(c, upload, apiKeyID, opts, err)
		return
	}

	conversion := &models.Conversion{
		Filename:        upload.storedName,
		OriginalName:    upload.originalName,
		ContentHash:     upload.document.ContentHash,
		PageCount:       upload.document.PageCount,
		TableCount:      len(result.Tables),
		MethodUsed:      result.MethodUsed,
		Score:           bestOverall(result.Tables),
		Degraded:        result.Degraded,
		RequestedPages:  opts.Pages,
		RequestedMethod: opts.Method,
		MergeSimilar:    opts.MergeSimilar,
		Status:          models.StatusCompleted,
		APIKeyID:        apiKeyID,
	}
	if err := h.DB.CreateConversion(c.Request.Context(), conversion); err != nil {
		log.Printf("❌ Failed to save conversion record: %v", err)
		// Still return the result even if the DB save fails
	} else if err := h.Results.Save(conversion.ID, result); err != nil {
		log.Printf("⚠️  Failed to store result for %s: %v", conversion.ID, err)
	}

	c.JSON(http.StatusOK, ConvertResponse{
		Conversion: *conversion,
		Tables:     result.Tables,
		Degraded:   result.Degraded,
		EmptyPages: result.EmptyPages,
	})
}

// upload is a validated, spooled PDF ready for the pipeline.
type upload struct {
	path         string
	storedName   string
	originalName string
	document     models.Document
}

// receiveUpload validates a multipart PDF upload and spools it to the
// temp directory. On failure the error response is already written.
func (h *Handler) receiveUpload(c *gin.Context) (*upload, *string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Config.MaxFileSizeBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: fmt.Sprintf("No PDF file provided. Upload a file with the field name 'file'. Max size: %dMB.", h.Config.MaxFileSizeBytes>>20),
			Code:    http.StatusBadRequest,
		})
		return nil, nil, false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_file_type",
			Message: fmt.Sprintf("Unsupported file format '%s'. Only .pdf files are accepted.", ext),
			Code:    http.StatusBadRequest,
		})
		return nil, nil, false
	}

	storedName := uuid.New().String() + ".pdf"
	path := filepath.Join(h.Config.TempDir, storedName)

	out, err := os.Create(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "storage_error",
			Message: "Failed to store uploaded file",
			Code:    http.StatusInternalServerError,
		})
		return nil, nil, false
	}

	// Hash while spooling — one pass over the upload.
	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), file)
	out.Close()
	if err != nil {
		os.Remove(path)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "read_error",
			Message: "Failed to read uploaded file",
			Code:    http.StatusBadRequest,
		})
		return nil, nil, false
	}

	if !validatePDFMagic(path) {
		os.Remove(path)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_pdf",
			Message: "The uploaded file does not appear to be a valid PDF",
			Code:    http.StatusBadRequest,
		})
		return nil, nil, false
	}

	pageCount, err := backend.PageCount(path)
	if err != nil {
		os.Remove(path)
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "unsupported_format",
			Message: "Could not read the document structure: " + err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
		return nil, nil, false
	}

	var apiKeyID *string
	if apiKey := middleware.GetAPIKey(c); apiKey != nil {
		apiKeyID = &apiKey.ID
	}

	return &upload{
		path:         path,
		storedName:   storedName,
		originalName: header.Filename,
		document: models.Document{
			Path:        path,
			ContentHash: fmt.Sprintf("%x", hasher.Sum(nil)),
			PageCount:   pageCount,
			SizeBytes:   size,
		},
	}, apiKeyID, true
}

// bindOptions binds and validates the conversion form options.
func (h *Handler) bindOptions(c *gin.Context) (models.ConvertOptions, bool) {
	var opts models.ConvertOptions
	if err := c.ShouldBind(&opts); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid conversion options: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return opts, false
	}

	if opts.Method != "" && !config.IsKnownMethod(opts.Method) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_method",
			Message: fmt.Sprintf("Unknown method '%s'. Use one of: auto, mupdf, pdfcpu, tabula, ledongthuc", opts.Method),
			Code:    http.StatusBadRequest,
		})
		return opts, false
	}
	return opts, true
}

// recordFailure persists a failed conversion and writes the error response.
func (h *Handler) recordFailure(c *gin.Context, up *upload, apiKeyID *string, opts models.ConvertOptions, err error) {
	log.Printf("❌ Extraction failed for %s: %v", up.originalName, err)

	conversion := &models.Conversion{
		Filename:        up.storedName,
		OriginalName:    up.originalName,
		ContentHash:     up.document.ContentHash,
		PageCount:       up.document.PageCount,
		RequestedPages:  opts.Pages,
		RequestedMethod: opts.Method,
		MergeSimilar:    opts.MergeSimilar,
		Status:          models.StatusFailed,
		ErrorMessage:    err.Error(),
		APIKeyID:        apiKeyID,
	}
	h.DB.CreateConversion(c.Request.Context(), conversion)

	var verr *models.ValidationError
	var cerr *models.ConfigError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   verr.Kind,
			Message: verr.Message,
			Code:    http.StatusBadRequest,
		})
	case errors.As(err, &cerr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_" + cerr.Field,
			Message: cerr.Message,
			Code:    http.StatusBadRequest,
		})
	default:
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "extraction_failed",
			Message: err.Error(),
			Code:    http.StatusUnprocessableEntity,
		})
	}
}

// validatePDFMagic checks the %PDF- file signature.
func validatePDFMagic(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, 5)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}
	return string(magic) == "%PDF-"
}

// bestOverall returns the highest overall quality score across tables.
func bestOverall(tables []models.MergedTable) float64 {
	best := 0.0
	for _, t := range tables {
		if t.Quality != nil && t.Quality.Overall > best {
			best = t.Quality.Overall
		}
	}
	return best
}
