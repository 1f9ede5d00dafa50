// batches.go handles multi-file batch conversion endpoints.
//
// POST /api/v1/convert/batch — Upload several PDFs for background conversion
// GET  /api/v1/batches/:id   — Poll batch progress and per-file results
package handlers

import (
	"crypto/md5"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/middleware"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
	"github.com/fileto-labs/pdf-tables-api/internal/services/pipeline"
	"github.com/fileto-labs/pdf-tables-api/internal/services/worker"
)

// maxBatchFiles caps one batch submission.
const maxBatchFiles = 20

// ConvertBatch accepts multiple PDFs under the "files" field and queues
// them for background processing. Files that fail validation are recorded
// as failed conversions immediately; the rest go to the worker pool.
// POST /api/v1/convert/batch
func (h *Handler) ConvertBatch(c *gin.Context) {
	// One shared budget for the whole batch upload
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Config.MaxFileSizeBytes*maxBatchFiles)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Expected a multipart form with one or more PDFs under the field name 'files'",
			Code:    http.StatusBadRequest,
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "No files provided. Upload PDFs under the field name 'files'",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if len(files) > maxBatchFiles {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "too_many_files",
			Message: fmt.Sprintf("A batch may contain at most %d files", maxBatchFiles),
			Code:    http.StatusBadRequest,
		})
		return
	}

	method := c.PostForm("method")
	if method != "" && !config.IsKnownMethod(method) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_method",
			Message: fmt.Sprintf("Unknown method '%s'", method),
			Code:    http.StatusBadRequest,
		})
		return
	}

	pagesSpec := c.PostForm("pages")
	pages, err := pipeline.ParsePageSelector(pagesSpec)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_pages",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}
	mergeSimilar := c.PostForm("merge_similar") == "true"

	var apiKeyID *string
	if apiKey := middleware.GetAPIKey(c); apiKey != nil {
		apiKeyID = &apiKey.ID
	}

	batch := &models.Batch{
		Status:     models.StatusPending,
		TotalCount: len(files),
	}
	if err := h.DB.CreateBatch(c.Request.Context(), batch); err != nil {
		log.Printf("❌ Failed to create batch: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create batch",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	conversions := make([]models.Conversion, 0, len(files))
	for _, header := range files {
		opts := models.ConvertOptions{Pages: pagesSpec, Method: method, MergeSimilar: mergeSimilar}
		conversion := h.enqueueFile(c, header, batch.ID, apiKeyID, pages, opts)
		conversions = append(conversions, *conversion)
	}

	// Failed validations count toward batch progress right away
	if err := h.DB.UpdateBatchCounts(c.Request.Context(), batch.ID); err != nil {
		log.Printf("⚠️  Failed to update batch counts for %s: %v", batch.ID, err)
	}
	if fresh, err := h.DB.GetBatch(c.Request.Context(), batch.ID); err == nil {
		batch = fresh
	}

	c.JSON(http.StatusAccepted, models.BatchResponse{
		Batch:       *batch,
		Conversions: conversions,
	})
}

// enqueueFile spools one batch member and either queues it or records the
// validation failure. Always returns a conversion row.
func (h *Handler) enqueueFile(c *gin.Context, header *multipart.FileHeader, batchID string, apiKeyID *string, pages []int, opts models.ConvertOptions) *models.Conversion {
	conversion := &models.Conversion{
		OriginalName:    header.Filename,
		RequestedPages:  opts.Pages,
		RequestedMethod: opts.Method,
		MergeSimilar:    opts.MergeSimilar,
		Status:          models.StatusPending,
		BatchID:         &batchID,
		APIKeyID:        apiKeyID,
	}

	doc, storedName, err := h.spoolBatchFile(header)
	if err != nil {
		conversion.Status = models.StatusFailed
		conversion.ErrorMessage = err.Error()
		if dberr := h.DB.CreateConversion(c.Request.Context(), conversion); dberr != nil {
			log.Printf("❌ Failed to save conversion record: %v", dberr)
		}
		return conversion
	}

	conversion.Filename = storedName
	conversion.ContentHash = doc.ContentHash
	conversion.PageCount = doc.PageCount
	if err := h.DB.CreateConversion(c.Request.Context(), conversion); err != nil {
		log.Printf("❌ Failed to save conversion record: %v", err)
		os.Remove(doc.Path)
		conversion.Status = models.StatusFailed
		conversion.ErrorMessage = "failed to persist conversion"
		return conversion
	}

	job := worker.Job{
		ConversionID: conversion.ID,
		Request: models.ExtractionRequest{
			Document:     *doc,
			Pages:        pages,
			Method:       opts.Method,
			MergeSimilar: opts.MergeSimilar,
		},
		CreatedAt:  time.Now(),
		RemoveFile: true,
	}
	if err := h.Worker.Submit(job); err != nil {
		os.Remove(doc.Path)
		conversion.Status = models.StatusFailed
		conversion.ErrorMessage = err.Error()
		h.DB.UpdateConversion(c.Request.Context(), conversion)
	}

	return conversion
}

// spoolBatchFile saves one uploaded file to the temp directory and
// validates it, returning the document ready for the pipeline.
func (h *Handler) spoolBatchFile(header *multipart.FileHeader) (*models.Document, string, error) {
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".pdf" {
		return nil, "", fmt.Errorf("unsupported file format '%s': only .pdf files are accepted", ext)
	}
	if header.Size > h.Config.MaxFileSizeBytes {
		return nil, "", fmt.Errorf("file exceeds the %dMB size limit", h.Config.MaxFileSizeBytes>>20)
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer file.Close()

	storedName := uuid.New().String() + ".pdf"
	path := filepath.Join(h.Config.TempDir, storedName)

	out, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store uploaded file: %w", err)
	}

	hasher := md5.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), file)
	out.Close()
	if err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("failed to read uploaded file: %w", err)
	}

	if !validatePDFMagic(path) {
		os.Remove(path)
		return nil, "", fmt.Errorf("the uploaded file does not appear to be a valid PDF")
	}

	pageCount, err := backend.PageCount(path)
	if err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("could not read the document structure: %w", err)
	}

	return &models.Document{
		Path:        path,
		ContentHash: fmt.Sprintf("%x", hasher.Sum(nil)),
		PageCount:   pageCount,
		SizeBytes:   size,
	}, storedName, nil
}

// GetBatch returns a batch with its conversions.
// GET /api/v1/batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	id := c.Param("id")

	batch, err := h.DB.GetBatch(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Batch not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	conversions, err := h.DB.GetConversionsByBatch(c.Request.Context(), id)
	if err != nil {
		log.Printf("Failed to list batch conversions: %v", err)
		conversions = []models.Conversion{}
	}

	c.JSON(http.StatusOK, models.BatchResponse{
		Batch:       *batch,
		Conversions: conversions,
	})
}
