// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides
// request data, response methods, and middleware values. Related handlers
// hang off one Handler struct that holds the shared dependencies, so
// tests can construct a Handler with stubs.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/database"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
	"github.com/fileto-labs/pdf-tables-api/internal/services/export"
	"github.com/fileto-labs/pdf-tables-api/internal/services/pipeline"
	"github.com/fileto-labs/pdf-tables-api/internal/services/worker"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	DB       *database.DB
	Worker   *worker.Pool
	Pipeline *pipeline.Pipeline
	Registry *backend.Registry
	Results  *export.ResultStore
	Config   *config.Config
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, wp *worker.Pool, pipe *pipeline.Pipeline, reg *backend.Registry, results *export.ResultStore, cfg *config.Config) *Handler {
	return &Handler{
		DB:       db,
		Worker:   wp,
		Pipeline: pipe,
		Registry: reg,
		Results:  results,
		Config:   cfg,
	}
}

// HealthCheck returns the API health status, including which extraction
// backends are usable in this runtime.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  "1.0.0",
		Database: dbStatus,
		Workers:  h.Worker.WorkerCount(),
		Backends: h.Registry.Available(),
	})
}
