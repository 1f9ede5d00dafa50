// conversions.go handles conversion history endpoints.
//
// GET    /api/v1/conversions     — Paginated conversion history
// GET    /api/v1/conversions/:id — One conversion's metadata and tables
// DELETE /api/v1/conversions/:id — Remove a conversion and its stored result
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/middleware"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// GetConversion retrieves a single conversion. Completed conversions
// include their extracted tables from the result store.
// GET /api/v1/conversions/:id
func (h *Handler) GetConversion(c *gin.Context) {
	id := c.Param("id")

	conversion, err := h.DB.GetConversion(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Conversion not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	resp := ConvertResponse{Conversion: *conversion, Degraded: conversion.Degraded}
	if conversion.Status == models.StatusCompleted {
		if result, err := h.Results.Load(id); err == nil {
			resp.Tables = result.Tables
			resp.EmptyPages = result.EmptyPages
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListConversions returns a paginated conversion history, filtered to
// the caller's API key when one is present.
// GET /api/v1/conversions?page=1&per_page=20&status=completed&search=report
func (h *Handler) ListConversions(c *gin.Context) {
	var params models.ConversionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid list parameters: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	if apiKey := middleware.GetAPIKey(c); apiKey != nil {
		params.APIKeyID = &apiKey.ID
	}

	conversions, total, err := h.DB.ListConversions(c.Request.Context(), params)
	if err != nil {
		log.Printf("Failed to list conversions: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list conversions",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if conversions == nil {
		conversions = []models.Conversion{}
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	totalPages := (total + params.PerPage - 1) / params.PerPage

	c.JSON(http.StatusOK, models.PaginatedResponse[models.Conversion]{
		Data:       conversions,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// DeleteConversion removes a conversion and its stored result.
// DELETE /api/v1/conversions/:id
func (h *Handler) DeleteConversion(c *gin.Context) {
	id := c.Param("id")

	if err := h.DB.DeleteConversion(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Conversion not found",
			Code:    http.StatusNotFound,
		})
		return
	}

	if err := h.Results.Delete(id); err != nil {
		log.Printf("⚠️  Failed to delete stored result for %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversion deleted"})
}
