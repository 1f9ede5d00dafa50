// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/handlers"
	"github.com/fileto-labs/pdf-tables-api/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(h.Config.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter()

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.POST("/api/v1/keys", h.CreateAPIKey)

	// --- Auth Routes — public ---
	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)

	// --- JWT-only routes ---
	jwtProtected := r.Group("/api/v1")
	jwtProtected.Use(middleware.JWTAuth(h.DB, h.Config.JWTSecret))
	{
		jwtProtected.GET("/auth/me", h.GetMe)
	}

	// --- Protected Routes (API key OR JWT) ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.DualAuth(h.DB, h.Config.JWTSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		// Conversion endpoints
		protected.POST("/convert", h.Convert)
		protected.POST("/analyze", h.Analyze)
		protected.GET("/conversions", h.ListConversions)
		protected.GET("/conversions/:id", h.GetConversion)
		protected.GET("/conversions/:id/export", h.ExportConversion)
		protected.DELETE("/conversions/:id", h.DeleteConversion)

		// Batch processing
		protected.POST("/convert/batch", h.ConvertBatch)
		protected.GET("/batches/:id", h.GetBatch)

		// API key management
		protected.GET("/keys", h.ListAPIKeys)
		protected.DELETE("/keys/:id", h.RevokeAPIKey)
	}

	return r
}
