// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next()
// to continue the chain, or c.Abort() to stop processing.
package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fileto-labs/pdf-tables-api/internal/database"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyAuth returns middleware that validates the X-API-Key header.
// The raw key is hashed and looked up; we never store raw keys.
func APIKeyAuth(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader("X-API-Key")
		if rawKey == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing X-API-Key header. Create an API key via POST /api/v1/keys",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		keyHash := HashAPIKey(rawKey)
		apiKey, err := db.GetAPIKeyByHash(c.Request.Context(), keyHash)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or revoked API key",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		c.Set(string(apiKeyContextKey), apiKey)

		// Update last_used_at (fire and forget — don't block the request)
		go touchAPIKey(db, apiKey.ID)

		c.Next()
	}
}

// GetAPIKey retrieves the authenticated API key from the request context.
// Call this in handlers after the auth middleware has run.
func GetAPIKey(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(apiKeyContextKey))
	if !exists {
		return nil
	}
	key, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return key
}

// touchAPIKey bumps last_used_at in the background. The request context is
// canceled as soon as the handler returns, which would abort the write, so
// the update runs on its own short-lived context.
func touchAPIKey(db *database.DB, id string) {
	ctx, cancel := touchContext()
	defer cancel()
	if err := db.UpdateAPIKeyLastUsed(ctx, id); err != nil {
		log.Printf("⚠️  Failed to update last_used_at for key %s: %v", id, err)
	}
}

// touchContext returns a context for the last_used_at write, detached from
// any request lifetime.
func touchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// HashAPIKey creates a SHA-256 hash of an API key.
// We store hashes, not raw keys — same principle as password hashing.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}
