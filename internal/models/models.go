// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// There is no ORM magic here — the database package handles persistence,
// and the pipeline packages pass these structs around by value or pointer.
//
// JSON tags (e.g., `json:"id"`) control how struct fields are serialized
// to/from JSON. The `db` tags work with sqlx for database column mapping.
package models

import (
	"time"
)

// ConversionStatus represents the processing state of a conversion.
// Go Pattern: We use string constants instead of enums (Go doesn't have enums).
type ConversionStatus string

const (
	StatusPending    ConversionStatus = "pending"
	StatusProcessing ConversionStatus = "processing"
	StatusCompleted  ConversionStatus = "completed"
	StatusFailed     ConversionStatus = "failed"
)

// Conversion represents one PDF table-extraction run stored in the database.
// The extracted tables themselves are not persisted — only the summary and
// quality metadata, so history listings stay cheap.
type Conversion struct {
	ID              string           `json:"id" db:"id"`
	Filename        string           `json:"filename" db:"filename"`           // Stored filename (uuid.pdf)
	OriginalName    string           `json:"original_name" db:"original_name"` // Name as uploaded
	ContentHash     string           `json:"content_hash" db:"content_hash"`   // MD5 of the file content
	PageCount       int              `json:"page_count" db:"page_count"`
	TableCount      int              `json:"table_count" db:"table_count"`
	MethodUsed      string           `json:"method_used" db:"method_used"` // Backend that produced the result
	Score           float64          `json:"score" db:"score"`             // Overall quality score [0,1]
	Degraded        bool             `json:"degraded" db:"degraded"`       // True when no backend met the acceptance threshold
	RequestedPages  string           `json:"requested_pages,omitempty" db:"requested_pages"`   // Page selector as submitted, "" = all pages
	RequestedMethod string           `json:"requested_method,omitempty" db:"requested_method"` // Method as submitted, "" = auto
	MergeSimilar    bool             `json:"merge_similar,omitempty" db:"merge_similar"`
	Status          ConversionStatus `json:"status" db:"status"`
	ErrorMessage    string           `json:"error_message,omitempty" db:"error_message"`
	BatchID         *string          `json:"batch_id,omitempty" db:"batch_id"` // Pointer = nullable
	APIKeyID        *string          `json:"api_key_id,omitempty" db:"api_key_id"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// DefaultOptions reports whether this conversion was produced with the
// default extraction options (all pages, automatic backend selection, no
// merging). Only such runs are safe to serve for a re-upload of the same
// file, since the stored tables depend on the options used.
func (c *Conversion) DefaultOptions() bool {
	return c.RequestedPages == "" &&
		(c.RequestedMethod == "" || c.RequestedMethod == "auto") &&
		!c.MergeSimilar
}

// Batch groups multiple conversions submitted in one request.
// The counts are denormalized so progress polling doesn't have to
// aggregate over every conversion row.
type Batch struct {
	ID             string           `json:"id" db:"id"`
	Status         ConversionStatus `json:"status" db:"status"`
	TotalCount     int              `json:"total_count" db:"total_count"`
	CompletedCount int              `json:"completed_count" db:"completed_count"`
	FailedCount    int              `json:"failed_count" db:"failed_count"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// APIKey represents an API key for authentication.
// Note: We store the HASH of the key, never the raw key itself.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	KeyHash    string     `json:"-" db:"key_hash"`            // "-" means never serialize to JSON
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // First 8 chars for identification
	Name       string     `json:"name" db:"name"`
	Active     bool       `json:"active" db:"active"`
	RateLimit  int        `json:"rate_limit" db:"rate_limit"` // Requests per hour
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// User represents a registered account (JWT authentication).
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: Separate structs for API input/output vs database models.
// This keeps the API contract clean and independent of the database schema.

// ConvertOptions carries the caller-supplied knobs for a conversion.
// Pages uses the selector grammar "1,3,5-7"; empty means all pages.
type ConvertOptions struct {
	Pages        string `form:"pages" json:"pages,omitempty"`
	Method       string `form:"method" json:"method,omitempty"` // "auto" or a backend id
	MergeSimilar bool   `form:"merge_similar" json:"merge_similar,omitempty"`
}

// IsDefault reports whether every option is at its default value.
func (o ConvertOptions) IsDefault() bool {
	return o.Pages == "" && (o.Method == "" || o.Method == "auto") && !o.MergeSimilar
}

// BatchResponse is the API response for a batch operation.
type BatchResponse struct {
	Batch       Batch        `json:"batch"`
	Conversions []Conversion `json:"conversions"`
}

// CreateAPIKeyRequest is the JSON body for POST /api/v1/keys.
type CreateAPIKeyRequest struct {
	Name      string `json:"name" binding:"required"`
	RateLimit int    `json:"rate_limit,omitempty"` // 0 = use default
}

// CreateAPIKeyResponse includes the raw key — shown only once at creation time.
type CreateAPIKeyResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse returns a JWT token plus the user record.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ConversionListParams holds query parameters for listing conversions.
type ConversionListParams struct {
	Page     int              `form:"page"`
	PerPage  int              `form:"per_page"`
	Status   ConversionStatus `form:"status"`
	Search   string           `form:"search"` // Matches original filename
	APIKeyID *string
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string   `json:"status"`
	Version  string   `json:"version"`
	Database string   `json:"database"`
	Workers  int      `json:"workers"`
	Backends []string `json:"backends"` // Backend ids available in this runtime
}
