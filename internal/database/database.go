// Package database handles PostgreSQL connections and queries.
//
// Go Pattern: We use the `sqlx` package which extends Go's standard
// database/sql with convenient features like scanning rows into structs.
// There is no ORM — queries are raw SQL with positional parameters, and
// the `db:"column"` tags on the models handle the mapping.
//
// One *DB is created at startup and shared by every handler and worker;
// database/sql pools connections internally and is safe for concurrent use.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver — the underscore import runs its init()

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// DB wraps the sqlx database connection with our application-specific methods.
type DB struct {
	*sqlx.DB
}

// New creates a new database connection with connection pooling configured.
func New(databaseURL string) (*DB, error) {
	// sqlx.Connect both opens the connection and pings the database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Conservative pool settings for serverless PostgreSQL, which closes
	// idle connections aggressively.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{db}, nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// --- Conversion Operations ---

// CreateConversion inserts a new conversion record.
// Returns the created conversion with its generated ID and timestamps.
func (db *DB) CreateConversion(ctx context.Context, c *models.Conversion) error {
	query := `
		INSERT INTO conversions (filename, original_name, content_hash, page_count, table_count, method_used, score, degraded, requested_pages, requested_method, merge_similar, status, error_message, batch_id, api_key_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		c.Filename, c.OriginalName, c.ContentHash, c.PageCount,
		c.TableCount, c.MethodUsed, c.Score, c.Degraded,
		c.RequestedPages, c.RequestedMethod, c.MergeSimilar,
		c.Status, c.ErrorMessage, c.BatchID, c.APIKeyID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetConversion retrieves a single conversion by ID.
func (db *DB) GetConversion(ctx context.Context, id string) (*models.Conversion, error) {
	var c models.Conversion
	// GetContext is sqlx's convenience method — it scans directly into a
	// struct using the `db:"column_name"` tags on the model.
	err := db.GetContext(ctx, &c, `SELECT * FROM conversions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("conversion not found: %w", err)
	}
	return &c, nil
}

// GetConversionByHash returns the most recent completed conversion for a
// content hash, so re-uploads of the same file can be detected. Only
// default-options runs qualify: a run restricted to certain pages, pinned
// to one backend, or merged produced tables specific to those options.
func (db *DB) GetConversionByHash(ctx context.Context, hash string) (*models.Conversion, error) {
	var c models.Conversion
	err := db.GetContext(ctx, &c,
		`SELECT * FROM conversions
		 WHERE content_hash = $1 AND status = 'completed'
		   AND requested_pages = '' AND requested_method IN ('', 'auto') AND merge_similar = FALSE
		 ORDER BY created_at DESC LIMIT 1`, hash)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversion updates a conversion's fields after processing.
func (db *DB) UpdateConversion(ctx context.Context, c *models.Conversion) error {
	query := `
		UPDATE conversions
		SET page_count = $2, table_count = $3, method_used = $4, score = $5,
			degraded = $6, status = $7, error_message = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	return db.QueryRowContext(ctx, query,
		c.ID, c.PageCount, c.TableCount, c.MethodUsed, c.Score,
		c.Degraded, c.Status, c.ErrorMessage,
	).Scan(&c.UpdatedAt)
}

// ListConversions returns a paginated list of conversions with optional filters.
func (db *DB) ListConversions(ctx context.Context, params models.ConversionListParams) ([]models.Conversion, int, error) {
	// Set defaults
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	// Build WHERE clause dynamically
	var conditions []string
	var args []interface{}
	argNum := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, params.Status)
		argNum++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("original_name ILIKE $%d", argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}

	if params.APIKeyID != nil {
		conditions = append(conditions, fmt.Sprintf("api_key_id = $%d", argNum))
		args = append(args, *params.APIKeyID)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM conversions %s", whereClause)
	var total int
	err := db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			total = 0
		} else {
			return nil, 0, fmt.Errorf("count query failed: %w", err)
		}
	}

	// Fetch page of results
	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT * FROM conversions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	var conversions []models.Conversion
	err = db.SelectContext(ctx, &conversions, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return conversions, total, nil
}

// DeleteConversion removes a conversion by ID.
func (db *DB) DeleteConversion(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM conversions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversion: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("conversion not found")
	}
	return nil
}

// --- API Key Operations ---

// CreateAPIKey inserts a new API key record.
func (db *DB) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (key_hash, key_prefix, name, active, rate_limit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		key.KeyHash, key.KeyPrefix, key.Name, key.Active, key.RateLimit,
	).Scan(&key.ID, &key.CreatedAt)
}

// GetAPIKeyByHash retrieves an API key by its hash (used during authentication).
func (db *DB) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	err := db.GetContext(ctx, &key,
		`SELECT * FROM api_keys WHERE key_hash = $1 AND active = true`, hash)
	if err != nil {
		return nil, fmt.Errorf("invalid API key: %w", err)
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed bumps the last_used_at timestamp.
func (db *DB) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}

// ListAPIKeys returns all API keys (active and inactive).
func (db *DB) ListAPIKeys(ctx context.Context) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := db.SelectContext(ctx, &keys, `SELECT * FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey deactivates an API key.
func (db *DB) RevokeAPIKey(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `UPDATE api_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("API key not found")
	}
	return nil
}
