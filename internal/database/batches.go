// batches.go handles batch-related database operations.
//
// Go Pattern: Database operations are split across files by domain —
// conversions and keys, batches, users. They all share the same *DB receiver.
package database

import (
	"context"
	"fmt"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// CreateBatch inserts a new batch record.
// The batch starts in "pending" status with the given total count.
func (db *DB) CreateBatch(ctx context.Context, b *models.Batch) error {
	query := `
		INSERT INTO batches (status, total_count, completed_count, failed_count)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return db.QueryRowContext(ctx, query,
		b.Status, b.TotalCount, b.CompletedCount, b.FailedCount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetBatch retrieves a batch by ID.
func (db *DB) GetBatch(ctx context.Context, id string) (*models.Batch, error) {
	var b models.Batch
	err := db.GetContext(ctx, &b, `SELECT * FROM batches WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("batch not found: %w", err)
	}
	return &b, nil
}

// GetConversionsByBatch returns all conversions belonging to a batch,
// in submission order.
func (db *DB) GetConversionsByBatch(ctx context.Context, batchID string) ([]models.Conversion, error) {
	var conversions []models.Conversion
	err := db.SelectContext(ctx, &conversions,
		`SELECT * FROM conversions WHERE batch_id = $1 ORDER BY created_at ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch conversions: %w", err)
	}
	return conversions, nil
}

// UpdateBatchCounts recalculates the batch's progress counters by querying
// the actual conversion statuses. If a worker dies mid-update the counts
// self-heal on the next recalculation.
func (db *DB) UpdateBatchCounts(ctx context.Context, batchID string) error {
	query := `
		UPDATE batches SET
			completed_count = (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status = 'completed'),
			failed_count = (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status = 'failed'),
			status = CASE
				WHEN (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status IN ('pending', 'processing')) = 0
					AND (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status = 'failed') > 0
					AND (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status = 'completed') = 0
				THEN 'failed'
				WHEN (SELECT COUNT(*) FROM conversions WHERE batch_id = $1 AND status IN ('pending', 'processing')) = 0
				THEN 'completed'
				ELSE 'processing'
			END,
			updated_at = NOW()
		WHERE id = $1`

	_, err := db.ExecContext(ctx, query, batchID)
	if err != nil {
		return fmt.Errorf("failed to update batch counts: %w", err)
	}
	return nil
}
