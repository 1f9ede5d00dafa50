// store.go persists extraction results on disk so the export endpoints
// can re-render a completed conversion in any format without re-running
// the pipeline. The database keeps only summary metadata; the full table
// payload lives here as one JSON file per conversion.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// ResultStore reads and writes extraction results under a base directory.
type ResultStore struct {
	dir string
}

// NewResultStore creates the results directory if needed.
func NewResultStore(baseDir string) (*ResultStore, error) {
	dir := filepath.Join(baseDir, "results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}
	return &ResultStore{dir: dir}, nil
}

// Save writes the result for a conversion ID, replacing any previous one.
func (s *ResultStore) Save(conversionID string, result *models.PipelineResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	// Write-then-rename so a concurrent reader never sees a partial file.
	tmp := s.path(conversionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if err := os.Rename(tmp, s.path(conversionID)); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// Load reads the stored result for a conversion ID.
func (s *ResultStore) Load(conversionID string) (*models.PipelineResult, error) {
	data, err := os.ReadFile(s.path(conversionID))
	if err != nil {
		return nil, fmt.Errorf("result not available: %w", err)
	}
	var result models.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &result, nil
}

// Delete removes a stored result. Missing files are not an error.
func (s *ResultStore) Delete(conversionID string) error {
	err := os.Remove(s.path(conversionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *ResultStore) path(conversionID string) string {
	return filepath.Join(s.dir, conversionID+".json")
}
