package export

import (
	"encoding/json"
	"io"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// jsonTable is the wire shape of one exported table.
type jsonTable struct {
	Headers  []string              `json:"headers"`
	Types    []models.ColumnType   `json:"types"`
	Rows     [][]string            `json:"rows"`
	Sources  []models.TableSource  `json:"sources"`
	Quality  *models.QualityReport `json:"quality,omitempty"`
}

// WriteJSON writes all tables as one JSON array.
func WriteJSON(w io.Writer, tables []models.MergedTable) error {
	out := make([]jsonTable, len(tables))
	for i, t := range tables {
		out[i] = jsonTable{
			Headers: t.Headers,
			Types:   t.Types,
			Rows:    t.Rows,
			Sources: t.Sources,
			Quality: t.Quality,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
