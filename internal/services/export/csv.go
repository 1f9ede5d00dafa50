// Package export renders merged tables to the supported download
// formats: CSV, Excel, and JSON. Every writer streams to an io.Writer so
// handlers can pipe straight into the HTTP response.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// WriteCSV writes all tables into one CSV stream. With multiple tables a
// leading "table" column carries the 1-based table index so rows stay
// attributable; a single table is written as-is.
func WriteCSV(w io.Writer, tables []models.MergedTable) error {
	cw := csv.NewWriter(w)
	indexed := len(tables) > 1

	for i, t := range tables {
		if err := writeRecord(cw, indexed, i+1, t.Headers, i == 0 && indexed); err != nil {
			return err
		}
		for _, row := range t.Rows {
			if err := writeRecord(cw, indexed, i+1, row, false); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeRecord(cw *csv.Writer, indexed bool, table int, cells []string, firstHeader bool) error {
	if !indexed {
		return cw.Write(cells)
	}
	idx := fmt.Sprintf("%d", table)
	if firstHeader {
		idx = "table"
	}
	return cw.Write(append([]string{idx}, cells...))
}
