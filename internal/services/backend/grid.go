// grid.go reconstructs table grids from a page's text lines.
//
// Text-based backends hand us lines, not cells. The heuristic here is the
// one text-mode extractors converge on: a cell boundary is a run of two
// or more spaces (or a tab), and a table is a block of consecutive lines
// that keep producing at least two cells with a stable-enough column
// count. The first line of a block becomes the header row.
package backend

import (
	"regexp"
	"strings"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// cellSplit matches a cell boundary in a text line.
var cellSplit = regexp.MustCompile(`\t|\s{2,}`)

// minTableRows is the block size below which we don't call it a table —
// a header with no data rows is just a line of text.
const minTableRows = 2

// splitCells cuts one text line into trimmed cells.
func splitCells(line string) []string {
	parts := cellSplit.Split(strings.TrimSpace(line), -1)
	out := parts[:0]
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// tablesFromLines scans a page's lines and returns every table block
// found, already rectangular. backendID and page fill the provenance
// fields of each RawTable.
func tablesFromLines(lines []string, page int, backendID string) []models.RawTable {
	var tables []models.RawTable
	var block [][]string

	flush := func() {
		if len(block) >= minTableRows {
			tables = append(tables, gridToTable(block, page, backendID))
		}
		block = nil
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cells := splitCells(line)
		if len(cells) < 2 {
			flush()
			continue
		}

		// A jump in column count ends the block: a 2-cell caption line
		// should not glue two unrelated tables together.
		if len(block) > 0 && !compatibleWidth(len(block[len(block)-1]), len(cells)) {
			flush()
		}
		block = append(block, cells)
	}
	flush()

	return tables
}

// compatibleWidth allows one column of drift between consecutive lines,
// absorbing ragged rows without merging unrelated blocks.
func compatibleWidth(a, b int) bool {
	d := a - b
	return d >= -1 && d <= 1
}

// gridToTable shapes a block into a RawTable: first row is the header,
// every row padded to the widest row's length.
func gridToTable(block [][]string, page int, backendID string) models.RawTable {
	width := 0
	for _, row := range block {
		if len(row) > width {
			width = len(row)
		}
	}

	pad := func(row []string) []string {
		out := make([]string, width)
		copy(out, row)
		return out
	}

	t := models.RawTable{
		Headers: pad(block[0]),
		Page:    page,
		Backend: backendID,
	}
	for _, row := range block[1:] {
		t.Rows = append(t.Rows, pad(row))
	}
	return t
}
