// ledongthuc.go implements the pure-Go extraction backend.
//
// ledongthuc/pdf needs no CGO and no external runtime, which makes it the
// fallback of last resort: it runs everywhere the binary runs. Its
// GetTextByRow API returns positioned words per visual row, so cell
// boundaries can be recovered from horizontal gaps instead of guessing
// from flattened text.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// cellGapPoints is the horizontal gap (in PDF points) between two text
// fragments that we read as a column boundary. Roughly three character
// widths at common body-text sizes.
const cellGapPoints = 18.0

type ledongthucBackend struct{}

func newLedongthuc() *ledongthucBackend { return &ledongthucBackend{} }

func (b *ledongthucBackend) ID() string { return "ledongthuc" }

// Available is always true — pure Go, no external dependencies.
func (b *ledongthucBackend) Available() bool { return true }

func (b *ledongthucBackend) Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError) {
	f, r, err := pdf.Open(doc.Path)
	if err != nil {
		return nil, errOf(b.ID(), models.ReasonUnsupportedFormat, fmt.Errorf("open: %w", err))
	}
	defer f.Close()

	numPages := r.NumPage()
	var tables []models.RawTable

	for _, pageNum := range pages {
		select {
		case <-ctx.Done():
			return nil, errOf(b.ID(), models.ReasonTimeout, ctx.Err())
		default:
		}

		if pageNum < 1 || pageNum > numPages {
			continue
		}
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		lines, err := pageLines(page)
		if err != nil {
			continue
		}
		tables = append(tables, tablesFromLines(lines, pageNum, b.ID())...)
	}

	if len(tables) == 0 {
		return nil, errOf(b.ID(), models.ReasonNoTablesFound, nil)
	}
	return tables, nil
}

// pageLines rebuilds text lines from positioned words, inserting a tab
// wherever the horizontal gap looks like a column boundary.
func pageLines(page pdf.Page) (lines []string, err error) {
	// The pdf library panics on some malformed content streams; contain
	// that here so the adapter contract (no uncaught failures) holds.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream parse: %v", r)
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		var sb strings.Builder
		prevEnd := -1.0
		for _, word := range row.Content {
			if word.S == "" {
				continue
			}
			if prevEnd >= 0 {
				if word.X-prevEnd > cellGapPoints {
					sb.WriteByte('\t')
				} else if word.X > prevEnd {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(word.S)
			prevEnd = word.X + word.W
		}
		if sb.Len() > 0 {
			lines = append(lines, sb.String())
		}
	}
	return lines, nil
}
