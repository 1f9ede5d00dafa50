// mupdf.go implements the MuPDF extraction backend.
//
// go-fitz binds MuPDF, the same engine PyMuPDF wraps. It handles modern
// PDFs and graphics-heavy layouts better than the pure-Go options, which
// is why it leads the default priority order.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

type muPDFBackend struct{}

func newMuPDF() *muPDFBackend { return &muPDFBackend{} }

func (b *muPDFBackend) ID() string { return "mupdf" }

// Available is always true — MuPDF is compiled into the binary.
func (b *muPDFBackend) Available() bool { return true }

func (b *muPDFBackend) Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError) {
	d, err := fitz.New(doc.Path)
	if err != nil {
		return nil, errOf(b.ID(), models.ReasonUnsupportedFormat, fmt.Errorf("open: %w", err))
	}
	defer d.Close()

	numPages := d.NumPage()
	var tables []models.RawTable

	for _, page := range pages {
		// Cooperative cancellation between pages — a timeout must not
		// leave this loop grinding through a 500-page document.
		select {
		case <-ctx.Done():
			return nil, errOf(b.ID(), models.ReasonTimeout, ctx.Err())
		default:
		}

		if page < 1 || page > numPages {
			continue
		}

		text, err := d.Text(page - 1) // go-fitz pages are 0-based
		if err != nil {
			// One broken page doesn't fail the document.
			continue
		}

		tables = append(tables, tablesFromLines(strings.Split(text, "\n"), page, b.ID())...)
	}

	if len(tables) == 0 {
		return nil, errOf(b.ID(), models.ReasonNoTablesFound, nil)
	}
	return tables, nil
}
