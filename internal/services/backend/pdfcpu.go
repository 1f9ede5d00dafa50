// pdfcpu.go implements the pdfcpu extraction backend.
//
// pdfcpu gives us validated, decompressed page content streams. We walk
// the text-showing operators ourselves, which recovers layout hints
// (Td/TD moves, T* line breaks) that flattened text extraction loses —
// useful on lattice-style tables where each cell is its own text run.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

type pdfcpuBackend struct{}

func newPDFCPU() *pdfcpuBackend { return &pdfcpuBackend{} }

func (b *pdfcpuBackend) ID() string { return "pdfcpu" }

// Available is always true — pure Go.
func (b *pdfcpuBackend) Available() bool { return true }

func (b *pdfcpuBackend) Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError) {
	f, err := os.Open(doc.Path)
	if err != nil {
		return nil, errOf(b.ID(), models.ReasonInternalFailure, err)
	}
	defer f.Close()

	conf := pdfcpumodel.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, errOf(b.ID(), models.ReasonUnsupportedFormat, fmt.Errorf("read: %w", err))
	}

	var tables []models.RawTable
	for _, page := range pages {
		select {
		case <-ctx.Done():
			return nil, errOf(b.ID(), models.ReasonTimeout, ctx.Err())
		default:
		}

		if page < 1 || page > pdfCtx.PageCount {
			continue
		}

		lines := pageContentLines(pdfCtx, page)
		if len(lines) == 0 {
			continue
		}
		tables = append(tables, tablesFromLines(lines, page, b.ID())...)
	}

	if len(tables) == 0 {
		return nil, errOf(b.ID(), models.ReasonNoTablesFound, nil)
	}
	return tables, nil
}

// pageContentLines extracts layout-annotated text lines from one page's
// content stream. Errors degrade to an empty page, not a failed document.
func pageContentLines(ctx *pdfcpumodel.Context, page int) []string {
	r, err := pdfcpu.ExtractPageContent(ctx, page)
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return nil
	}
	return streamToLines(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// streamToLines walks the content stream's text operators and rebuilds
// visual lines. Td/TD repositioning inside a line becomes a tab (a cell
// boundary on lattice tables), T* and ' become line breaks.
func streamToLines(data []byte) []string {
	var lines []string
	var cur bytes.Buffer

	endLine := func() {
		if cur.Len() > 0 {
			lines = append(lines, cur.String())
			cur.Reset()
		}
	}

	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		op := bytes.TrimSpace(raw)
		if len(op) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(op, []byte("Tj")), bytes.HasSuffix(op, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(op, -1) {
				cur.WriteString(decodePDFString(m[1]))
			}

		case bytes.HasSuffix(op, []byte("'")) && bytes.Contains(op, []byte("(")):
			endLine()
			for _, m := range pdfStringRe.FindAllSubmatch(op, -1) {
				cur.WriteString(decodePDFString(m[1]))
			}

		case bytes.HasSuffix(op, []byte("TD")), bytes.Equal(op, []byte("T*")):
			endLine()

		case bytes.HasSuffix(op, []byte("Td")):
			// Same-line reposition: treat as a cell gap.
			if cur.Len() > 0 {
				cur.WriteByte('\t')
			}

		case bytes.HasSuffix(op, []byte("ET")):
			endLine()
		}
	}
	endLine()
	return lines
}

// decodePDFString handles the escape sequences PDF string literals allow.
func decodePDFString(raw []byte) string {
	var sb bytes.Buffer
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
			// Ignored — no visual meaning for table text.
		case '(', ')', '\\':
			sb.WriteByte(raw[i])
		default:
			// Octal escape \ddd
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for j := 0; j < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; j++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				if val > 0 && val < 256 {
					sb.WriteByte(byte(val))
				}
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}
