// tabula.go implements the tabula-java extraction backend.
//
// tabula-java is the reference extractor for lattice tables, but it needs
// a Java runtime. The backend shells out with exec.CommandContext so a
// context timeout kills the JVM instead of leaving it running, and it
// reports itself unavailable (skipped by auto selection, with a warning)
// when java or the jar is missing.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

type tabulaBackend struct {
	javaPath string
	jarPath  string
	tempDir  string
}

func newTabula(javaPath, jarPath, tempDir string) *tabulaBackend {
	return &tabulaBackend{javaPath: javaPath, jarPath: jarPath, tempDir: tempDir}
}

func (b *tabulaBackend) ID() string { return "tabula" }

// Available requires both a Java runtime and the tabula jar on disk.
func (b *tabulaBackend) Available() bool {
	if b.javaPath == "" || b.jarPath == "" {
		return false
	}
	if _, err := os.Stat(b.jarPath); err != nil {
		return false
	}
	return true
}

// tabulaTable mirrors tabula-java's --format JSON output.
type tabulaTable struct {
	Page int `json:"page_number"`
	Data [][]struct {
		Text string `json:"text"`
	} `json:"data"`
}

func (b *tabulaBackend) Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError) {
	if !b.Available() {
		return nil, errOf(b.ID(), models.ReasonInternalFailure,
			errors.New("java runtime or tabula jar not configured"))
	}

	pageSpecs := make([]string, len(pages))
	for i, p := range pages {
		pageSpecs[i] = strconv.Itoa(p)
	}

	args := []string{
		"-jar", b.jarPath,
		"--pages", strings.Join(pageSpecs, ","),
		"--format", "JSON",
		"--guess",
		"--silent",
	}
	if opts["lattice"] == "true" {
		args = append(args, "--lattice")
	}
	args = append(args, doc.Path)

	cmd := exec.CommandContext(ctx, b.javaPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errOf(b.ID(), models.ReasonTimeout, ctx.Err())
		}
		return nil, errOf(b.ID(), models.ReasonInternalFailure,
			fmt.Errorf("tabula: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var parsed []tabulaTable
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return nil, errOf(b.ID(), models.ReasonInternalFailure, fmt.Errorf("parse output: %w", err))
	}

	var tables []models.RawTable
	for _, pt := range parsed {
		if len(pt.Data) < minTableRows {
			continue
		}

		page := pt.Page
		if page == 0 && len(pages) == 1 {
			page = pages[0]
		}

		t := models.RawTable{Page: page, Backend: b.ID()}
		for rowIdx, row := range pt.Data {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = strings.TrimSpace(c.Text)
			}
			if rowIdx == 0 {
				t.Headers = cells
			} else {
				t.Rows = append(t.Rows, cells)
			}
		}
		tables = append(tables, t)
	}

	if len(tables) == 0 {
		return nil, errOf(b.ID(), models.ReasonNoTablesFound, nil)
	}
	return tables, nil
}
