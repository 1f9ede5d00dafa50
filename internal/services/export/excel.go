package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

const (
	maxSheetNameLen = 31 // Excel hard limit
	minColWidth     = 8.0
	maxColWidth     = 50.0
)

// sheetNameReplacer drops the characters Excel forbids in sheet names.
var sheetNameReplacer = strings.NewReplacer(
	"[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_",
)

// WriteExcel writes each table to its own worksheet, plus a trailing
// Metadata sheet with per-table provenance and quality numbers.
func WriteExcel(w io.Writer, tables []models.MergedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool, len(tables)+1)
	for i, t := range tables {
		name := sheetName(t, i+1, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, t); err != nil {
			return err
		}
	}

	if err := writeMetadataSheet(f, tables, used); err != nil {
		return err
	}

	// Drop the default sheet excelize creates; our own sheets remain.
	if len(tables) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	return f.Write(w)
}

// sheetName builds "Page_{p}_Table_{n}_{method}", sanitized, truncated
// to Excel's 31-character limit, and made unique with a numeric suffix.
func sheetName(t models.MergedTable, n int, used map[string]bool) string {
	page, method := 0, "merged"
	if len(t.Sources) > 0 {
		page = t.Sources[0].Page
		method = t.Sources[0].Backend
	}

	name := sheetNameReplacer.Replace(fmt.Sprintf("Page_%d_Table_%d_%s", page, n, method))
	if len(name) > maxSheetNameLen {
		name = name[:maxSheetNameLen]
	}

	base := name
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("_%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetNameLen {
			trimmed = trimmed[:maxSheetNameLen-len(suffix)]
		}
		name = trimmed + suffix
	}
	used[name] = true
	return name
}

func writeSheet(f *excelize.File, sheet string, t models.MergedTable) error {
	if err := setRow(f, sheet, 1, t.Headers); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	// Width per column: longest cell, clamped.
	for col := range t.Headers {
		width := float64(len(t.Headers[col]))
		for _, row := range t.Rows {
			if col < len(row) && float64(len(row[col])) > width {
				width = float64(len(row[col]))
			}
		}
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column %d: %w", col+1, err)
		}
		if err := f.SetColWidth(sheet, colName, colName, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeMetadataSheet(f *excelize.File, tables []models.MergedTable, used map[string]bool) error {
	name := "Metadata"
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("Metadata_%d", i)
	}
	used[name] = true

	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create metadata sheet: %w", err)
	}
	if err := setRow(f, name, 1, []string{"table", "pages", "backend", "rows", "columns", "completeness", "overall_quality"}); err != nil {
		return err
	}

	for i, t := range tables {
		pages := make([]string, len(t.Sources))
		backend := ""
		for j, s := range t.Sources {
			pages[j] = fmt.Sprintf("%d", s.Page)
			backend = s.Backend
		}
		completeness, overall := "", ""
		if t.Quality != nil {
			completeness = fmt.Sprintf("%.3f", t.Quality.Completeness)
			overall = fmt.Sprintf("%.3f", t.Quality.Overall)
		}
		row := []string{
			fmt.Sprintf("%d", i+1),
			strings.Join(pages, ","),
			backend,
			fmt.Sprintf("%d", len(t.Rows)),
			fmt.Sprintf("%d", len(t.Headers)),
			completeness,
			overall,
		}
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	// SetSheetRow wants a pointer to a slice of interface values.
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}
