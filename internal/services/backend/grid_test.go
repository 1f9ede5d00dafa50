package backend

import (
	"reflect"
	"testing"
)

func TestSplitCells(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"double space boundary", "Name  Qty  Price", []string{"Name", "Qty", "Price"}},
		{"tab boundary", "Name\tQty", []string{"Name", "Qty"}},
		{"wide gaps", "alpha     1      2.50", []string{"alpha", "1", "2.50"}},
		{"single spaces stay in one cell", "New York  10", []string{"New York", "10"}},
		{"leading and trailing space trimmed", "  Name  Qty  ", []string{"Name", "Qty"}},
		{"single cell", "just a sentence", []string{"just a sentence"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCells(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitCells(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestTablesFromLines(t *testing.T) {
	t.Run("single block with header", func(t *testing.T) {
		lines := []string{
			"Name  Qty",
			"alpha  1",
			"beta  2",
		}
		tables := tablesFromLines(lines, 3, "mupdf")
		if len(tables) != 1 {
			t.Fatalf("got %d tables, want 1", len(tables))
		}
		tbl := tables[0]
		if !reflect.DeepEqual(tbl.Headers, []string{"Name", "Qty"}) {
			t.Errorf("Headers = %v", tbl.Headers)
		}
		if len(tbl.Rows) != 2 {
			t.Errorf("got %d rows, want 2", len(tbl.Rows))
		}
		if tbl.Page != 3 || tbl.Backend != "mupdf" {
			t.Errorf("provenance = page %d backend %q", tbl.Page, tbl.Backend)
		}
	})

	t.Run("blank line splits blocks", func(t *testing.T) {
		lines := []string{
			"Name  Qty",
			"alpha  1",
			"",
			"City  Pop",
			"lima  11",
		}
		tables := tablesFromLines(lines, 1, "mupdf")
		if len(tables) != 2 {
			t.Fatalf("got %d tables, want 2", len(tables))
		}
		if tables[1].Headers[0] != "City" {
			t.Errorf("second table headers = %v", tables[1].Headers)
		}
	})

	t.Run("prose lines ignored", func(t *testing.T) {
		lines := []string{
			"This page describes the quarterly results in detail.",
			"Region  Revenue",
			"north  100",
			"A closing remark below the table.",
		}
		tables := tablesFromLines(lines, 1, "mupdf")
		if len(tables) != 1 {
			t.Fatalf("got %d tables, want 1", len(tables))
		}
		if len(tables[0].Rows) != 1 {
			t.Errorf("got %d rows, want 1", len(tables[0].Rows))
		}
	})

	t.Run("header alone is not a table", func(t *testing.T) {
		lines := []string{
			"Name  Qty",
			"",
			"some prose",
		}
		if tables := tablesFromLines(lines, 1, "mupdf"); len(tables) != 0 {
			t.Errorf("got %d tables, want 0", len(tables))
		}
	})

	t.Run("width drift of one tolerated", func(t *testing.T) {
		lines := []string{
			"Name  Qty  Note",
			"alpha  1  first",
			"beta  2", // ragged row, one column short
		}
		tables := tablesFromLines(lines, 1, "mupdf")
		if len(tables) != 1 {
			t.Fatalf("got %d tables, want 1", len(tables))
		}
		// Padded back to the widest row.
		if got := tables[0].Rows[1]; !reflect.DeepEqual(got, []string{"beta", "2", ""}) {
			t.Errorf("ragged row = %v, want padded", got)
		}
	})

	t.Run("width jump splits blocks", func(t *testing.T) {
		lines := []string{
			"A  B  C  D",
			"1  2  3  4",
			"x  y", // 2 cells after 4 — new block
			"p  q",
		}
		tables := tablesFromLines(lines, 1, "mupdf")
		if len(tables) != 2 {
			t.Fatalf("got %d tables, want 2", len(tables))
		}
	})

	t.Run("no lines", func(t *testing.T) {
		if tables := tablesFromLines(nil, 1, "mupdf"); tables != nil {
			t.Errorf("got %v, want nil", tables)
		}
	})
}
