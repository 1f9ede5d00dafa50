// merge_test.go covers pairwise similarity, grouping, and concatenation.
package merge

import (
	"reflect"
	"testing"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

func table(page int, headers []string, types []models.ColumnType, rows ...[]string) models.NormalizedTable {
	return models.NormalizedTable{
		Headers: headers,
		Types:   types,
		Rows:    rows,
		Page:    page,
		Backend: "mupdf",
	}
}

var numText = []models.ColumnType{models.TypeText, models.TypeInteger}

// TestSimilar verifies the pairwise compatibility rules.
func TestSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b models.NormalizedTable
		want bool
	}{
		{
			name: "identical signatures",
			a:    table(1, []string{"Item", "Qty"}, numText),
			b:    table(2, []string{"Item", "Qty"}, numText),
			want: true,
		},
		{
			name: "case and whitespace normalized",
			a:    table(1, []string{"Item  Name", "Qty"}, numText),
			b:    table(2, []string{"item name", "QTY"}, numText),
			want: true,
		},
		{
			name: "one extra column with high overlap",
			a: table(1, []string{"A", "B", "C", "D", "E"},
				[]models.ColumnType{models.TypeText, models.TypeText, models.TypeText, models.TypeText, models.TypeText}),
			b: table(2, []string{"A", "B", "C", "D"},
				[]models.ColumnType{models.TypeText, models.TypeText, models.TypeText, models.TypeText}),
			want: true, // jaccard 4/5 = 0.8
		},
		{
			name: "two extra columns never merge",
			a: table(1, []string{"A", "B", "C", "D"},
				[]models.ColumnType{models.TypeText, models.TypeText, models.TypeText, models.TypeText}),
			b:    table(2, []string{"A", "B"}, []models.ColumnType{models.TypeText, models.TypeText}),
			want: false,
		},
		{
			name: "same width but disjoint names",
			a:    table(1, []string{"Item", "Qty"}, numText),
			b:    table(2, []string{"Region", "Total"}, numText),
			want: false,
		},
		{
			name: "same names different types",
			a:    table(1, []string{"Item", "Qty"}, numText),
			b: table(2, []string{"Item", "Qty"},
				[]models.ColumnType{models.TypeText, models.TypeText}),
			// Signatures differ on type, but name overlap is total
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similar(&tt.a, &tt.b); got != tt.want {
				t.Errorf("Similar() = %v, want %v", got, tt.want)
			}
			// Symmetry
			if got := Similar(&tt.b, &tt.a); got != tt.want {
				t.Errorf("Similar() not symmetric for %s", tt.name)
			}
		})
	}
}

// TestMergeGroupsAcrossPages verifies page fragments concatenate in page
// order with provenance recorded per fragment.
func TestMergeGroupsAcrossPages(t *testing.T) {
	tables := []models.NormalizedTable{
		table(2, []string{"Item", "Qty"}, numText, []string{"b", "2"}),
		table(1, []string{"Item", "Qty"}, numText, []string{"a", "1"}),
		table(3, []string{"Region", "Total"}, numText, []string{"north", "9"}),
	}

	got := Merge(tables)
	if len(got) != 2 {
		t.Fatalf("merged groups = %d, want 2", len(got))
	}

	// First group: the Item/Qty fragments in page order
	if !reflect.DeepEqual(got[0].Rows, [][]string{{"a", "1"}, {"b", "2"}}) {
		t.Errorf("rows = %v, want page order a,b", got[0].Rows)
	}
	wantSources := []models.TableSource{
		{Page: 1, Backend: "mupdf"},
		{Page: 2, Backend: "mupdf"},
	}
	if !reflect.DeepEqual(got[0].Sources, wantSources) {
		t.Errorf("sources = %v, want %v", got[0].Sources, wantSources)
	}

	// Second group: the unmatched table passes through
	if len(got[1].Sources) != 1 || got[1].Sources[0].Page != 3 {
		t.Errorf("pass-through sources = %v", got[1].Sources)
	}
}

// TestMergePadsMissingColumns verifies a narrower contributor is padded
// with nulls in the columns it lacks.
func TestMergePadsMissingColumns(t *testing.T) {
	wide := table(1, []string{"A", "B", "C", "D", "E"},
		[]models.ColumnType{models.TypeText, models.TypeText, models.TypeText, models.TypeText, models.TypeText},
		[]string{"1", "2", "3", "4", "5"})
	narrow := table(2, []string{"A", "B", "C", "D"},
		[]models.ColumnType{models.TypeText, models.TypeText, models.TypeText, models.TypeText},
		[]string{"6", "7", "8", "9"})

	got := Merge([]models.NormalizedTable{wide, narrow})
	if len(got) != 1 {
		t.Fatalf("merged groups = %d, want 1", len(got))
	}

	if len(got[0].Headers) != 5 {
		t.Fatalf("headers = %d, want layout of the first table", len(got[0].Headers))
	}
	// The narrow table's row is padded with a null in column E
	want := []string{"6", "7", "8", "9", ""}
	if !reflect.DeepEqual(got[0].Rows[1], want) {
		t.Errorf("padded row = %v, want %v", got[0].Rows[1], want)
	}
}

// TestMergeNoDoubleAssignment verifies every input table lands in exactly
// one output group.
func TestMergeNoDoubleAssignment(t *testing.T) {
	tables := []models.NormalizedTable{
		table(1, []string{"Item", "Qty"}, numText, []string{"a", "1"}),
		table(2, []string{"Item", "Qty"}, numText, []string{"b", "2"}),
		table(3, []string{"Item", "Qty"}, numText, []string{"c", "3"}),
		table(4, []string{"X", "Y"}, numText, []string{"d", "4"}),
	}

	got := Merge(tables)

	totalSources := 0
	for _, m := range got {
		totalSources += len(m.Sources)
	}
	if totalSources != len(tables) {
		t.Errorf("total source count = %d, want %d", totalSources, len(tables))
	}

	totalRows := 0
	for _, m := range got {
		totalRows += len(m.Rows)
	}
	if totalRows != 4 {
		t.Errorf("total rows = %d, want 4", totalRows)
	}
}

// TestMergeEmpty verifies the trivial inputs.
func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil); got != nil {
		t.Errorf("Merge(nil) = %v, want nil", got)
	}

	single := []models.NormalizedTable{table(1, []string{"A"}, []models.ColumnType{models.TypeText}, []string{"x"})}
	got := Merge(single)
	if len(got) != 1 || len(got[0].Rows) != 1 {
		t.Errorf("single table should pass through, got %v", got)
	}
}
