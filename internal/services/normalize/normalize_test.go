// normalize_test.go covers header dedup, type inference, cell cleanup,
// and the pruning safeguard.
package normalize

import (
	"reflect"
	"testing"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/repair"
)

func newTestNormalizer() *Normalizer {
	return New(repair.New(), 0.8)
}

// TestDedupHeaders verifies unique naming of empty and duplicate headers.
func TestDedupHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{
			name:    "already unique",
			headers: []string{"Date", "Amount", "Notes"},
			want:    []string{"Date", "Amount", "Notes"},
		},
		{
			name:    "empty headers get positional names",
			headers: []string{"", "Amount", ""},
			want:    []string{"Column_1", "Amount", "Column_3"},
		},
		{
			name:    "duplicates get numeric suffixes",
			headers: []string{"Name", "Name", "Name"},
			want:    []string{"Name", "Name_2", "Name_3"},
		},
		{
			name:    "suffix collides with existing header",
			headers: []string{"Name", "Name_2", "Name"},
			want:    []string{"Name", "Name_2", "Name_3"},
		},
		{
			name:    "whitespace-only header is empty",
			headers: []string{"   ", "X"},
			want:    []string{"Column_1", "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupHeaders(tt.headers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DedupHeaders(%v) = %v, want %v", tt.headers, got, tt.want)
			}
		})
	}
}

// TestCleanCell verifies whitespace collapse and null-word removal.
func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  spaced   out  ", "spaced out"},
		{"NaN", ""},
		{"None", ""},
		{"N/A", ""},
		{"-", ""},
		{"non-null", "non-null"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// TestParseNumericCells verifies currency and accounting-format parsing.
func TestParseNumericCells(t *testing.T) {
	t.Run("integers", func(t *testing.T) {
		tests := []struct {
			input string
			want  int64
			ok    bool
		}{
			{"42", 42, true},
			{"1,234", 1234, true},
			{"$5,000", 5000, true},
			{"(250)", -250, true},
			{"3.14", 0, false},
			{"abc", 0, false},
		}
		for _, tt := range tests {
			got, ok := ParseInt(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseInt(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		}
	})

	t.Run("floats", func(t *testing.T) {
		tests := []struct {
			input string
			want  float64
			ok    bool
		}{
			{"3.14", 3.14, true},
			{"$1,234.56", 1234.56, true},
			{"(2.5)", -2.5, true},
			{"12%", 12, true},
			{"abc", 0, false},
		}
		for _, tt := range tests {
			got, ok := ParseFloat(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseFloat(%q) = (%g, %v), want (%g, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		}
	})

	t.Run("dates", func(t *testing.T) {
		for _, ok := range []string{"2024-03-15", "15/03/2024", "Mar 2, 2024"} {
			if _, parsed := ParseDate(ok); !parsed {
				t.Errorf("ParseDate(%q) failed, want success", ok)
			}
		}
		for _, bad := range []string{"not a date", "123", ""} {
			if _, parsed := ParseDate(bad); parsed {
				t.Errorf("ParseDate(%q) succeeded, want failure", bad)
			}
		}
	})
}

// TestNormalizeTypeInference verifies column type coercion at the 0.8
// threshold: columns at or above it coerce, below it stay text.
func TestNormalizeTypeInference(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		Headers: []string{"Item", "Qty", "Price", "Date"},
		Rows: [][]string{
			{"Widget", "10", "$1,000.50", "2024-01-15"},
			{"Gadget", "20", "$2,500.00", "2024-02-20"},
			{"Gizmo", "30", "(500.25)", "2024-03-25"},
			{"Doohickey", "40", "$750.75", "2024-04-30"},
			{"Thingy", "bad", "$100.00", "2024-05-05"},
		},
		Page:    1,
		Backend: "mupdf",
	}

	got := n.Normalize(raw)

	wantTypes := []models.ColumnType{
		models.TypeText,
		models.TypeInteger, // 4 of 5 parse = 0.8, meets threshold
		models.TypeFloat,
		models.TypeDate,
	}
	if !reflect.DeepEqual(got.Types, wantTypes) {
		t.Fatalf("Types = %v, want %v", got.Types, wantTypes)
	}

	// The unparsable qty cell is nulled, not guessed
	if got.Rows[4][1] != "" {
		t.Errorf("unparsable cell = %q, want empty", got.Rows[4][1])
	}
	// Currency noise stripped in coerced values
	if got.Rows[0][2] != "1000.5" {
		t.Errorf("coerced price = %q, want %q", got.Rows[0][2], "1000.5")
	}
	// Accounting negatives carry the sign
	if got.Rows[2][2] != "-500.25" {
		t.Errorf("accounting value = %q, want %q", got.Rows[2][2], "-500.25")
	}
	// Dates normalize to ISO
	if got.Rows[0][3] != "2024-01-15" {
		t.Errorf("date = %q, want %q", got.Rows[0][3], "2024-01-15")
	}
}

// TestNormalizeBelowThresholdStaysText verifies a 50% numeric column is
// left untouched as text.
func TestNormalizeBelowThresholdStaysText(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		Headers: []string{"Mixed"},
		Rows: [][]string{
			{"100"}, {"abc"}, {"200"}, {"def"},
		},
		Page:    1,
		Backend: "mupdf",
	}

	got := n.Normalize(raw)
	if got.Types[0] != models.TypeText {
		t.Fatalf("type = %v, want text", got.Types[0])
	}
	if got.Rows[1][0] != "abc" {
		t.Errorf("text cell was rewritten: %q", got.Rows[1][0])
	}
}

// TestNormalizeForwardFill verifies merged-cell holes are filled from above.
func TestNormalizeForwardFill(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		Headers: []string{"Region", "Sales"},
		Rows: [][]string{
			{"North", "100"},
			{"", "200"},
			{"", "300"},
			{"South", "400"},
		},
		Page:    1,
		Backend: "pdfcpu",
	}

	got := n.Normalize(raw)
	if got.Rows[1][0] != "North" || got.Rows[2][0] != "North" {
		t.Errorf("forward fill failed: %v", got.Rows)
	}
	if got.Rows[3][0] != "South" {
		t.Errorf("fill overran a real value: %q", got.Rows[3][0])
	}
}

// TestNormalizePruning verifies empty rows and columns are dropped.
func TestNormalizePruning(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		Headers: []string{"A", "Empty", "B"},
		Rows: [][]string{
			{"1", "", "x"},
			{"", "", ""}, // fully empty row
			{"2", "", "y"},
		},
		Page:    1,
		Backend: "ledongthuc",
	}

	got := n.Normalize(raw)
	if !reflect.DeepEqual(got.Headers, []string{"A", "B"}) {
		t.Errorf("Headers = %v, want [A B]", got.Headers)
	}
	if len(got.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(got.Rows))
	}
	if got.LowQuality {
		t.Error("LowQuality set on a healthy table")
	}
}

// TestNormalizeSafeguard verifies an all-null table keeps its shape and is
// flagged instead of collapsing to zero dimensions.
func TestNormalizeSafeguard(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		Headers: []string{"A", "B"},
		Rows: [][]string{
			{"", ""},
			{"NaN", "None"},
		},
		Page:    2,
		Backend: "mupdf",
	}

	got := n.Normalize(raw)
	if !got.LowQuality {
		t.Fatal("LowQuality not set on an all-null table")
	}
	if len(got.Headers) != 2 || len(got.Rows) != 2 {
		t.Errorf("shape = %dx%d, want 2x2", len(got.Rows), len(got.Headers))
	}
}

// TestNormalizeRepairsCIDHeaders verifies repair integration: CID-encoded
// headers come out readable and then dedup cleanly.
func TestNormalizeRepairsCIDHeaders(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawTable{
		// Both headers decode to "test"
		Headers: []string{"(cid:87)(cid:72)(cid:86)(cid:87)", "(cid:87)(cid:72)(cid:86)(cid:87)"},
		Rows: [][]string{
			{"1", "2"},
		},
		Page:    1,
		Backend: "mupdf",
	}

	got := n.Normalize(raw)
	if !reflect.DeepEqual(got.Headers, []string{"test", "test_2"}) {
		t.Errorf("Headers = %v, want [test test_2]", got.Headers)
	}
}
