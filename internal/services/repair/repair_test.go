// repair_test.go verifies CID token translation and garbage stripping.
package repair

import (
	"testing"
)

// TestRepairMapsKnownGlyphs verifies the standard-encoding offset table.
// Printable ASCII sits at glyph index char-29, so cid:72 is 'e'.
func TestRepairMapsKnownGlyphs(t *testing.T) {
	r := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single token", "(cid:72)", "e"},
		{"word of tokens", "(cid:87)(cid:72)(cid:86)(cid:87)", "test"},
		{"token inside text", "Re(cid:86)ult", "Result"},
		{"no tokens passes through", "Revenue 2024", "Revenue 2024"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Repair(tt.input)
			if got != tt.want {
				t.Errorf("Repair(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestRepairStripsUnmappedTokens verifies that tokens outside the glyph
// table are removed entirely — raw escape syntax never survives.
func TestRepairStripsUnmappedTokens(t *testing.T) {
	r := New()

	got := r.Repair("Total(cid:9999)Amount")
	if got != "TotalAmount" {
		t.Errorf("Repair() = %q, want %q", got, "TotalAmount")
	}

	// An empty glyph table strips every token
	empty := NewEmpty()
	if got := empty.Repair("(cid:72)(cid:73)"); got != "" {
		t.Errorf("NewEmpty().Repair() = %q, want empty", got)
	}
}

// TestRepairIdempotent verifies Repair(Repair(s)) == Repair(s).
func TestRepairIdempotent(t *testing.T) {
	r := New()

	inputs := []string{
		"(cid:72)(cid:87)",
		"Total(cid:9999)Amount",
		"plain text",
		"mixed (cid:68) and � garbage",
	}

	for _, in := range inputs {
		once := r.Repair(in)
		twice := r.Repair(once)
		if once != twice {
			t.Errorf("Repair not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

// TestRepairStripsGarbageRunes verifies PUA glyph leftovers, the
// replacement character, and stray control characters are removed.
func TestRepairStripsGarbageRunes(t *testing.T) {
	r := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"replacement character", "Tot�al", "Total"},
		{"private use area", "Q1 Sales", "Q1 Sales"},
		{"control character", "Line\x01Item", "LineItem"},
		{"whitespace survives", "a\tb\nc", "a\tb\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Repair(tt.input)
			if got != tt.want {
				t.Errorf("Repair(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestRepairGrid verifies headers and cells are repaired in place.
func TestRepairGrid(t *testing.T) {
	r := New()

	headers := []string{"(cid:72)", "Amount"}
	rows := [][]string{
		{"(cid:87)", "100"},
		{"plain", "(cid:9999)"},
	}

	r.RepairGrid(headers, rows)

	if headers[0] != "e" {
		t.Errorf("header = %q, want %q", headers[0], "e")
	}
	if rows[0][0] != "t" {
		t.Errorf("cell = %q, want %q", rows[0][0], "t")
	}
	if rows[1][1] != "" {
		t.Errorf("unmapped cell = %q, want empty", rows[1][1])
	}
}
