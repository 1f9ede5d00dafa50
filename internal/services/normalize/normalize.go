// Package normalize turns raw extraction output into analysis-ready tables.
//
// Three passes over each RawTable:
//  1. header repair + dedup — empty headers become Column_{i}, duplicates
//     get _2/_3 suffixes, so every column name is unique within the table
//  2. cell cleanup — whitespace collapse, null-word removal, CID repair
//     (delegated to the repair package), merged-cell forward fill
//  3. type inference — a column is coerced to integer/float/date when at
//     least a configurable fraction of its non-null cells parse as that
//     type; cells that don't parse are nulled, not guessed
//
// Entirely empty rows and columns are pruned afterwards, unless pruning
// would leave nothing — then the table is flagged low-quality instead.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/repair"
)

// Normalizer holds the knobs for table normalization.
type Normalizer struct {
	repairer        *repair.Repairer
	minTypeFraction float64 // e.g. 0.8 — cells that must parse before coercing
	forwardFill     bool    // fill blanks left by merged cells from the row above
}

// New creates a Normalizer. minTypeFraction is clamped to [0,1].
func New(r *repair.Repairer, minTypeFraction float64) *Normalizer {
	if minTypeFraction < 0 {
		minTypeFraction = 0
	}
	if minTypeFraction > 1 {
		minTypeFraction = 1
	}
	return &Normalizer{repairer: r, minTypeFraction: minTypeFraction, forwardFill: true}
}

// nullWords are string spellings of "no value" that extraction libraries
// leak into cells. Compared case-sensitively on the exact trimmed cell.
var nullWords = map[string]bool{
	"nan": true, "NaN": true, "None": true, "null": true,
	"NULL": true, "<NA>": true, "N/A": true, "-": true,
}

// Normalize converts a RawTable into a NormalizedTable.
func (n *Normalizer) Normalize(raw models.RawTable) models.NormalizedTable {
	headers := make([]string, len(raw.Headers))
	copy(headers, raw.Headers)
	rows := make([][]string, len(raw.Rows))
	for i, r := range raw.Rows {
		row := make([]string, len(headers))
		copy(row, r) // also pads short rows with "" to keep the grid rectangular
		rows[i] = row
	}

	// Pass 1: repair + clean every string, then dedup headers.
	n.repairer.RepairGrid(headers, rows)
	for i := range headers {
		headers[i] = CleanCell(headers[i])
	}
	for _, row := range rows {
		for i := range row {
			row[i] = CleanCell(row[i])
		}
	}
	headers = DedupHeaders(headers)

	if n.forwardFill {
		forwardFill(rows)
	}

	// Pass 2: prune empty rows/columns, with the never-empty safeguard.
	lowQuality := false
	rows = pruneEmptyRows(rows)
	headers, rows = pruneEmptyColumns(headers, rows)
	if len(rows) == 0 || len(headers) == 0 {
		// Restore the original shape rather than emit a zero-dimension table.
		headers = DedupHeaders(cleanCopy(raw.Headers, n.repairer))
		rows = rawRows(raw, len(headers), n.repairer)
		lowQuality = true
	}

	// Pass 3: infer and coerce column types.
	types := make([]models.ColumnType, len(headers))
	for col := range headers {
		types[col] = n.coerceColumn(rows, col)
	}

	return models.NormalizedTable{
		Headers:    headers,
		Types:      types,
		Rows:       rows,
		Page:       raw.Page,
		Backend:    raw.Backend,
		LowQuality: lowQuality,
	}
}

// DedupHeaders makes every header unique. Empty headers become
// Column_{index} (1-based); a repeat of an earlier header gets a numeric
// suffix: Name, Name_2, Name_3, …
func DedupHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	counts := make(map[string]int, len(headers))

	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}

		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s_%d", h, counts[h]+1)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// CleanCell trims a cell, collapses internal whitespace runs to single
// spaces, and maps null-word spellings to the empty string.
func CleanCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if nullWords[s] {
		return ""
	}
	return s
}

// coerceColumn infers a column's type from its non-null cells and coerces
// every cell to it. Unparsable cells become null; a column that doesn't
// reach the threshold for any concrete type stays text.
func (n *Normalizer) coerceColumn(rows [][]string, col int) models.ColumnType {
	var nonNull, ints, floats, dates int
	for _, row := range rows {
		v := row[col]
		if v == "" {
			continue
		}
		nonNull++
		if _, ok := ParseInt(v); ok {
			ints++
		}
		if _, ok := ParseFloat(v); ok {
			floats++
		}
		if _, ok := ParseDate(v); ok {
			dates++
		}
	}
	if nonNull == 0 {
		return models.TypeText
	}

	threshold := n.minTypeFraction * float64(nonNull)

	// Integer wins over float when both qualify (every int parses as float).
	switch {
	case float64(ints) >= threshold:
		coerce(rows, col, func(v string) (string, bool) {
			i, ok := ParseInt(v)
			return strconv.FormatInt(i, 10), ok
		})
		return models.TypeInteger
	case float64(floats) >= threshold:
		coerce(rows, col, func(v string) (string, bool) {
			f, ok := ParseFloat(v)
			return strconv.FormatFloat(f, 'f', -1, 64), ok
		})
		return models.TypeFloat
	case float64(dates) >= threshold:
		coerce(rows, col, func(v string) (string, bool) {
			t, ok := ParseDate(v)
			return t.Format("2006-01-02"), ok
		})
		return models.TypeDate
	default:
		return models.TypeText
	}
}

// coerce rewrites every cell of a column through parse, nulling failures.
func coerce(rows [][]string, col int, parse func(string) (string, bool)) {
	for _, row := range rows {
		if row[col] == "" {
			continue
		}
		if v, ok := parse(row[col]); ok {
			row[col] = v
		} else {
			row[col] = ""
		}
	}
}

// numericCleaner strips currency symbols, thousands separators, and the
// accounting-negative parentheses before numeric parsing.
var numericCleaner = strings.NewReplacer(
	",", "", "$", "", "¥", "", "€", "", "£", "", "%", "", " ", "",
)

// ParseInt parses a cell as an integer after stripping currency noise.
func ParseInt(s string) (int64, bool) {
	s, neg := trimAccounting(numericCleaner.Replace(s))
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		i = -i
	}
	return i, true
}

// ParseFloat parses a cell as a float after stripping currency noise.
func ParseFloat(s string) (float64, bool) {
	s, neg := trimAccounting(numericCleaner.Replace(s))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// trimAccounting unwraps "(123)" into "123" with a negative flag.
func trimAccounting(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// dateLayouts are tried in order. ISO first since it's unambiguous.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
}

// ParseDate parses a cell as a date under the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// forwardFill copies the value above into blank cells, repairing the
// holes vertical merged cells leave behind. Only fills below an actual
// value — a column that starts blank stays blank.
func forwardFill(rows [][]string) {
	if len(rows) < 2 {
		return
	}
	for col := 0; col < len(rows[0]); col++ {
		last := ""
		for _, row := range rows {
			if row[col] != "" {
				last = row[col]
			} else if last != "" {
				row[col] = last
			}
		}
	}
}

func pruneEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		empty := true
		for _, c := range row {
			if c != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

func pruneEmptyColumns(headers []string, rows [][]string) ([]string, [][]string) {
	var keep []int
	for col := range headers {
		empty := true
		for _, row := range rows {
			if row[col] != "" {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, col)
		}
	}
	if len(keep) == len(headers) {
		return headers, rows
	}

	newHeaders := make([]string, len(keep))
	for i, col := range keep {
		newHeaders[i] = headers[col]
	}
	newRows := make([][]string, len(rows))
	for i, row := range rows {
		nr := make([]string, len(keep))
		for j, col := range keep {
			nr[j] = row[col]
		}
		newRows[i] = nr
	}
	return newHeaders, newRows
}

// cleanCopy repairs and cleans a header slice without touching the original.
func cleanCopy(headers []string, r *repair.Repairer) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = CleanCell(r.Repair(h))
	}
	return out
}

// rawRows rebuilds cleaned (but unpruned) rows from the raw table,
// used when the pruning safeguard trips.
func rawRows(raw models.RawTable, width int, r *repair.Repairer) [][]string {
	rows := make([][]string, len(raw.Rows))
	for i, src := range raw.Rows {
		row := make([]string, width)
		for j := 0; j < width && j < len(src); j++ {
			row[j] = CleanCell(r.Repair(src[j]))
		}
		rows[i] = row
	}
	return rows
}
