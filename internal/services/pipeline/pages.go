// pages.go parses the page-selector grammar: "N", "N-M", and
// comma-separated combinations like "1,3,5-7". Parsed left to right,
// duplicates collapsed, result sorted ascending.
package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// ParsePageSelector parses a selector string into a sorted, deduplicated
// list of 1-based page numbers. An empty selector returns nil, meaning
// "all pages". Malformed parts are skipped; if nothing valid remains the
// whole selector is rejected as malformed input.
func ParsePageSelector(selector string) ([]int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if start, end, ok := parseRange(part); ok {
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}

		if p, err := strconv.Atoi(part); err == nil && p > 0 {
			seen[p] = true
		}
	}

	if len(seen) == 0 {
		return nil, &models.ValidationError{
			Kind:    "malformed_input",
			Message: "page selector " + strconv.Quote(selector) + " contains no valid pages",
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// parseRange parses "N-M" with 1 <= N <= M.
func parseRange(part string) (start, end int, ok bool) {
	dash := strings.Index(part, "-")
	if dash <= 0 {
		return 0, 0, false
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(part[:dash]))
	end, err2 := strconv.Atoi(strings.TrimSpace(part[dash+1:]))
	if err1 != nil || err2 != nil || start < 1 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// resolvePages fills in the "all pages" case and drops pages beyond the
// document. A nil selector means every page of the document.
func resolvePages(selected []int, pageCount int) []int {
	if selected == nil {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i + 1
		}
		return all
	}
	out := selected[:0:0]
	for _, p := range selected {
		if p >= 1 && p <= pageCount {
			out = append(out, p)
		}
	}
	return out
}

// chunkPages slices pages into batches of at most size, preserving order.
// Cancellation is checked between batches, so a chunk is also the unit of
// cooperative cancellation.
func chunkPages(pages []int, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var chunks [][]int
	for start := 0; start < len(pages); start += size {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		chunks = append(chunks, pages[start:end])
	}
	return chunks
}
