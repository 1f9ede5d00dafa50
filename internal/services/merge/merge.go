// Package merge consolidates structurally equivalent tables.
//
// Tables extracted from consecutive pages are often fragments of one
// logical table. Two normalized tables are merge candidates when their
// column signatures match exactly, or match after case/whitespace
// normalization with at most one column of difference (a header wrapped
// across two extracted columns is the common culprit).
//
// Grouping uses a union-find over PAIRWISE similarity checks. Similarity
// is reflexive and symmetric but not assumed transitive — we never chain
// A~B~C into a merge of A and C unless each pair stood on its own check,
// which union-find over explicit pair edges gives us without inventing
// inferred edges.
package merge

import (
	"sort"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// similarityThreshold is the minimum Jaccard overlap of normalized header
// names for two tables with unequal column counts to merge. Matches the
// 0.8 column-overlap heuristic the extraction literature converges on.
const similarityThreshold = 0.8

// Merge groups structurally equivalent tables and concatenates each group.
// Output order follows first-appearance page order; tables with no match
// pass through as single-source MergedTables.
func Merge(tables []models.NormalizedTable) []models.MergedTable {
	if len(tables) == 0 {
		return nil
	}

	// Stable page order first, so "first table in the group" is the one
	// from the earliest page and concatenation preserves reading order.
	idx := make([]int, len(tables))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tables[idx[a]].Page < tables[idx[b]].Page
	})

	uf := newUnionFind(len(tables))
	for a := 0; a < len(idx); a++ {
		for b := a + 1; b < len(idx); b++ {
			if Similar(&tables[idx[a]], &tables[idx[b]]) {
				uf.union(idx[a], idx[b])
			}
		}
	}

	// Collect groups in first-appearance order.
	groups := make(map[int][]int)
	var order []int
	for _, i := range idx {
		root := uf.find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}

	out := make([]models.MergedTable, 0, len(order))
	for _, root := range order {
		out = append(out, concat(tables, groups[root]))
	}
	return out
}

// Similar is the pairwise merge-compatibility check. Reflexive and
// symmetric; callers must not rely on transitivity.
func Similar(a, b *models.NormalizedTable) bool {
	sa, sb := a.Signature(), b.Signature()

	if signaturesEqual(sa, sb) {
		return true
	}

	// Allow one column of drift for split/merged header artifacts,
	// but only when the name overlap stays high.
	if diff := len(sa) - len(sb); diff < -1 || diff > 1 {
		return false
	}
	return jaccard(names(sa), names(sb)) >= similarityThreshold
}

func signaturesEqual(a, b models.ColumnSignature) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func names(sig models.ColumnSignature) map[string]bool {
	m := make(map[string]bool, len(sig))
	for _, c := range sig {
		m[c.Name] = true
	}
	return m
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// concat builds one MergedTable from the group members named by ids
// (already in page order). Column order follows the first table; columns
// a contributor lacks are padded with nulls.
func concat(tables []models.NormalizedTable, ids []int) models.MergedTable {
	first := tables[ids[0]]

	merged := models.MergedTable{
		Headers: append([]string(nil), first.Headers...),
		Types:   append([]models.ColumnType(nil), first.Types...),
	}

	// Column lookup by normalized name for padding mismatched contributors.
	colOf := make(map[string]int, len(first.Headers))
	for i, c := range first.Signature() {
		colOf[c.Name] = i
	}

	for _, id := range ids {
		t := tables[id]
		merged.Sources = append(merged.Sources, models.TableSource{Page: t.Page, Backend: t.Backend})

		// Map each contributor column onto the merged layout.
		mapping := make([]int, len(t.Headers)) // contributor col -> merged col, -1 = dropped
		for i, c := range t.Signature() {
			if j, ok := colOf[c.Name]; ok {
				mapping[i] = j
			} else {
				mapping[i] = -1
			}
		}

		for _, row := range t.Rows {
			out := make([]string, len(merged.Headers))
			for i, cell := range row {
				if i < len(mapping) && mapping[i] >= 0 {
					out[mapping[i]] = cell
				}
			}
			merged.Rows = append(merged.Rows, out)
		}
	}
	return merged
}

// unionFind is a plain disjoint-set with path compression.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		// Attach the later root under the earlier so group roots track
		// first appearance.
		if ra < rb {
			u.parent[rb] = ra
		} else {
			u.parent[ra] = rb
		}
	}
}
