// tables.go defines the typed table structures flowing through the
// extraction pipeline: RawTable → NormalizedTable → MergedTable.
//
// Each stage has its own struct so the type system tracks how far a table
// has progressed — a MergedTable can only be built from NormalizedTables,
// never from raw backend output.
//
// Cell convention: cells are plain strings and the empty string is the
// null sentinel. Backends trim whitespace before handing cells over, so
// "" consistently means "no value extracted here".
package models

import "strings"

// Document identifies a validated PDF handed to the pipeline.
// It is created once at ingestion and never mutated afterwards.
type Document struct {
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"` // MD5 of the file content
	PageCount   int    `json:"page_count"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ExtractionRequest bundles everything a pipeline run needs.
// Created per invocation; not persisted.
type ExtractionRequest struct {
	Document     Document
	Pages        []int             // nil = all pages (1-based)
	Method       string            // "auto" or a specific backend id
	MergeSimilar bool              // Merge structurally equivalent tables
	Options      map[string]string // Pass-through backend options
}

// ColumnType is the inferred type of a normalized column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeDate    ColumnType = "date"
)

// RawTable is one extraction result straight from a backend, already
// reshaped to a rectangular grid but otherwise untouched.
type RawTable struct {
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Page       int        `json:"page"`    // 1-based source page
	Backend    string     `json:"backend"` // Backend id that produced it
	Confidence float64    `json:"confidence,omitempty"` // Backend-reported, 0 if unsupported
}

// NormalizedTable is a RawTable after text repair, header dedup,
// type coercion, and empty row/column pruning. Header names are unique
// and every cell is consistent with its column's inferred type (or null).
type NormalizedTable struct {
	Headers    []string     `json:"headers"`
	Types      []ColumnType `json:"types"`
	Rows       [][]string   `json:"rows"`
	Page       int          `json:"page"`
	Backend    string       `json:"backend"`
	LowQuality bool         `json:"low_quality,omitempty"` // Pruning safeguard tripped
}

// TableSource records where one contribution to a merged table came from.
type TableSource struct {
	Page    int    `json:"page"`
	Backend string `json:"backend"`
}

// MergedTable is the union of one or more structurally equivalent
// NormalizedTables. Column count and order are fixed at merge time.
type MergedTable struct {
	Headers []string      `json:"headers"`
	Types   []ColumnType  `json:"types"`
	Rows    [][]string    `json:"rows"`
	Sources []TableSource `json:"sources"` // Contributing (page, backend) pairs, page order
	Quality *QualityReport `json:"quality,omitempty"`
}

// QualityReport scores a table's extraction quality. It is a pure
// function of the table it was computed from — same table, same report.
type QualityReport struct {
	Completeness    float64 `json:"completeness"`     // filled cells / total cells
	NullRatio       float64 `json:"null_ratio"`       // 1 - completeness
	TypeConsistency float64 `json:"type_consistency"` // columns fully matching their type
	Overall         float64 `json:"overall"`          // weighted average, always in [0,1]
}

// ColumnSignature is the ordered (normalized header, type) list that
// characterizes a table's structure for merge-compatibility checks.
type ColumnSignature []SignatureColumn

// SignatureColumn is one entry of a ColumnSignature.
type SignatureColumn struct {
	Name string     // lowercased, whitespace-collapsed header
	Type ColumnType
}

// Signature computes the column signature of a normalized table.
func (t *NormalizedTable) Signature() ColumnSignature {
	sig := make(ColumnSignature, len(t.Headers))
	for i, h := range t.Headers {
		sig[i] = SignatureColumn{
			Name: strings.Join(strings.Fields(strings.ToLower(h)), " "),
			Type: t.Types[i],
		}
	}
	return sig
}

// PipelineResult is what a full pipeline run hands back to the caller.
type PipelineResult struct {
	Tables     []MergedTable `json:"tables"`
	MethodUsed string        `json:"method_used"` // Backend that actually produced the tables
	Degraded   bool          `json:"degraded"`    // No backend met the acceptance threshold
	EmptyPages []int         `json:"empty_pages,omitempty"` // Requested pages that yielded nothing
}
