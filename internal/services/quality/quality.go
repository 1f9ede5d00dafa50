// Package quality scores extraction results.
//
// Scores are deterministic functions of the table they are computed
// from — no I/O, no clock, no hidden state — so the method selector can
// compare backends fairly and re-scoring a table always agrees with the
// report stored on it.
package quality

import (
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/normalize"
)

// Weights for the overall score. Completeness and type consistency carry
// equal weight.
const (
	completenessWeight    = 0.5
	typeConsistencyWeight = 0.5
)

// Score computes a QualityReport for a normalized table.
func Score(t models.NormalizedTable) models.QualityReport {
	return score(t.Headers, t.Types, t.Rows)
}

// ScoreMerged computes a QualityReport for a merged table.
func ScoreMerged(t models.MergedTable) models.QualityReport {
	return score(t.Headers, t.Types, t.Rows)
}

// ScoreRaw scores a raw table before normalization, treating every
// column as text. Used by the analyze endpoint to compare backends on
// their unprocessed output.
func ScoreRaw(t models.RawTable) models.QualityReport {
	types := make([]models.ColumnType, len(t.Headers))
	for i := range types {
		types[i] = models.TypeText
	}
	return score(t.Headers, types, t.Rows)
}

func score(headers []string, types []models.ColumnType, rows [][]string) models.QualityReport {
	total := len(rows) * len(headers)
	if total == 0 {
		return models.QualityReport{NullRatio: 1}
	}

	filled := 0
	for _, row := range rows {
		for _, cell := range row {
			if cell != "" {
				filled++
			}
		}
	}
	completeness := float64(filled) / float64(total)

	consistent := 0
	for col := range headers {
		if columnConsistent(rows, col, types[col]) {
			consistent++
		}
	}
	typeConsistency := float64(consistent) / float64(len(headers))

	// An entirely empty table has no type evidence at all; scoring its
	// columns as "consistent" would reward a backend for extracting nothing.
	if filled == 0 {
		typeConsistency = 0
	}

	return models.QualityReport{
		Completeness:    completeness,
		NullRatio:       1 - completeness,
		TypeConsistency: typeConsistency,
		Overall:         completenessWeight*completeness + typeConsistencyWeight*typeConsistency,
	}
}

// columnConsistent reports whether every non-null value in a column
// matches the column's inferred type.
func columnConsistent(rows [][]string, col int, typ models.ColumnType) bool {
	for _, row := range rows {
		if col >= len(row) || row[col] == "" {
			continue
		}
		switch typ {
		case models.TypeInteger:
			if _, ok := normalize.ParseInt(row[col]); !ok {
				return false
			}
		case models.TypeFloat:
			if _, ok := normalize.ParseFloat(row[col]); !ok {
				return false
			}
		case models.TypeDate:
			if _, ok := normalize.ParseDate(row[col]); !ok {
				return false
			}
		case models.TypeText:
			// Text accepts anything.
		}
	}
	return true
}
