// Package pipeline orchestrates a full extraction run:
// select method → extract → repair → normalize → merge → validate.
//
// The run is a state machine: Pending → Selecting → Extracting →
// Repairing → Normalizing → Merging → Validating → Done | Failed.
// Only two things reach the caller as hard failures: a ConfigError
// (unknown method) and the Failed state, which happens only when every
// candidate backend errored. Everything else degrades gracefully and is
// reflected in quality metadata instead.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
	"github.com/fileto-labs/pdf-tables-api/internal/services/merge"
	"github.com/fileto-labs/pdf-tables-api/internal/services/normalize"
	"github.com/fileto-labs/pdf-tables-api/internal/services/quality"
	"github.com/fileto-labs/pdf-tables-api/internal/services/repair"
)

// Stage names a pipeline state. Exported for status reporting and logs.
type Stage string

const (
	StagePending     Stage = "pending"
	StageSelecting   Stage = "selecting"
	StageExtracting  Stage = "extracting"
	StageRepairing   Stage = "repairing"
	StageNormalizing Stage = "normalizing"
	StageMerging     Stage = "merging"
	StageValidating  Stage = "validating"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// FailedError is the terminal Failed state: every candidate backend
// errored. It aggregates each backend's failure reason.
type FailedError struct {
	Failures []*models.BackendError
}

func (e *FailedError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "all extraction backends failed: " + strings.Join(parts, "; ")
}

// Pipeline runs extractions. Safe for concurrent use: each Run keeps all
// mutable state on its own stack, so batch workers can share one Pipeline.
type Pipeline struct {
	cfg      *config.Config
	registry Selector
}

// Selector is the slice of the backend registry the pipeline needs.
// Go Pattern: the interface is defined where it's used, and it's small —
// tests substitute a stub registry without touching real PDF libraries.
type Selector interface {
	Select(method string) ([]backend.Backend, error)
}

// New creates a Pipeline.
func New(cfg *config.Config, registry Selector) *Pipeline {
	return &Pipeline{cfg: cfg, registry: registry}
}

// attempt is one backend's full processed result, kept so the best
// candidate can be returned when nobody meets the acceptance threshold.
type attempt struct {
	backendID string
	tables    []models.MergedTable
	score     float64
}

// Run executes the pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, req models.ExtractionRequest) (*models.PipelineResult, error) {
	stage := StagePending
	transition := func(next Stage) {
		stage = next
		log.Printf("📑 [%s] %s", req.Document.Path, stage)
	}

	// Selecting: resolve the backends to try. A specific method gives a
	// single candidate with no fallback; auto gives the configured
	// priority filtered to available backends.
	transition(StageSelecting)
	candidates, err := p.registry.Select(req.Method)
	if err != nil {
		return nil, err // ConfigError — hard failure
	}
	if len(candidates) == 0 {
		return nil, &FailedError{Failures: []*models.BackendError{{
			Backend: "selector",
			Reason:  models.ReasonInternalFailure,
			Err:     fmt.Errorf("no backend available in this environment"),
		}}}
	}

	pages := resolvePages(req.Pages, req.Document.PageCount)
	if len(pages) == 0 {
		return nil, &models.ValidationError{Kind: "malformed_input", Message: "no requested page exists in the document"}
	}

	var failures []*models.BackendError
	var best *attempt

	transition(StageExtracting)
	for _, b := range candidates {
		raw, berr := p.extractWithBackend(ctx, b, req, pages)
		if berr != nil {
			log.Printf("⚠️  Backend %s failed (%s), trying next", b.ID(), berr.Reason)
			failures = append(failures, berr)
			if ctx.Err() != nil && berr.Reason == models.ReasonTimeout {
				// The caller cancelled, not the per-chunk timeout —
				// stop burning backends on a request nobody wants.
				break
			}
			continue
		}

		// Repairing + Normalizing: one pass per table. A repair failure
		// on a cell nulls the cell inside the normalizer, never aborts.
		transition(StageRepairing)
		transition(StageNormalizing)
		normalizer := normalize.New(repair.New(), p.cfg.TypeInferMinFraction)
		normalized := make([]models.NormalizedTable, 0, len(raw))
		for _, rt := range raw {
			normalized = append(normalized, normalizer.Normalize(rt))
		}

		transition(StageMerging)
		var merged []models.MergedTable
		if req.MergeSimilar {
			merged = merge.Merge(normalized)
		} else {
			merged = singletons(normalized)
		}
		if len(merged) > p.cfg.MaxTablesPerFile {
			merged = merged[:p.cfg.MaxTablesPerFile]
		}

		transition(StageValidating)
		score := 0.0
		for i := range merged {
			qr := quality.ScoreMerged(merged[i])
			merged[i].Quality = &qr
			if qr.Overall > score {
				score = qr.Overall
			}
		}

		att := &attempt{backendID: b.ID(), tables: merged, score: score}
		if score >= p.cfg.QualityAcceptThreshold {
			transition(StageDone)
			log.Printf("✅ Backend %s accepted with score %.2f (%d tables)", b.ID(), score, len(merged))
			return p.result(att, pages, false), nil
		}

		log.Printf("📉 Backend %s scored %.2f, below threshold %.2f", b.ID(), score, p.cfg.QualityAcceptThreshold)
		if best == nil || att.score > best.score {
			best = att
		}
	}

	// Exhausted without meeting the threshold: best result + degraded
	// flag if anything extracted at all, Failed otherwise.
	if best != nil {
		transition(StageDone)
		log.Printf("⚠️  No backend met the threshold; returning best result (%s, %.2f) as degraded", best.backendID, best.score)
		return p.result(best, pages, true), nil
	}

	transition(StageFailed)
	return nil, &FailedError{Failures: failures}
}

// extractWithBackend runs one backend over the pages in chunks, each
// chunk wrapped in the configured timeout. Cancellation is checked
// between chunks so an abandoned run stops at the next chunk boundary.
func (p *Pipeline) extractWithBackend(ctx context.Context, b backend.Backend, req models.ExtractionRequest, pages []int) ([]models.RawTable, *models.BackendError) {
	timeout := time.Duration(p.cfg.BackendTimeoutSeconds) * time.Second
	var tables []models.RawTable
	sawTables := false

	for _, chunk := range chunkPages(pages, p.cfg.PageChunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, &models.BackendError{Backend: b.ID(), Reason: models.ReasonTimeout, Err: err}
		}

		chunkCtx, cancel := context.WithTimeout(ctx, timeout)
		chunkTables, berr := b.Extract(chunkCtx, req.Document, chunk, req.Options)
		cancel()

		if berr != nil {
			// Empty chunks are normal — not every page has a table.
			if berr.Reason == models.ReasonNoTablesFound {
				continue
			}
			return nil, berr
		}
		sawTables = true
		tables = append(tables, chunkTables...)
	}

	if !sawTables {
		return nil, &models.BackendError{Backend: b.ID(), Reason: models.ReasonNoTablesFound}
	}
	return tables, nil
}

// result assembles the PipelineResult, including which requested pages
// ended up contributing nothing.
func (p *Pipeline) result(att *attempt, pages []int, degraded bool) *models.PipelineResult {
	contributed := make(map[int]bool)
	for _, t := range att.tables {
		for _, s := range t.Sources {
			contributed[s.Page] = true
		}
	}
	var empty []int
	for _, pg := range pages {
		if !contributed[pg] {
			empty = append(empty, pg)
		}
	}

	return &models.PipelineResult{
		Tables:     att.tables,
		MethodUsed: att.backendID,
		Degraded:   degraded,
		EmptyPages: empty,
	}
}

// singletons wraps each normalized table as its own MergedTable, for
// runs that skip similarity merging.
func singletons(tables []models.NormalizedTable) []models.MergedTable {
	out := make([]models.MergedTable, 0, len(tables))
	for _, t := range tables {
		out = append(out, models.MergedTable{
			Headers: t.Headers,
			Types:   t.Types,
			Rows:    t.Rows,
			Sources: []models.TableSource{{Page: t.Page, Backend: t.Backend}},
		})
	}
	return out
}
