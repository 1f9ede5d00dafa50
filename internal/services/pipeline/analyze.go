package pipeline

import (
	"context"
	"time"

	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/quality"
)

// BackendProbe is one backend's result from an analysis pass.
type BackendProbe struct {
	Backend    string  `json:"backend"`
	TableCount int     `json:"table_count"`
	Score      float64 `json:"score"`            // Best raw-quality score, 0 if nothing found
	Error      string  `json:"error,omitempty"`  // Failure reason tag, empty on success
}

// Analysis summarizes how each available backend performs on a document
// sample, without running the full normalization pipeline.
type Analysis struct {
	PageCount    int            `json:"page_count"`
	SampledPages int            `json:"sampled_pages"` // Pages probed per backend
	Probes       []BackendProbe `json:"backends"`
	Recommended  string         `json:"recommended_method,omitempty"`
}

// Analyze probes every available backend against the first chunk of the
// document and reports which one looks best. Scores come from raw tables
// (all-text typing), so they measure extraction fill, not coercion.
func (p *Pipeline) Analyze(ctx context.Context, doc models.Document) (*Analysis, error) {
	candidates, err := p.registry.Select("auto")
	if err != nil {
		return nil, err
	}

	pages := resolvePages(nil, doc.PageCount)
	if len(pages) > p.cfg.PageChunkSize {
		pages = pages[:p.cfg.PageChunkSize]
	}

	out := &Analysis{PageCount: doc.PageCount, SampledPages: len(pages)}
	timeout := time.Duration(p.cfg.BackendTimeoutSeconds) * time.Second

	bestScore := -1.0
	for _, b := range candidates {
		probe := BackendProbe{Backend: b.ID()}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, berr := b.Extract(probeCtx, doc, pages, nil)
		cancel()

		if berr != nil {
			probe.Error = string(berr.Reason)
		} else {
			probe.TableCount = len(raw)
			for _, t := range raw {
				if s := quality.ScoreRaw(t).Overall; s > probe.Score {
					probe.Score = s
				}
			}
		}
		out.Probes = append(out.Probes, probe)

		if probe.Error == "" && probe.TableCount > 0 && probe.Score > bestScore {
			bestScore = probe.Score
			out.Recommended = probe.Backend
		}
	}
	return out, nil
}
