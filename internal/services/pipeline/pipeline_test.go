package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
)

// stubSelector satisfies Selector without a real registry.
type stubSelector struct {
	backends []backend.Backend
	err      error
}

func (s *stubSelector) Select(method string) ([]backend.Backend, error) {
	return s.backends, s.err
}

// stubBackend returns canned tables for the pages it covers, honoring
// the same contract real backends do: a chunk with nothing on it
// reports no_tables_found rather than an empty slice.
type stubBackend struct {
	id     string
	tables []models.RawTable
	err    *models.BackendError
}

func (b *stubBackend) ID() string      { return b.id }
func (b *stubBackend) Available() bool { return true }

func (b *stubBackend) Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError) {
	if b.err != nil {
		return nil, b.err
	}
	var out []models.RawTable
	for _, t := range b.tables {
		for _, p := range pages {
			if t.Page == p {
				out = append(out, t)
			}
		}
	}
	if len(out) == 0 {
		return nil, &models.BackendError{Backend: b.id, Reason: models.ReasonNoTablesFound}
	}
	return out, nil
}

func testConfig() *config.Config {
	return &config.Config{
		QualityAcceptThreshold: 0.8,
		TypeInferMinFraction:   0.8,
		MaxTablesPerFile:       10,
		BackendTimeoutSeconds:  5,
		PageChunkSize:          2,
	}
}

func testRequest(pageCount int) models.ExtractionRequest {
	return models.ExtractionRequest{
		Document: models.Document{Path: "test.pdf", PageCount: pageCount},
		Method:   "auto",
	}
}

// goodTable normalizes cleanly and scores 1.0.
func goodTable(backendID string, page int) models.RawTable {
	return models.RawTable{
		Headers: []string{"Name", "Qty"},
		Rows:    [][]string{{"alpha", "1"}, {"beta", "2"}},
		Page:    page,
		Backend: backendID,
	}
}

// sparseTable scores below the 0.8 acceptance threshold. The blanks sit
// at the top of a non-empty column, so neither forward fill nor column
// pruning removes them: completeness 7/12 gives an overall of ~0.79.
func sparseTable(backendID string, page int) models.RawTable {
	return sparseTableRows(backendID, page, 6)
}

func sparseTableRows(backendID string, page int, height int) models.RawTable {
	rows := make([][]string, height)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("item %d", i+1), ""}
	}
	rows[height-1][1] = "note"
	return models.RawTable{
		Headers: []string{"Label", "Remark"},
		Rows:    rows,
		Page:    page,
		Backend: backendID,
	}
}

// TestRunFallback verifies the second backend is tried when the first
// errors, and provenance names the backend that actually produced tables.
func TestRunFallback(t *testing.T) {
	broken := &stubBackend{id: "broken", err: &models.BackendError{
		Backend: "broken", Reason: models.ReasonInternalFailure, Err: errors.New("boom"),
	}}
	good := &stubBackend{id: "good", tables: []models.RawTable{goodTable("good", 1)}}

	p := New(testConfig(), &stubSelector{backends: []backend.Backend{broken, good}})
	res, err := p.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.MethodUsed != "good" {
		t.Errorf("MethodUsed = %q, want good", res.MethodUsed)
	}
	if res.Degraded {
		t.Error("Degraded = true, want false")
	}
	if len(res.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(res.Tables))
	}
	if res.Tables[0].Quality == nil || res.Tables[0].Quality.Overall != 1.0 {
		t.Errorf("Quality = %+v, want Overall 1.0", res.Tables[0].Quality)
	}
}

// TestRunAllBackendsFail verifies the terminal failure aggregates every
// backend's reason.
func TestRunAllBackendsFail(t *testing.T) {
	a := &stubBackend{id: "a", err: &models.BackendError{
		Backend: "a", Reason: models.ReasonInternalFailure, Err: errors.New("parse error"),
	}}
	b := &stubBackend{id: "b", err: &models.BackendError{
		Backend: "b", Reason: models.ReasonUnsupportedFormat, Err: errors.New("encrypted"),
	}}

	p := New(testConfig(), &stubSelector{backends: []backend.Backend{a, b}})
	_, err := p.Run(context.Background(), testRequest(1))

	var ferr *FailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FailedError", err)
	}
	if len(ferr.Failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(ferr.Failures))
	}
	if ferr.Failures[0].Reason != models.ReasonInternalFailure {
		t.Errorf("first reason = %q", ferr.Failures[0].Reason)
	}
	if ferr.Failures[1].Reason != models.ReasonUnsupportedFormat {
		t.Errorf("second reason = %q", ferr.Failures[1].Reason)
	}
}

// TestRunDegraded verifies a sub-threshold result is still returned,
// flagged degraded, instead of failing.
func TestRunDegraded(t *testing.T) {
	weak := &stubBackend{id: "weak", tables: []models.RawTable{sparseTable("weak", 1)}}

	p := New(testConfig(), &stubSelector{backends: []backend.Backend{weak}})
	res, err := p.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	if res.MethodUsed != "weak" {
		t.Errorf("MethodUsed = %q, want weak", res.MethodUsed)
	}
	if len(res.Tables) != 1 {
		t.Errorf("got %d tables, want 1", len(res.Tables))
	}
}

// TestRunDegradedKeepsBest verifies the best sub-threshold attempt wins
// when several backends extract something.
func TestRunDegradedKeepsBest(t *testing.T) {
	// First candidate extracts a sparser table than the second
	// (1 of 10 remark cells filled vs 1 of 6).
	sparser := &stubBackend{id: "sparser", tables: []models.RawTable{
		sparseTableRows("sparser", 1, 10),
	}}
	weak := &stubBackend{id: "weak", tables: []models.RawTable{sparseTable("weak", 1)}}

	p := New(testConfig(), &stubSelector{backends: []backend.Backend{sparser, weak}})
	res, err := p.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	if res.MethodUsed != "weak" {
		t.Errorf("MethodUsed = %q, want weak (the higher-scoring attempt)", res.MethodUsed)
	}
}

// TestRunNoBackendsAvailable verifies an empty selection fails cleanly.
func TestRunNoBackendsAvailable(t *testing.T) {
	p := New(testConfig(), &stubSelector{})
	_, err := p.Run(context.Background(), testRequest(1))

	var ferr *FailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FailedError", err)
	}
}

// TestRunSelectorError verifies a ConfigError from selection propagates
// unchanged.
func TestRunSelectorError(t *testing.T) {
	cerr := &models.ConfigError{Field: "method", Message: "unknown method bogus"}
	p := New(testConfig(), &stubSelector{err: cerr})

	_, err := p.Run(context.Background(), testRequest(1))
	var got *models.ConfigError
	if !errors.As(err, &got) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

// TestRunNoValidPages verifies requested pages beyond the document are
// rejected as malformed input.
func TestRunNoValidPages(t *testing.T) {
	good := &stubBackend{id: "good", tables: []models.RawTable{goodTable("good", 1)}}
	p := New(testConfig(), &stubSelector{backends: []backend.Backend{good}})

	req := testRequest(2)
	req.Pages = []int{5, 6}
	_, err := p.Run(context.Background(), req)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Kind != "malformed_input" {
		t.Errorf("Kind = %q, want malformed_input", verr.Kind)
	}
}

// TestRunNoTablesAnywhere verifies a backend that finds nothing on any
// page counts as a failure, not an empty success.
func TestRunNoTablesAnywhere(t *testing.T) {
	empty := &stubBackend{id: "empty"}
	p := New(testConfig(), &stubSelector{backends: []backend.Backend{empty}})

	_, err := p.Run(context.Background(), testRequest(3))
	var ferr *FailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FailedError", err)
	}
	if len(ferr.Failures) != 1 || ferr.Failures[0].Reason != models.ReasonNoTablesFound {
		t.Errorf("failures = %+v, want one no_tables_found", ferr.Failures)
	}
}

// TestRunEmptyPages verifies pages that contributed no table are listed.
func TestRunEmptyPages(t *testing.T) {
	good := &stubBackend{id: "good", tables: []models.RawTable{goodTable("good", 1)}}
	p := New(testConfig(), &stubSelector{backends: []backend.Backend{good}})

	res, err := p.Run(context.Background(), testRequest(3))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.EmptyPages) != 2 || res.EmptyPages[0] != 2 || res.EmptyPages[1] != 3 {
		t.Errorf("EmptyPages = %v, want [2 3]", res.EmptyPages)
	}
}

// TestRunMergeSimilar verifies the merge flag controls whether
// structurally equivalent tables across pages collapse into one.
func TestRunMergeSimilar(t *testing.T) {
	spread := &stubBackend{id: "good", tables: []models.RawTable{
		goodTable("good", 1),
		goodTable("good", 2),
	}}

	t.Run("merged", func(t *testing.T) {
		p := New(testConfig(), &stubSelector{backends: []backend.Backend{spread}})
		req := testRequest(2)
		req.MergeSimilar = true
		res, err := p.Run(context.Background(), req)
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
		if len(res.Tables) != 1 {
			t.Fatalf("got %d tables, want 1 merged", len(res.Tables))
		}
		if len(res.Tables[0].Sources) != 2 {
			t.Errorf("Sources = %v, want both pages", res.Tables[0].Sources)
		}
		if len(res.EmptyPages) != 0 {
			t.Errorf("EmptyPages = %v, want none", res.EmptyPages)
		}
	})

	t.Run("unmerged", func(t *testing.T) {
		p := New(testConfig(), &stubSelector{backends: []backend.Backend{spread}})
		res, err := p.Run(context.Background(), testRequest(2))
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
		if len(res.Tables) != 2 {
			t.Errorf("got %d tables, want 2 singletons", len(res.Tables))
		}
	})
}

// TestRunMaxTablesCap verifies the per-file table cap.
func TestRunMaxTablesCap(t *testing.T) {
	many := &stubBackend{id: "good", tables: []models.RawTable{
		goodTable("good", 1),
		{Headers: []string{"Other"}, Rows: [][]string{{"v"}}, Page: 1, Backend: "good"},
	}}

	cfg := testConfig()
	cfg.MaxTablesPerFile = 1
	p := New(cfg, &stubSelector{backends: []backend.Backend{many}})

	res, err := p.Run(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(res.Tables) != 1 {
		t.Errorf("got %d tables, want cap of 1", len(res.Tables))
	}
}

// TestRunCancelled verifies a cancelled context stops the run instead of
// walking the remaining backends.
func TestRunCancelled(t *testing.T) {
	good := &stubBackend{id: "good", tables: []models.RawTable{goodTable("good", 1)}}
	p := New(testConfig(), &stubSelector{backends: []backend.Backend{good}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testRequest(1))
	var ferr *FailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want FailedError", err)
	}
	if ferr.Failures[0].Reason != models.ReasonTimeout {
		t.Errorf("reason = %q, want timeout", ferr.Failures[0].Reason)
	}
}
