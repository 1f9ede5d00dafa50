// Package backend wraps the PDF table-extraction strategies behind one
// adapter interface.
//
// Go Pattern: Each backend is a separate implementation of the Backend
// interface, registered in a priority-ordered registry. The orchestrator
// and method selector depend only on the interface — they never mention a
// concrete backend type, so adding a strategy is one file plus one
// registry entry.
//
// Failure contract: Extract never panics and never returns a library
// error directly. Everything is mapped to *models.BackendError with a
// reason tag the orchestrator can switch on. Backends that spool data to
// disk clean up their temp files on every exit path.
package backend

import (
	"context"
	"log"

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
)

// Backend is the uniform capability contract over one extraction strategy.
type Backend interface {
	// ID returns the stable backend identifier used in config and provenance.
	ID() string

	// Available reports whether this backend can run in the current
	// environment (e.g. the tabula backend needs a Java runtime).
	Available() bool

	// Extract pulls raw tables from the given pages of a document.
	// pages is never empty — the orchestrator resolves "all pages" first.
	Extract(ctx context.Context, doc models.Document, pages []int, opts map[string]string) ([]models.RawTable, *models.BackendError)
}

// Registry holds the configured backends in priority order.
type Registry struct {
	order    []string
	backends map[string]Backend
}

// NewRegistry builds the default registry from config. The priority order
// comes from cfg.MethodPriority; unavailable backends stay registered (so
// an explicit request for them produces a clear failure) but are filtered
// out of auto selection.
func NewRegistry(cfg *config.Config) *Registry {
	all := []Backend{
		newMuPDF(),
		newPDFCPU(),
		newTabula(cfg.JavaPath, cfg.TabulaJarPath, cfg.TempDir),
		newLedongthuc(),
	}

	r := &Registry{backends: make(map[string]Backend, len(all))}
	for _, b := range all {
		r.backends[b.ID()] = b
	}

	for _, id := range cfg.MethodPriority {
		if _, ok := r.backends[id]; ok {
			r.order = append(r.order, id)
		}
	}
	return r
}

// Select returns the ordered list of backends to try for a request.
//
// A specific method yields a single-element list with no fallback — that
// is what the caller asked for, available or not, and Extract will report
// why it can't run. "auto" (or empty) yields the configured priority
// order filtered to available backends; unavailable ones are skipped with
// a logged warning, never an error.
func (r *Registry) Select(method string) ([]Backend, error) {
	if method == "" {
		method = "auto"
	}

	if method != "auto" {
		b, ok := r.backends[method]
		if !ok {
			return nil, &models.ConfigError{Field: "method", Message: "unknown method " + method}
		}
		return []Backend{b}, nil
	}

	var out []Backend
	for _, id := range r.order {
		b := r.backends[id]
		if !b.Available() {
			log.Printf("⚠️  Backend %s unavailable in this environment, skipping", id)
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Available lists the ids of backends usable in this runtime, in
// priority order. Surfaced by the health endpoint.
func (r *Registry) Available() []string {
	var out []string
	for _, id := range r.order {
		if r.backends[id].Available() {
			out = append(out, id)
		}
	}
	return out
}

// errOf wraps a library error into a BackendError.
func errOf(id string, reason models.BackendReason, err error) *models.BackendError {
	return &models.BackendError{Backend: id, Reason: reason, Err: err}
}
