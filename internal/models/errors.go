// errors.go defines the pipeline error taxonomy.
//
// Go Pattern: Backend failures are VALUES the orchestrator inspects, not
// panics to recover from. Every backend library error is mapped into a
// *BackendError with a reason tag; the orchestrator switches on the tag
// to decide whether to fall back to the next backend.
package models

import "fmt"

// BackendReason classifies why a backend failed.
type BackendReason string

const (
	ReasonUnsupportedFormat BackendReason = "unsupported_format"
	ReasonTimeout           BackendReason = "timeout"
	ReasonNoTablesFound     BackendReason = "no_tables_found"
	ReasonInternalFailure   BackendReason = "internal_failure"
)

// BackendError is the single failure type a backend may return.
type BackendError struct {
	Backend string        // Backend id, e.g. "mupdf"
	Reason  BackendReason
	Err     error // Underlying library error, may be nil
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *BackendError) Unwrap() error { return e.Err }

// ValidationError reports bad input or an empty result surfaced to the caller.
type ValidationError struct {
	Kind    string // "malformed_input" or "empty_result"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ConfigError reports an invalid configuration value. Unlike backend
// failures, these are hard errors — the process refuses to start.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}
