package planflow

import "errors"

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrUnknownRun is returned by Resume when no persisted run exists for
	// the given run ID.
	ErrUnknownRun = errors.New("planflow: unknown run")

	// ErrNotSuspended is returned by Resume when the run exists but is not
	// waiting for clarification answers (already completed, errored, or
	// resumed by someone else).
	ErrNotSuspended = errors.New("planflow: run is not suspended")

	// ErrVersionConflict is returned when a concurrent writer advanced the
	// persisted run state between load and save.
	ErrVersionConflict = errors.New("planflow: run state version conflict")

	// ErrNoStore is returned by the engine when no run store is configured.
	ErrNoStore = errors.New("planflow: run store not configured")

	// ErrEmptyRunID is returned when an operation needs a run ID and none
	// was supplied.
	ErrEmptyRunID = errors.New("planflow: run ID is empty")
)
