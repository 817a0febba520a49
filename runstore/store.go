// Package runstore persists suspended and finished pipeline runs.
//
// A run record carries the full serialized RunState plus a lifecycle phase
// and a version counter. The version increments on every save and is checked
// optimistically, so two processes resuming the same run cannot both win.
package runstore

import (
	"encoding/json"
	"errors"
	"time"
)

// Phase is a run's lifecycle label in the store.
type Phase string

const (
	// PhaseAwaitingInput marks a run that started but has not suspended or
	// finished yet.
	PhaseAwaitingInput Phase = "awaiting_input"
	// PhaseAwaitingClarification marks a suspended run waiting for the
	// user's answers.
	PhaseAwaitingClarification Phase = "awaiting_clarification"
	// PhaseCompleted marks a run that reached a terminal result.
	PhaseCompleted Phase = "completed"
	// PhaseErrored marks a run the engine could not finish.
	PhaseErrored Phase = "errored"
)

var (
	// ErrRunNotFound is returned when no record exists for a run ID.
	ErrRunNotFound = errors.New("runstore: run not found")

	// ErrRunExists is returned by Create when the run ID is already taken.
	ErrRunExists = errors.New("runstore: run already exists")

	// ErrVersionConflict is returned by Save when the stored version does
	// not match the version the caller loaded.
	ErrVersionConflict = errors.New("runstore: version conflict")
)

// Record is one persisted run.
type Record struct {
	RunID     string          `json:"runId"`
	FlowID    string          `json:"flowId"`
	Phase     Phase           `json:"phase"`
	Version   int             `json:"version"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Meta is a Record without its state blob, for listings.
type Meta struct {
	RunID     string    `json:"runId"`
	FlowID    string    `json:"flowId"`
	Phase     Phase     `json:"phase"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	FlowID string
	Phase  Phase
	Limit  int
}

func (f ListFilter) matches(m Meta) bool {
	if f.FlowID != "" && m.FlowID != f.FlowID {
		return false
	}
	if f.Phase != "" && m.Phase != f.Phase {
		return false
	}
	return true
}

// Store is the persistence interface the engine works against.
//
// Save performs an optimistic version check: the caller passes the record at
// the version it loaded, and the store persists it with Version+1 only when
// the stored version still matches. On success the passed record's Version
// is updated in place.
type Store interface {
	Create(rec *Record) error
	Load(runID string) (*Record, error)
	Save(rec *Record) error
	List(filter ListFilter) ([]Meta, error)
	Delete(runID string) error
}

func metaOf(rec *Record) Meta {
	return Meta{
		RunID:     rec.RunID,
		FlowID:    rec.FlowID,
		Phase:     rec.Phase,
		Version:   rec.Version,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func cloneRecord(rec *Record) *Record {
	out := *rec
	if rec.State != nil {
		out.State = append(json.RawMessage(nil), rec.State...)
	}
	return &out
}
