// Package trace records what each pipeline run actually did: which stages
// executed, with what status and confidence, how long they took, and what
// they flagged. Traces outlive the run and survive suspend/resume, so a
// plan's provenance can be inspected after the fact.
package trace

import (
	"errors"
	"time"
)

// RunStatus is the lifecycle status of a traced run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSuspended RunStatus = "suspended"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

var (
	// ErrRunNotFound is returned when no trace exists for a run ID.
	ErrRunNotFound = errors.New("trace: run not found")

	// ErrRunExists is returned by StartRun for an already-traced run ID.
	ErrRunExists = errors.New("trace: run already exists")

	// ErrRunNotActive is returned when recording against a run that is not
	// currently open (never started, or already ended).
	ErrRunNotActive = errors.New("trace: run not active")
)

// Meta summarizes one traced run.
type Meta struct {
	RunID      string    `json:"runId"`
	FlowID     string    `json:"flowId"`
	Project    string    `json:"project,omitempty"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt,omitzero"`
	StageCount int       `json:"stageCount"`
	TokensIn   int       `json:"tokensIn,omitempty"`
	TokensOut  int       `json:"tokensOut,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// StageRecord is one executed stage inside a run trace.
type StageRecord struct {
	Seq        int           `json:"seq"`
	Stage      string        `json:"stage"`
	Status     string        `json:"status"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Flags      []string      `json:"flags,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
}

// RunTrace is a complete trace: metadata plus the stage records in
// execution order.
type RunTrace struct {
	RunID    string        `json:"runId"`
	Metadata Meta          `json:"metadata"`
	Stages   []StageRecord `json:"stages"`
}

// Manager is the interface for trace recording and retrieval.
type Manager interface {
	// Lifecycle
	StartRun(runID string, meta Meta) error
	RecordStage(runID string, rec StageRecord) error
	AddTokens(runID string, in, out int) error
	EndRun(runID string, status RunStatus) error
	EndRunWithError(runID string, err error) error
	// ResumeRun reopens an ended (suspended) trace for further recording.
	ResumeRun(runID string) error

	// Retrieval
	Load(runID string) (*RunTrace, error)
	LoadMetadata(runID string) (*Meta, error)
	List(filter ListFilter) ([]Meta, error)

	// Maintenance
	Delete(runID string) error
}

// ListFilter narrows trace listings. Zero values match everything.
type ListFilter struct {
	FlowID string
	Status RunStatus
	After  time.Time
	Before time.Time
	Limit  int
}
