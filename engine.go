package planflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/notify"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/trace"
)

// DefaultFlowID names the planning pipeline in stores and traces.
const DefaultFlowID = "project-planning"

// SuspensionHandle is what a caller gets back when a run pauses for
// clarification: the questions to answer and the run ID to resume with.
type SuspensionHandle struct {
	RunID          string     `json:"runId"`
	Questions      []Question `json:"questions"`
	ReadyToProceed bool       `json:"readyToProceed"`
}

// runner is the compiled planning graph. flowgraph's Compile returns a
// concrete executor; the engine only needs its Run method.
type runner interface {
	Run(ctx flowgraph.Context, state RunState, opts ...flowgraph.RunOption) (RunState, error)
}

// Engine drives the planning pipeline: it owns the compiled graphs, persists
// run state across the clarification suspension, and reports lifecycle
// events.
type Engine struct {
	flowID   string
	services *planctx.Services
	store    runstore.Store
	full     runner
	resume   runner
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFlowID overrides the flow ID recorded on runs.
func WithFlowID(flowID string) EngineOption {
	return func(e *Engine) { e.flowID = flowID }
}

// NewEngine creates an Engine over the given services. The services must
// include a run store; everything else is optional and degrades to a no-op.
func NewEngine(services *planctx.Services, opts ...EngineOption) (*Engine, error) {
	if services == nil || services.Store == nil {
		return nil, ErrNoStore
	}

	e := &Engine{
		flowID:   DefaultFlowID,
		services: services,
		store:    services.Store,
	}
	for _, opt := range opts {
		opt(e)
	}

	full, err := buildFullGraph()
	if err != nil {
		return nil, fmt.Errorf("compile planning graph: %w", err)
	}
	resume, err := buildResumeGraph()
	if err != nil {
		return nil, fmt.Errorf("compile resume graph: %w", err)
	}
	e.full = full
	e.resume = resume

	return e, nil
}

// buildFullGraph wires all seven stages. Terminal stage statuses route to
// END so a blocked brief never burns downstream model calls.
func buildFullGraph() (runner, error) {
	graph := flowgraph.NewGraph[RunState]().
		AddNode(StageIngestion, Instrument(StageIngestion, IngestInputsNode)).
		AddNode(StageArchitecture, Instrument(StageArchitecture, ArchitectureContextNode)).
		AddNode(StageClarification, Instrument(StageClarification, GenerateQuestionsNode)).
		AddNode(StageClarificationWait, ClarificationWaitNode).
		AddNode(StageDecomposition, Instrument(StageDecomposition, DecomposeTasksNode)).
		AddNode(StageMatching, Instrument(StageMatching, MatchTasksNode)).
		AddNode(StageRisk, Instrument(StageRisk, AssessRiskNode)).
		AddConditionalEdge(StageIngestion, continueUnlessTerminal(StageArchitecture, func(s RunState) Status { return s.IngestionStatus })).
		AddConditionalEdge(StageArchitecture, continueUnlessTerminal(StageClarification, func(s RunState) Status { return s.ArchStatus })).
		AddEdge(StageClarification, StageClarificationWait).
		AddConditionalEdge(StageClarificationWait, func(ctx flowgraph.Context, s RunState) string {
			if s.Suspended {
				return flowgraph.END
			}
			return StageDecomposition
		}).
		AddConditionalEdge(StageDecomposition, continueUnlessTerminal(StageMatching, func(s RunState) Status { return s.TaskStatus })).
		AddConditionalEdge(StageMatching, continueUnlessTerminal(StageRisk, func(s RunState) Status { return s.MatchingStatus })).
		AddEdge(StageRisk, flowgraph.END).
		SetEntry(StageIngestion)

	return graph.Compile()
}

// buildResumeGraph wires the back half of the pipeline. A resumed run enters
// at decomposition; the clarification answers travel on the state.
func buildResumeGraph() (runner, error) {
	graph := flowgraph.NewGraph[RunState]().
		AddNode(StageDecomposition, Instrument(StageDecomposition, DecomposeTasksNode)).
		AddNode(StageMatching, Instrument(StageMatching, MatchTasksNode)).
		AddNode(StageRisk, Instrument(StageRisk, AssessRiskNode)).
		AddConditionalEdge(StageDecomposition, continueUnlessTerminal(StageMatching, func(s RunState) Status { return s.TaskStatus })).
		AddConditionalEdge(StageMatching, continueUnlessTerminal(StageRisk, func(s RunState) Status { return s.MatchingStatus })).
		AddEdge(StageRisk, flowgraph.END).
		SetEntry(StageDecomposition)

	return graph.Compile()
}

// continueUnlessTerminal routes to next unless the stage's status is
// blocked or failed.
func continueUnlessTerminal(next string, statusOf func(RunState) Status) func(flowgraph.Context, RunState) string {
	return func(ctx flowgraph.Context, state RunState) string {
		if statusOf(state).Terminal() {
			return flowgraph.END
		}
		return next
	}
}

// =============================================================================
// Start / Resume
// =============================================================================

// Start begins a fresh planning run. Exactly one of the result and the
// suspension handle is non-nil on success: the handle when the run paused
// for clarification, the result otherwise.
func (e *Engine) Start(ctx context.Context, in Inputs) (*Result, *SuspensionHandle, error) {
	state := NewRunState(e.flowID, in)

	rec := &runstore.Record{
		RunID:  state.RunID,
		FlowID: e.flowID,
		Phase:  runstore.PhaseAwaitingInput,
	}
	if err := e.marshalInto(rec, state); err != nil {
		return nil, nil, err
	}
	if err := e.store.Create(rec); err != nil {
		return nil, nil, fmt.Errorf("create run %s: %w", state.RunID, err)
	}

	if e.services.Traces != nil {
		_ = e.services.Traces.StartRun(state.RunID, trace.Meta{
			RunID:     state.RunID,
			FlowID:    e.flowID,
			Project:   in.ProjectName,
			Status:    trace.StatusRunning,
			StartedAt: time.Now(),
		})
	}
	e.notifyRun(ctx, state, notify.EventRunStarted, "planning run started")

	out, err := e.full.Run(e.flowContext(ctx), state)
	if err != nil {
		return nil, nil, e.finishErrored(ctx, rec, out, err)
	}
	out.Elapsed = time.Since(out.StartedAt)

	if out.Suspended {
		handle, err := e.suspend(ctx, rec, out)
		return nil, handle, err
	}
	res, err := e.finish(ctx, rec, out)
	return res, nil, err
}

// Resume continues a suspended run with the user's clarification answers.
// A second suspension is impossible on the resume path, but the signature
// stays symmetric with Start.
func (e *Engine) Resume(ctx context.Context, runID string, answers AnswerSet) (*Result, *SuspensionHandle, error) {
	if runID == "" {
		return nil, nil, ErrEmptyRunID
	}
	rec, err := e.store.Load(runID)
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
		}
		return nil, nil, err
	}
	if rec.Phase != runstore.PhaseAwaitingClarification {
		return nil, nil, fmt.Errorf("%w: run %s is %s", ErrNotSuspended, runID, rec.Phase)
	}

	var state RunState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, nil, fmt.Errorf("decode run state %s: %w", runID, err)
	}
	state = state.WithAnswers(answers)

	// Claim the resume. A concurrent resumer loses the version race here.
	if err := e.marshalInto(rec, state); err != nil {
		return nil, nil, err
	}
	if err := e.store.Save(rec); err != nil {
		if errors.Is(err, runstore.ErrVersionConflict) {
			return nil, nil, fmt.Errorf("%w: run %s", ErrVersionConflict, runID)
		}
		return nil, nil, err
	}

	if e.services.Traces != nil {
		_ = e.services.Traces.ResumeRun(runID)
	}
	e.notifyRun(ctx, state, notify.EventRunResumed, "planning run resumed with answers")

	out, err := e.resume.Run(e.flowContext(ctx), state)
	if err != nil {
		return nil, nil, e.finishErrored(ctx, rec, out, err)
	}
	out.Elapsed = time.Since(out.StartedAt)

	res, err := e.finish(ctx, rec, out)
	return res, nil, err
}

// Status reports on a stored run without executing anything. Suspended runs
// come back with their open questions.
func (e *Engine) Status(runID string) (*Result, *SuspensionHandle, error) {
	if runID == "" {
		return nil, nil, ErrEmptyRunID
	}
	rec, err := e.store.Load(runID)
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
		}
		return nil, nil, err
	}

	var state RunState
	if err := json.Unmarshal(rec.State, &state); err != nil {
		return nil, nil, fmt.Errorf("decode run state %s: %w", runID, err)
	}

	if rec.Phase == runstore.PhaseAwaitingClarification {
		return nil, suspensionHandle(state), nil
	}
	return buildResult(state), nil, nil
}

// List returns stored run metadata, newest first per the store's ordering.
func (e *Engine) List(filter runstore.ListFilter) ([]runstore.Meta, error) {
	return e.store.List(filter)
}

// =============================================================================
// Lifecycle helpers
// =============================================================================

func (e *Engine) flowContext(ctx context.Context) flowgraph.Context {
	return flowgraph.NewContext(e.services.InjectAll(ctx))
}

func (e *Engine) marshalInto(rec *runstore.Record, state RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode run state %s: %w", state.RunID, err)
	}
	rec.State = data
	return nil
}

func (e *Engine) suspend(ctx context.Context, rec *runstore.Record, state RunState) (*SuspensionHandle, error) {
	rec.Phase = runstore.PhaseAwaitingClarification
	if err := e.marshalInto(rec, state); err != nil {
		return nil, err
	}
	if err := e.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save suspended run %s: %w", state.RunID, err)
	}

	if e.services.Traces != nil {
		_ = e.services.Traces.EndRun(state.RunID, trace.StatusSuspended)
	}

	handle := suspensionHandle(state)
	e.notifyRun(ctx, state, notify.EventRunSuspended,
		fmt.Sprintf("%d clarification question(s) await answers", len(handle.Questions)))
	return handle, nil
}

func (e *Engine) finish(ctx context.Context, rec *runstore.Record, state RunState) (*Result, error) {
	rec.Phase = runstore.PhaseCompleted
	if err := e.marshalInto(rec, state); err != nil {
		return nil, err
	}
	if err := e.store.Save(rec); err != nil {
		return nil, fmt.Errorf("save run %s: %w", state.RunID, err)
	}

	if e.services.Traces != nil {
		_ = e.services.Traces.EndRun(state.RunID, trace.StatusCompleted)
	}

	res := buildResult(state)
	eventType := notify.EventRunCompleted
	msg := fmt.Sprintf("planning run finished with status %s", res.Status)
	if res.Status == StatusFailed {
		eventType = notify.EventRunFailed
	}
	e.notifyRun(ctx, state, eventType, msg)
	return res, nil
}

// finishErrored handles a graph-level error: the run is persisted as errored
// and the original error is returned.
func (e *Engine) finishErrored(ctx context.Context, rec *runstore.Record, state RunState, runErr error) error {
	rec.Phase = runstore.PhaseErrored
	if state.RunID != "" {
		if mErr := e.marshalInto(rec, state); mErr == nil {
			_ = e.store.Save(rec)
		}
	}

	if e.services.Traces != nil {
		_ = e.services.Traces.EndRunWithError(rec.RunID, runErr)
	}
	e.notifyRun(ctx, state, notify.EventRunFailed, runErr.Error())

	return fmt.Errorf("run %s: %w", rec.RunID, runErr)
}

func (e *Engine) notifyRun(ctx context.Context, state RunState, eventType notify.EventType, msg string) {
	if e.services.Notifier == nil {
		return
	}

	severity := notify.SeverityInfo
	if eventType == notify.EventRunFailed {
		severity = notify.SeverityError
	}

	_ = e.services.Notifier.Notify(ctx, notify.Event{
		Type:      eventType,
		RunID:     state.RunID,
		FlowID:    state.FlowID,
		Message:   msg,
		Severity:  severity,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"project":   state.Inputs.ProjectName,
			"tokensIn":  state.TokensIn,
			"tokensOut": state.TokensOut,
		},
	})
}

func suspensionHandle(state RunState) *SuspensionHandle {
	handle := &SuspensionHandle{RunID: state.RunID}
	if out := state.ClarificationOutput; out != nil {
		handle.Questions = out.Questions
		handle.ReadyToProceed = out.ReadyToProceed
	}
	return handle
}
