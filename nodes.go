package planflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	llm "github.com/randalmurphal/llmkit/claude"

	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/notify"
	"github.com/randalmurphal/planflow/stage"
	"github.com/randalmurphal/planflow/trace"
)

// Stage node names. These double as graph node names and as the Stage field
// of every StageSummary, so a persisted run replays against the same graph.
const (
	StageIngestion         = string(stage.Ingestion)
	StageArchitecture      = string(stage.Architecture)
	StageClarification     = string(stage.Clarification)
	StageClarificationWait = "clarification_wait"
	StageDecomposition     = string(stage.Decomposition)
	StageMatching          = string(stage.Matching)
	StageRisk              = string(stage.Risk)
)

// NodeFunc is the shape of every stage node in the planning graph. It
// aliases flowgraph's node type so wrapped nodes slot straight into AddNode.
type NodeFunc = flowgraph.NodeFunc[RunState]

// failResult builds the StageResult for a stage that could not complete its
// model call. Model failures are recorded, never returned as node errors, so
// one bad completion does not abort the graph before state is persisted.
func failResult(stageName string, err error) StageResult {
	return StageResult{
		Stage:  stageName,
		Status: StatusFailed,
		Errors: []string{err.Error()},
	}
}

// completeStage runs the model call shared by every reasoning stage: load the
// stage's system prompt, send the user prompt, account tokens, and extract
// the JSON object from the response.
func completeStage(ctx flowgraph.Context, state RunState, stageName, userPrompt string) (RunState, map[string]any, error) {
	client := planctx.LLM(ctx)
	if client == nil {
		return state, nil, fmt.Errorf("llm.Client not found in context")
	}

	var systemPrompt string
	if loader := planctx.Prompt(ctx); loader != nil {
		if sp, err := loader.Load(stageName); err == nil {
			systemPrompt = sp
		}
	}

	result, err := client.Complete(ctx, llm.CompletionRequest{
		Model:        string(stage.SelectModel(stage.Kind(stageName))),
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
	})
	if err != nil {
		return state, nil, fmt.Errorf("model call failed: %w", err)
	}
	state = state.AddTokens(result.Usage.InputTokens, result.Usage.OutputTokens)

	raw, err := ExtractJSON(result.Content)
	if err != nil {
		return state, nil, err
	}
	return state, raw, nil
}

// =============================================================================
// Node Instrumentation
// =============================================================================

// Instrument wraps a stage node with logging, trace recording, and stage
// notifications. Observability failures never fail the node.
func Instrument(name string, fn NodeFunc) NodeFunc {
	return func(ctx flowgraph.Context, state RunState) (RunState, error) {
		before := len(state.Stages)
		tokensInBefore, tokensOutBefore := state.TokensIn, state.TokensOut

		slog.Debug("stage starting",
			slog.String("run_id", state.RunID),
			slog.String("stage", name),
		)
		start := time.Now()

		out, err := fn(ctx, state)
		duration := time.Since(start)

		if err != nil {
			slog.Error("stage errored",
				slog.String("run_id", out.RunID),
				slog.String("stage", name),
				slog.String("error", err.Error()),
			)
			return out, err
		}

		for _, st := range out.Stages[before:] {
			slog.Info("stage finished",
				slog.String("run_id", out.RunID),
				slog.String("stage", st.Stage),
				slog.String("status", string(st.Status)),
				slog.Float64("confidence", st.Confidence),
				slog.Duration("duration", duration),
			)
			recordTrace(ctx, out, st, duration)
			notifyStage(ctx, out, st)
		}

		if mgr := planctx.Trace(ctx); mgr != nil {
			in := out.TokensIn - tokensInBefore
			tokOut := out.TokensOut - tokensOutBefore
			if in > 0 || tokOut > 0 {
				_ = mgr.AddTokens(out.RunID, in, tokOut)
			}
		}
		return out, nil
	}
}

func recordTrace(ctx flowgraph.Context, state RunState, st StageSummary, duration time.Duration) {
	mgr := planctx.Trace(ctx)
	if mgr == nil {
		return
	}
	_ = mgr.RecordStage(state.RunID, trace.StageRecord{
		Stage:      st.Stage,
		Status:     string(st.Status),
		Confidence: st.Confidence,
		Duration:   duration,
		Timestamp:  time.Now(),
		Flags:      state.Flags,
		Errors:     st.Errors,
	})
}

func notifyStage(ctx flowgraph.Context, state RunState, st StageSummary) {
	notifier := notify.NotifierFromContext(ctx)
	if notifier == nil {
		return
	}

	severity := notify.SeverityInfo
	switch st.Status {
	case StatusFailed:
		severity = notify.SeverityError
	case StatusBlocked, StatusNeedsClarification:
		severity = notify.SeverityWarning
	}

	_ = notifier.Notify(ctx, notify.Event{
		Type:      notify.EventStageCompleted,
		RunID:     state.RunID,
		FlowID:    state.FlowID,
		Stage:     st.Stage,
		Message:   fmt.Sprintf("%s finished with status %s", st.Stage, st.Status),
		Severity:  severity,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"confidence": st.Confidence,
		},
	})
}
