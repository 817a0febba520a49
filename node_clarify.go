package planflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/artifact"
	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/prompt"
)

// GenerateQuestionsNode produces clarification questions for whatever the
// upstream stages flagged as uncertain. Confidence is the inverse of the
// model's residual risk estimate.
//
// Prerequisites: state.IngestionOutput and state.ArchOutput must be set
// Updates: state.ClarificationOutput, state.ClarificationStatus
func GenerateQuestionsNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if err := state.Validate("ingestion", "architecture"); err != nil {
		state.ClarificationStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageClarification,
			Status: StatusBlocked,
			Errors: []string{err.Error()},
		}, nil), nil
	}

	state, raw, err := completeStage(ctx, state, StageClarification, formatClarificationPrompt(state))
	if err != nil {
		state.ClarificationStatus = StatusFailed
		return state.recordStage(failResult(StageClarification, err), nil), nil
	}

	out := NormalizeClarification(raw)
	res := StageResult{
		Stage:      StageClarification,
		Confidence: 1 - out.ResidualRiskEstimate,
	}

	if len(out.Questions) > 0 {
		res.Status = StatusNeedsClarification
	} else {
		res.Status = StatusSuccess
	}

	state.ClarificationOutput = out
	state.ClarificationStatus = res.Status
	state = state.recordStage(res, out)

	if len(out.Questions) > 0 {
		if artifacts := planctx.Artifact(ctx); artifacts != nil {
			_ = artifacts.SaveJSON(state.RunID, artifact.FileQuestions, out.Questions)
		}
	}
	return state, nil
}

// ClarificationWaitNode marks the run suspended when unanswered questions
// are pending. It never calls the model and never records a stage; the
// engine persists the state and hands the questions back to the caller.
// ready_to_proceed travels on the suspension handle as advice for the
// caller; it never overrides open questions.
//
// Updates: state.Suspended
func ClarificationWaitNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	out := state.ClarificationOutput
	if out == nil {
		return state, nil
	}
	if len(out.Questions) > 0 && len(state.Answers) == 0 {
		state.Suspended = true
	}
	return state, nil
}

func formatClarificationPrompt(state RunState) string {
	b := prompt.NewBuilder().
		AddSection("Project", state.Inputs.ProjectName).
		AddJSON("Ingested Context", state.IngestionOutput).
		AddJSON("Architecture Context", state.ArchOutput)
	if flags := collectMissingSignals(state); len(flags) > 0 {
		b.AddList("Missing Signals", flags)
	}
	return b.Build()
}

func collectMissingSignals(state RunState) []string {
	var flags []string
	if state.IngestionOutput != nil {
		flags = append(flags, state.IngestionOutput.MissingSignals...)
	}
	if state.ArchOutput != nil {
		flags = append(flags, state.ArchOutput.MissingSignals...)
	}
	return flags
}
