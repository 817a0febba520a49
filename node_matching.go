package planflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/artifact"
	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/prompt"
)

// MatchTasksNode assigns decomposed tasks to team capabilities and surfaces
// coverage gaps and overload risk.
//
// Prerequisites: state.TaskOutput must be set
// Updates: state.MatchingOutput, state.MatchingStatus
func MatchTasksNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if err := state.Validate("tasks"); err != nil {
		state.MatchingStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageMatching,
			Status: StatusBlocked,
			Errors: []string{err.Error()},
		}, nil), nil
	}

	state, raw, err := completeStage(ctx, state, StageMatching, formatMatchingPrompt(state))
	if err != nil {
		state.MatchingStatus = StatusFailed
		return state.recordStage(failResult(StageMatching, err), nil), nil
	}

	out := NormalizeMatching(raw)
	res := StageResult{Stage: StageMatching, Flags: out.Warnings}

	total := len(state.TaskOutput.Tasks())
	overloaded := 0
	for _, a := range out.Assignments {
		if a.OverloadRisk {
			overloaded++
		}
	}

	switch {
	case total == 0 || len(out.Assignments) == 0:
		res.Status = StatusBlocked
		res.Errors = []string{"no tasks could be assigned"}
	case len(out.UnassignedTasks)*2 > total:
		res.Status = StatusNeedsClarification
		res.Confidence = 0.3
	case overloaded*2 > len(out.Assignments):
		res.Status = StatusNeedsClarification
		res.Confidence = 0.5
	case len(out.Warnings) > 0:
		res.Status = StatusSuccess
		res.Confidence = 0.7
	default:
		res.Status = StatusSuccess
		res.Confidence = 0.9
	}

	state.MatchingOutput = out
	state.MatchingStatus = res.Status
	state = state.recordStage(res, out)

	if artifacts := planctx.Artifact(ctx); artifacts != nil {
		_ = artifacts.SaveJSON(state.RunID, artifact.FileMatching, out)
	}
	return state, nil
}

func formatMatchingPrompt(state RunState) string {
	return prompt.NewBuilder().
		AddSection("Project", state.Inputs.ProjectName).
		AddJSON("Task Plan", state.TaskOutput).
		AddJSON("Team Capabilities", state.TeamModel).
		Build()
}
