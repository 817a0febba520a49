package planflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/artifact"
	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/prompt"
)

// AssessRiskNode validates the assembled plan and scores its delivery risk.
//
// Prerequisites: state.TaskOutput and state.MatchingOutput must be set
// Updates: state.RiskOutput, state.RiskStatus
//
// Missing upstream products are themselves maximal risk: the node synthesizes
// a worst-case report instead of calling the model.
func AssessRiskNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if err := state.Validate("tasks", "matching"); err != nil {
		out := &RiskReport{
			RiskScore:      100,
			RiskLevel:      RiskHigh,
			BlockingIssues: []string{err.Error()},
		}
		state.RiskOutput = out
		state.RiskStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageRisk,
			Status: StatusBlocked,
			Errors: []string{err.Error()},
		}, out), nil
	}

	state, raw, err := completeStage(ctx, state, StageRisk, formatRiskPrompt(state))
	if err != nil {
		state.RiskStatus = StatusFailed
		return state.recordStage(failResult(StageRisk, err), nil), nil
	}

	out := NormalizeRisk(raw)
	res := StageResult{Stage: StageRisk, Flags: out.TopRisks}

	switch {
	case len(out.BlockingIssues) > 0:
		res.Status = StatusBlocked
		res.Confidence = 0
		res.Errors = out.BlockingIssues
	case out.RiskLevel == RiskHigh:
		res.Status = StatusNeedsClarification
		res.Confidence = 0.4
	case out.RiskLevel == RiskMedium:
		res.Status = StatusSuccess
		res.Confidence = 0.7
	default:
		res.Status = StatusSuccess
		res.Confidence = 0.9
	}

	state.RiskOutput = out
	state.RiskStatus = res.Status
	state = state.recordStage(res, out)

	if artifacts := planctx.Artifact(ctx); artifacts != nil {
		_ = artifacts.SaveJSON(state.RunID, artifact.FileRiskReport, out)
	}
	return state, nil
}

func formatRiskPrompt(state RunState) string {
	b := prompt.NewBuilder().
		AddSection("Project", state.Inputs.ProjectName).
		AddJSON("Ingested Context", state.IngestionOutput).
		AddJSON("Task Plan", state.TaskOutput).
		AddJSON("Assignments", state.MatchingOutput)
	if len(state.Assumptions) > 0 {
		b.AddList("Accumulated Assumptions", state.Assumptions)
	}
	return b.Build()
}
