package planflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/prompt"
)

// ArchitectureContextNode infers the architectural frame for the project
// from the ingested context.
//
// Prerequisites: state.IngestionOutput must be set
// Updates: state.ArchOutput, state.ArchStatus
func ArchitectureContextNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if err := state.Validate("ingestion"); err != nil {
		state.ArchStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageArchitecture,
			Status: StatusBlocked,
			Errors: []string{err.Error()},
		}, nil), nil
	}

	state, raw, err := completeStage(ctx, state, StageArchitecture, formatArchitecturePrompt(state))
	if err != nil {
		state.ArchStatus = StatusFailed
		return state.recordStage(failResult(StageArchitecture, err), nil), nil
	}

	out := NormalizeArchitecture(raw)
	res := StageResult{
		Stage:       StageArchitecture,
		Confidence:  out.Confidence,
		Assumptions: out.Assumptions,
	}

	if len(out.MissingSignals) > 0 && out.Confidence < 0.7 {
		res.Status = StatusNeedsClarification
		res.Flags = out.MissingSignals
	} else {
		res.Status = StatusSuccess
	}

	state.ArchOutput = out
	state.ArchStatus = res.Status
	return state.recordStage(res, out), nil
}

func formatArchitecturePrompt(state RunState) string {
	return prompt.NewBuilder().
		AddSection("Project", state.Inputs.ProjectName).
		AddJSON("Ingested Context", state.IngestionOutput).
		Build()
}
