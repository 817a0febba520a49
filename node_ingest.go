package planflow

import (
	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/prompt"
)

// IngestInputsNode normalizes the raw project brief into structured context.
//
// Prerequisites: none (entry node)
// Updates: state.IngestionOutput, state.IngestionStatus
//
// An empty brief blocks the run without spending a model call.
func IngestInputsNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if state.Inputs.Empty() {
		out := &IngestionOutput{
			TooVague:     true,
			BlockMessage: "no project description or document provided",
		}
		state.IngestionOutput = out
		state.IngestionStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageIngestion,
			Status: StatusBlocked,
			Errors: []string{out.BlockMessage},
		}, out), nil
	}

	state, raw, err := completeStage(ctx, state, StageIngestion, formatIngestionPrompt(state.Inputs))
	if err != nil {
		state.IngestionStatus = StatusFailed
		return state.recordStage(failResult(StageIngestion, err), nil), nil
	}

	out := NormalizeIngestion(raw)
	res := StageResult{
		Stage:       StageIngestion,
		Confidence:  out.OverallConfidence,
		Assumptions: out.Assumptions,
	}

	switch {
	case out.TooVague || out.OverallConfidence < 0.4:
		res.Status = StatusBlocked
		if out.BlockMessage == "" {
			out.BlockMessage = "project description too vague to plan from"
		}
		res.Errors = []string{out.BlockMessage}
	case out.NeedsClarification || out.OverallConfidence < 0.7:
		res.Status = StatusNeedsClarification
		res.Flags = out.MissingSignals
	default:
		res.Status = StatusSuccess
	}

	state.IngestionOutput = out
	state.IngestionStatus = res.Status
	return state.recordStage(res, out), nil
}

func formatIngestionPrompt(in Inputs) string {
	b := prompt.NewBuilder()
	b.AddSection("Project", in.ProjectName)
	if in.TextDescription != "" {
		b.AddSection("Description", in.TextDescription)
	}
	if in.MarkdownContent != "" {
		b.AddSection("Project Document", in.MarkdownContent)
	}
	if in.Organization != "" {
		b.AddSection("Organization", in.Organization)
	}
	return b.Build()
}
