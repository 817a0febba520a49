package planflow

import (
	"log/slog"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"

	"github.com/randalmurphal/planflow/artifact"
	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/prompt"
	"github.com/randalmurphal/planflow/team"
)

// DecomposeTasksNode breaks the project into domain-grouped tasks, shaped by
// the team's actual capabilities.
//
// Prerequisites: state.IngestionOutput must be set
// Updates: state.TeamModel, state.TaskOutput, state.TaskStatus
//
// The team model is fetched here and cached on the state so the matching
// stage works from the same roster snapshot.
func DecomposeTasksNode(ctx flowgraph.Context, state RunState) (RunState, error) {
	if err := state.Validate("ingestion"); err != nil {
		state.TaskStatus = StatusBlocked
		return state.recordStage(StageResult{
			Stage:  StageDecomposition,
			Status: StatusBlocked,
			Errors: []string{err.Error()},
		}, nil), nil
	}

	state = fetchTeamModel(ctx, state)

	state, raw, err := completeStage(ctx, state, StageDecomposition, formatDecompositionPrompt(state))
	if err != nil {
		state.TaskStatus = StatusFailed
		return state.recordStage(failResult(StageDecomposition, err), nil), nil
	}

	out := NormalizeTasks(raw)
	res := StageResult{
		Stage:      StageDecomposition,
		Confidence: out.Confidence,
	}

	tasks := out.Tasks()
	blocked := 0
	for _, t := range tasks {
		if t.Status == TaskBlocked {
			blocked++
		}
		if t.Assumption != "" {
			res.Assumptions = append(res.Assumptions, t.Assumption)
		}
	}

	switch {
	case len(tasks) == 0:
		res.Status = StatusBlocked
		res.Errors = []string{"decomposition produced no tasks"}
	case blocked*2 > len(tasks):
		res.Status = StatusNeedsClarification
	default:
		res.Status = StatusSuccess
	}

	state.TaskOutput = out
	state.TaskStatus = res.Status
	state = state.recordStage(res, out)

	if artifacts := planctx.Artifact(ctx); artifacts != nil {
		_ = artifacts.SaveJSON(state.RunID, artifact.FilePlan, out)
	}
	return state, nil
}

// fetchTeamModel pulls the roster capability model when the state does not
// already carry one. A missing or failing backend degrades to an empty model
// with a flag rather than failing the stage.
func fetchTeamModel(ctx flowgraph.Context, state RunState) RunState {
	if state.TeamModel != nil {
		return state
	}

	fetcher := planctx.Team(ctx)
	if fetcher == nil {
		return state.WithTeamModel(&team.CapabilityModel{})
	}

	model, err := team.CapabilityModelFor(ctx, fetcher, state.Inputs.Organization)
	if err != nil {
		slog.Warn("team lookup failed, planning without a roster",
			slog.String("run_id", state.RunID),
			slog.String("organization", state.Inputs.Organization),
			slog.String("error", err.Error()),
		)
		state.Flags = append(state.Flags, "team_unavailable")
		return state.WithTeamModel(&team.CapabilityModel{})
	}
	return state.WithTeamModel(model)
}

func formatDecompositionPrompt(state RunState) string {
	b := prompt.NewBuilder().
		AddSection("Project", state.Inputs.ProjectName).
		AddJSON("Ingested Context", state.IngestionOutput).
		AddJSON("Architecture Context", state.ArchOutput).
		AddJSON("Team Capabilities", state.TeamModel)
	if len(state.Answers) > 0 {
		b.AddJSON("Clarification Answers", state.Answers)
	}
	return b.Build()
}
