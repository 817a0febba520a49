package planflow

import (
	"github.com/randalmurphal/planflow/team"
)

// Result is the caller-facing outcome of a planning run.
type Result struct {
	RunID  string `json:"runId"`
	FlowID string `json:"flowId"`

	// Status is the aggregated run status: the worst status any executed
	// stage reported.
	Status Status `json:"status"`

	// FinalOutput is the product of the terminal stage: the full aggregate
	// for a run that reached the end, or the blocking stage's output for a
	// run that halted early.
	FinalOutput any `json:"finalOutput,omitempty"`

	Stages []StageSummary `json:"stages"`

	TaskOutput     *TaskOutput           `json:"taskOutput,omitempty"`
	TeamModel      *team.CapabilityModel `json:"teamModel,omitempty"`
	MatchingOutput *MatchingOutput       `json:"matchingOutput,omitempty"`
	RiskReport     *RiskReport           `json:"riskReport,omitempty"`

	Assumptions []string `json:"assumptions,omitempty"`
	Flags       []string `json:"flags,omitempty"`
	Metrics     Metrics  `json:"metrics"`
}

// PlanAggregate is the final output of a run that made it through every
// stage: the plan plus everything needed to act on it.
type PlanAggregate struct {
	Project     string       `json:"project"`
	TaskGroups  []TaskGroup  `json:"task_groups"`
	Assignments []Assignment `json:"assignments,omitempty"`
	RiskReport  *RiskReport  `json:"risk_report,omitempty"`
	Assumptions []string     `json:"assumptions,omitempty"`
}

// buildResult derives the Result from a finished (non-suspended) run state.
// The terminal output is whichever stage halted the run, falling back to the
// richest product available when the run ran to the end.
func buildResult(state RunState) *Result {
	res := &Result{
		RunID:          state.RunID,
		FlowID:         state.FlowID,
		Status:         state.FinalStatus,
		Stages:         state.Stages,
		TaskOutput:     state.TaskOutput,
		TeamModel:      state.TeamModel,
		MatchingOutput: state.MatchingOutput,
		RiskReport:     state.RiskOutput,
		Assumptions:    state.Assumptions,
		Flags:          state.Flags,
		Metrics:        state.Metrics,
	}
	res.FinalOutput = terminalOutput(state)
	return res
}

// terminalOutput picks the output that explains how the run ended.
func terminalOutput(state RunState) any {
	switch {
	case state.IngestionStatus.Terminal():
		return state.IngestionOutput
	case state.ArchStatus.Terminal():
		return state.ArchOutput
	case state.TaskStatus.Terminal():
		return state.TaskOutput
	case state.MatchingStatus.Terminal():
		return state.MatchingOutput
	}

	// The run reached the end of the graph. Aggregate what it produced;
	// a run halted only by a failed clarification stage falls back to the
	// clarification output, then the architecture context.
	if state.TaskOutput != nil {
		agg := &PlanAggregate{
			Project:     state.Inputs.ProjectName,
			TaskGroups:  state.TaskOutput.TaskGroups,
			RiskReport:  state.RiskOutput,
			Assumptions: state.Assumptions,
		}
		if state.MatchingOutput != nil {
			agg.Assignments = state.MatchingOutput.Assignments
		}
		return agg
	}
	if state.ClarificationOutput != nil {
		return state.ClarificationOutput
	}
	if state.ArchOutput != nil {
		return state.ArchOutput
	}
	return state.IngestionOutput
}
