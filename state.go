package planflow

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/randalmurphal/planflow/team"
)

// =============================================================================
// RunState
// =============================================================================

// Inputs is the project brief a run starts from.
type Inputs struct {
	ProjectName     string `json:"projectName"`
	TextDescription string `json:"textDescription,omitempty"`
	MarkdownContent string `json:"markdownContent,omitempty"`
	Organization    string `json:"organization,omitempty"`

	// RunID pins the run identifier; one is generated when empty.
	RunID string `json:"runId,omitempty"`
}

// Empty reports whether the brief carries no usable signal at all.
func (in Inputs) Empty() bool {
	return strings.TrimSpace(in.ProjectName) == "" &&
		strings.TrimSpace(in.TextDescription) == "" &&
		strings.TrimSpace(in.MarkdownContent) == ""
}

// StageSummary is one entry in the run's executed-stage log, in execution
// order.
type StageSummary struct {
	Stage      string   `json:"stage"`
	Status     Status   `json:"status"`
	Confidence float64  `json:"confidence"`
	Output     any      `json:"output,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// StageResult is what every stage node reports back, independent of its
// typed output.
type StageResult struct {
	Stage       string
	Status      Status
	Confidence  float64
	Assumptions []string
	Flags       []string
	Errors      []string
}

// IngestionState holds the ingestion stage's contribution to the run.
type IngestionState struct {
	IngestionOutput *IngestionOutput `json:"ingestionOutput,omitempty"`
	IngestionStatus Status           `json:"ingestionStatus,omitempty"`
}

// ArchitectureState holds the architecture-context stage's contribution.
type ArchitectureState struct {
	ArchOutput *ArchitectureOutput `json:"archOutput,omitempty"`
	ArchStatus Status              `json:"archStatus,omitempty"`
}

// ClarificationState holds the clarification questions, the user's answers,
// and the suspension marker the wait node sets.
type ClarificationState struct {
	ClarificationOutput *ClarificationOutput `json:"clarificationOutput,omitempty"`
	ClarificationStatus Status               `json:"clarificationStatus,omitempty"`
	Answers             AnswerSet            `json:"answers,omitempty"`
	Suspended           bool                 `json:"suspended,omitempty"`
}

// DecompositionState holds the task-decomposition stage's contribution.
type DecompositionState struct {
	TaskOutput *TaskOutput `json:"taskOutput,omitempty"`
	TaskStatus Status      `json:"taskStatus,omitempty"`
}

// MatchingState holds the role/task-matching stage's contribution.
type MatchingState struct {
	MatchingOutput *MatchingOutput `json:"matchingOutput,omitempty"`
	MatchingStatus Status          `json:"matchingStatus,omitempty"`
}

// RiskState holds the validation/risk stage's contribution.
type RiskState struct {
	RiskOutput *RiskReport `json:"riskOutput,omitempty"`
	RiskStatus Status      `json:"riskStatus,omitempty"`
}

// Metrics tracks token usage and timing across the run.
type Metrics struct {
	TokensIn  int           `json:"tokensIn,omitempty"`
	TokensOut int           `json:"tokensOut,omitempty"`
	StartedAt time.Time     `json:"startedAt,omitzero"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
}

// RunState is the single state value threaded through every stage node.
// It is append-only (stages add, never rewrite) and serializes to JSON
// bit-for-bit across a suspend/resume boundary.
type RunState struct {
	RunID  string `json:"runId"`
	FlowID string `json:"flowId"`
	Inputs Inputs `json:"inputs"`

	// TeamModel caches the roster capability model so matching does not
	// refetch what decomposition already pulled.
	TeamModel *team.CapabilityModel `json:"teamModel,omitempty"`

	IngestionState
	ArchitectureState
	ClarificationState
	DecompositionState
	MatchingState
	RiskState
	Metrics

	Stages      []StageSummary `json:"stages"`
	Assumptions []string       `json:"accumulatedAssumptions,omitempty"`
	Flags       []string       `json:"flags,omitempty"`
	FinalStatus Status         `json:"finalStatus,omitempty"`
}

// NewRunState creates a RunState for a fresh run. A run ID is generated when
// the inputs do not dictate one.
func NewRunState(flowID string, in Inputs) RunState {
	runID := in.RunID
	if runID == "" {
		runID = generateRunID()
	}
	return RunState{
		RunID:   runID,
		FlowID:  flowID,
		Inputs:  in,
		Metrics: Metrics{StartedAt: time.Now()},
	}
}

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func generateRunID() string {
	return "run_" + gonanoid.MustGenerate(runIDAlphabet, 12)
}

// --- builders (value receivers, chainable) ---

// WithRunID overrides the generated run ID.
func (s RunState) WithRunID(id string) RunState {
	s.RunID = id
	return s
}

// WithAnswers attaches the user's clarification answers and clears the
// suspension marker. Answers are carried as context for downstream stages;
// clarification is never re-scored. Blocking questions left unanswered are
// flagged on the run, never rejected.
func (s RunState) WithAnswers(answers AnswerSet) RunState {
	s.Answers = answers
	s.Suspended = false
	if s.ClarificationOutput != nil {
		out := *s.ClarificationOutput
		out.UserAnswers = answers
		s.ClarificationOutput = &out
		for _, id := range out.UnansweredBlocking(answers) {
			s.Flags = append(s.Flags, "unanswered_blocking:"+id)
		}
	}
	return s
}

// WithTeamModel caches a fetched capability model on the state.
func (s RunState) WithTeamModel(m *team.CapabilityModel) RunState {
	s.TeamModel = m
	return s
}

// recordStage appends the stage to the executed log, folds its assumptions
// and flags into the run-level accumulators, and recomputes the final status.
func (s RunState) recordStage(res StageResult, output any) RunState {
	s.Stages = append(s.Stages, StageSummary{
		Stage:      res.Stage,
		Status:     res.Status,
		Confidence: res.Confidence,
		Output:     output,
		Errors:     res.Errors,
	})
	s.Assumptions = append(s.Assumptions, res.Assumptions...)
	s.Flags = append(s.Flags, res.Flags...)
	s.FinalStatus = Aggregate(s.stageStatuses()...)
	return s
}

func (s RunState) stageStatuses() []Status {
	out := make([]Status, 0, len(s.Stages))
	for _, st := range s.Stages {
		out = append(out, st.Status)
	}
	return out
}

// AddTokens accumulates token usage from one completion.
func (s RunState) AddTokens(in, out int) RunState {
	s.TokensIn += in
	s.TokensOut += out
	return s
}

// LastStage returns the most recently executed stage summary, or nil when no
// stage has run.
func (s RunState) LastStage() *StageSummary {
	if len(s.Stages) == 0 {
		return nil
	}
	return &s.Stages[len(s.Stages)-1]
}

// Validate checks that the named upstream products are present. Recognized
// requirements: inputs, ingestion, architecture, clarification, tasks,
// matching.
func (s RunState) Validate(requirements ...string) error {
	for _, req := range requirements {
		switch req {
		case "inputs":
			if s.Inputs.Empty() {
				return fmt.Errorf("missing inputs: no project description or document provided")
			}
		case "ingestion":
			if s.IngestionOutput == nil {
				return fmt.Errorf("missing ingestion output")
			}
		case "architecture":
			if s.ArchOutput == nil {
				return fmt.Errorf("missing architecture output")
			}
		case "clarification":
			if s.ClarificationOutput == nil {
				return fmt.Errorf("missing clarification output")
			}
		case "tasks":
			if s.TaskOutput == nil {
				return fmt.Errorf("missing task decomposition output")
			}
		case "matching":
			if s.MatchingOutput == nil {
				return fmt.Errorf("missing matching output")
			}
		default:
			return fmt.Errorf("unknown requirement: %s", req)
		}
	}
	return nil
}

// Summary renders a short human-readable digest of the run.
func (s RunState) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s)\n", s.RunID, s.FlowID)
	fmt.Fprintf(&b, "  Project: %s\n", s.Inputs.ProjectName)
	fmt.Fprintf(&b, "  Status:  %s\n", s.FinalStatus)
	for _, st := range s.Stages {
		fmt.Fprintf(&b, "  - %-22s %-20s conf=%.2f\n", st.Stage, st.Status, st.Confidence)
	}
	if s.Suspended {
		n := 0
		if s.ClarificationOutput != nil {
			n = len(s.ClarificationOutput.Questions)
		}
		fmt.Fprintf(&b, "  Suspended: %d question(s) awaiting answers\n", n)
	}
	if s.TokensIn+s.TokensOut > 0 {
		fmt.Fprintf(&b, "  Tokens:  %d in / %d out\n", s.TokensIn, s.TokensOut)
	}
	return b.String()
}
