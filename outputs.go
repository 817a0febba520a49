package planflow

// Typed stage outputs. JSON tags follow the wire schema the stage prompts ask
// the model for, so a guarded output re-marshals to the same shape the model
// was instructed to produce.

// =============================================================================
// Input Ingestion
// =============================================================================

// IngestionOutput is the normalized project context extracted from the brief.
type IngestionOutput struct {
	ProjectGoal        string   `json:"project_goal"`
	PrimaryUsers       []string `json:"primary_users"`
	SystemType         string   `json:"system_type"`
	CoreDomains        []string `json:"core_domains"`
	Constraints        []string `json:"constraints"`
	Assumptions        []string `json:"assumptions"`
	NonGoals           []string `json:"non_goals"`
	Features           []string `json:"features"`
	OverallConfidence  float64  `json:"overall_confidence"`
	NeedsClarification bool     `json:"needs_clarification"`
	TooVague           bool     `json:"too_vague"`
	BlockMessage       string   `json:"block_message,omitempty"`
	MissingSignals     []string `json:"missing_signals,omitempty"`
}

// =============================================================================
// Architecture Context
// =============================================================================

// ArchitectureOutput is the inferred architectural frame for the project.
type ArchitectureOutput struct {
	SystemClass        string   `json:"system_class"`
	PrimaryPatterns    []string `json:"primary_patterns"`
	RequiredSubsystems []string `json:"required_subsystems"`
	Assumptions        []string `json:"assumptions"`
	MissingSignals     []string `json:"missing_signals"`
	Confidence         float64  `json:"confidence"`
}

// =============================================================================
// Clarification
// =============================================================================

// AnswerType constrains how a clarification question may be answered.
const (
	AnswerSingle   = "single"
	AnswerMultiple = "multiple"
	AnswerBoolean  = "boolean"
)

// Option is one selectable answer to a clarification question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is a single clarification question for the user.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"question"`
	RiskAddressed string   `json:"risk_addressed,omitempty"`
	Blocking      bool     `json:"blocking"`
	AnswerType    string   `json:"answer_type"`
	Options       []Option `json:"options"`
}

// AnswerSet maps question IDs to the user's answers. Values are an option ID
// (single), a list of option IDs (multiple), or a yes/no value (boolean).
type AnswerSet map[string]any

// ClarificationOutput carries the generated questions and risk estimates.
type ClarificationOutput struct {
	Questions             []Question `json:"questions"`
	RiskReductionEstimate float64    `json:"risk_reduction_estimate"`
	ResidualRiskEstimate  float64    `json:"residual_risk_estimate"`
	ReadyToProceed        bool       `json:"ready_to_proceed"`
	UserAnswers           AnswerSet  `json:"user_answers,omitempty"`
}

// UnansweredBlocking lists the IDs of blocking questions that answers does
// not cover.
func (c *ClarificationOutput) UnansweredBlocking(answers AnswerSet) []string {
	var missing []string
	for _, q := range c.Questions {
		if !q.Blocking {
			continue
		}
		if _, ok := answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// =============================================================================
// Task Decomposition
// =============================================================================

// Task statuses assigned by the decomposition stage.
const (
	TaskReady   = "ready"
	TaskAdapted = "adapted"
	TaskBlocked = "blocked"
)

// Task is one unit of work inside a domain group.
type Task struct {
	TaskID             string `json:"task_id"`
	Description        string `json:"description"`
	RequiredCapability string `json:"required_capability"`
	Status             string `json:"status"`
	Assumption         string `json:"assumption,omitempty"`
}

// TaskGroup clusters tasks by delivery domain.
type TaskGroup struct {
	Domain string `json:"domain"`
	Tasks  []Task `json:"tasks"`
}

// TaskOutput is the full decomposition of the project into tasks.
type TaskOutput struct {
	TaskGroups []TaskGroup `json:"task_groups"`
	Confidence float64     `json:"confidence"`
}

// Tasks returns every task across all groups, in group order.
func (o *TaskOutput) Tasks() []Task {
	if o == nil {
		return nil
	}
	var all []Task
	for _, g := range o.TaskGroups {
		all = append(all, g.Tasks...)
	}
	return all
}

// =============================================================================
// Role/Task Matching
// =============================================================================

// Assignment maps one task onto a team capability.
type Assignment struct {
	TaskID       string  `json:"task_id"`
	AssignedTo   string  `json:"assigned_to"`
	Confidence   float64 `json:"confidence"`
	OverloadRisk bool    `json:"overload_risk"`
}

// UnassignedTask records a task no capability could absorb, with the reason.
type UnassignedTask struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// MatchingOutput is the result of matching tasks against the team model.
type MatchingOutput struct {
	Assignments     []Assignment     `json:"assignments"`
	UnassignedTasks []UnassignedTask `json:"unassigned_tasks"`
	Warnings        []string         `json:"warnings"`
}

// =============================================================================
// Validation & Risk
// =============================================================================

// Risk levels reported by the validation stage.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// RiskReport is the final plan-level risk assessment.
type RiskReport struct {
	RiskScore      int      `json:"risk_score"`
	RiskLevel      string   `json:"risk_level"`
	TopRisks       []string `json:"top_risks"`
	BlockingIssues []string `json:"blocking_issues"`
}
