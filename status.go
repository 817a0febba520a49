package planflow

// Status is the closed set of outcomes a stage (or a whole run) can report.
type Status string

const (
	// StatusSuccess means the stage produced usable output.
	StatusSuccess Status = "success"
	// StatusNeedsClarification means the stage produced output but wants
	// user input before the plan should be trusted.
	StatusNeedsClarification Status = "needs_clarification"
	// StatusBlocked means the stage could not proceed on the available
	// input. The pipeline halts at the first blocked stage.
	StatusBlocked Status = "blocked"
	// StatusFailed means the stage itself broke: the model call errored or
	// returned something no JSON object could be pulled out of.
	StatusFailed Status = "failed"
)

// severity orders statuses for aggregation. Higher wins.
func (s Status) severity() int {
	switch s {
	case StatusFailed:
		return 3
	case StatusBlocked:
		return 2
	case StatusNeedsClarification:
		return 1
	case StatusSuccess:
		return 0
	default:
		return 0
	}
}

// Terminal reports whether a stage with this status halts the pipeline.
func (s Status) Terminal() bool {
	return s == StatusBlocked || s == StatusFailed
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusNeedsClarification, StatusBlocked, StatusFailed:
		return true
	}
	return false
}

// Aggregate folds stage statuses into a single run status: the most severe
// status present wins (failed > blocked > needs_clarification > success).
// The fold is pure and order-independent; with no statuses it returns
// StatusSuccess.
func Aggregate(statuses ...Status) Status {
	out := StatusSuccess
	for _, s := range statuses {
		if !s.Valid() {
			continue
		}
		if s.severity() > out.severity() {
			out = s
		}
	}
	return out
}
