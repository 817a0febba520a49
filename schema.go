package planflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Schema Guard
// =============================================================================
// Stage prompts ask the model for strict JSON, and models mostly comply.
// "Mostly" is not a contract, so every stage output passes through one of the
// Normalize functions below before anything downstream touches it. The guard
// never returns an error: missing fields get zero values, wrong-typed fields
// are coerced or zeroed, out-of-range numbers are clamped, and list elements
// missing their discriminating field are dropped.

// ErrNoJSON is returned by ExtractJSON when no JSON object can be pulled out
// of the model output.
var ErrNoJSON = errors.New("planflow: no JSON object in model output")

// ExtractJSON pulls the first JSON object out of raw model output. Models
// wrap JSON in prose or markdown fences often enough that a plain Unmarshal
// is not enough; this scans for the first balanced {...} and decodes that.
func ExtractJSON(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)

	var out map[string]any
	if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
		return out, nil
	}

	start := strings.Index(trimmed, "{")
	if start < 0 {
		return nil, ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// skip structural chars inside strings
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := trimmed[start : i+1]
				if err := json.Unmarshal([]byte(candidate), &out); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
				}
				return out, nil
			}
		}
	}
	return nil, ErrNoJSON
}

// --- coercion helpers ---

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// boolOr reads a bool field with a default for the missing-key case. Present
// but wrong-typed values coerce to false, not to the default.
func boolOr(raw map[string]any, key string, def bool) bool {
	v, ok := raw[key]
	if !ok {
		return def
	}
	return asBool(v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// clamp01 coerces v to a confidence in [0, 1]. Non-numbers become 0.
func clamp01(v any) float64 {
	f, ok := asFloat(v)
	if !ok {
		return 0
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clampInt(v any, lo, hi int) int {
	f, ok := asFloat(v)
	if !ok {
		return lo
	}
	n := int(f)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// asStringList keeps non-empty string elements and drops everything else.
func asStringList(v any) []string {
	var out []string
	for _, e := range asList(v) {
		if s := asString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// confidenceOf reads the first present key from keys and clamps it.
func confidenceOf(raw map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return clamp01(v)
		}
	}
	return 0
}

// =============================================================================
// Per-stage normalization
// =============================================================================

// NormalizeIngestion guards the ingestion stage output.
func NormalizeIngestion(raw map[string]any) *IngestionOutput {
	if raw == nil {
		raw = map[string]any{}
	}
	return &IngestionOutput{
		ProjectGoal:        asString(raw["project_goal"]),
		PrimaryUsers:       asStringList(raw["primary_users"]),
		SystemType:         asString(raw["system_type"]),
		CoreDomains:        asStringList(raw["core_domains"]),
		Constraints:        asStringList(raw["constraints"]),
		Assumptions:        asStringList(raw["assumptions"]),
		NonGoals:           asStringList(raw["non_goals"]),
		Features:           asStringList(raw["features"]),
		OverallConfidence:  confidenceOf(raw, "overall_confidence", "confidence"),
		NeedsClarification: asBool(raw["needs_clarification"]),
		TooVague:           asBool(raw["too_vague"]),
		BlockMessage:       asString(raw["block_message"]),
		MissingSignals:     asStringList(raw["missing_signals"]),
	}
}

// NormalizeArchitecture guards the architecture-context stage output.
func NormalizeArchitecture(raw map[string]any) *ArchitectureOutput {
	if raw == nil {
		raw = map[string]any{}
	}
	return &ArchitectureOutput{
		SystemClass:        asString(raw["system_class"]),
		PrimaryPatterns:    asStringList(raw["primary_patterns"]),
		RequiredSubsystems: asStringList(raw["required_subsystems"]),
		Assumptions:        asStringList(raw["assumptions"]),
		MissingSignals:     asStringList(raw["missing_signals"]),
		Confidence:         confidenceOf(raw, "confidence", "overall_confidence"),
	}
}

// defaultOptions is what a question falls back to when the model supplies
// fewer than two usable options.
func defaultOptions() []Option {
	return []Option{{ID: "yes", Label: "Yes"}, {ID: "no", Label: "No"}}
}

// NormalizeClarification guards the clarification stage output. Questions
// without question text are dropped; surviving questions always end up with
// an ID, a valid answer type, and at least two options.
func NormalizeClarification(raw map[string]any) *ClarificationOutput {
	if raw == nil {
		raw = map[string]any{}
	}
	out := &ClarificationOutput{
		RiskReductionEstimate: clamp01(raw["risk_reduction_estimate"]),
		ResidualRiskEstimate:  clamp01(raw["residual_risk_estimate"]),
		ReadyToProceed:        asBool(raw["ready_to_proceed"]),
	}

	for _, e := range asList(raw["questions"]) {
		m := asMap(e)
		if m == nil {
			continue
		}
		text := asString(m["question"])
		if text == "" {
			continue
		}
		q := Question{
			ID:            asString(m["id"]),
			Text:          text,
			RiskAddressed: asString(m["risk_addressed"]),
			Blocking:      boolOr(m, "blocking", true),
			AnswerType:    asString(m["answer_type"]),
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", len(out.Questions)+1)
		}
		switch q.AnswerType {
		case AnswerSingle, AnswerMultiple, AnswerBoolean:
		default:
			q.AnswerType = AnswerSingle
		}
		for j, oe := range asList(m["options"]) {
			om := asMap(oe)
			if om == nil {
				continue
			}
			opt := Option{ID: asString(om["id"]), Label: asString(om["label"])}
			if opt.ID == "" && opt.Label == "" {
				continue
			}
			if opt.ID == "" {
				opt.ID = fmt.Sprintf("opt%d", j+1)
			}
			if opt.Label == "" {
				opt.Label = opt.ID
			}
			q.Options = append(q.Options, opt)
		}
		if len(q.Options) < 2 {
			q.Options = defaultOptions()
		}
		out.Questions = append(out.Questions, q)
	}
	return out
}

// NormalizeTasks guards the decomposition stage output. Tasks keep their own
// IDs when present; a task with a description but no ID gets a positional
// one, and a task with neither is dropped.
func NormalizeTasks(raw map[string]any) *TaskOutput {
	if raw == nil {
		raw = map[string]any{}
	}
	out := &TaskOutput{Confidence: confidenceOf(raw, "confidence", "overall_confidence")}

	seq := 0
	for _, ge := range asList(raw["task_groups"]) {
		gm := asMap(ge)
		if gm == nil {
			continue
		}
		group := TaskGroup{Domain: asString(gm["domain"])}
		if group.Domain == "" {
			group.Domain = "general"
		}
		for _, te := range asList(gm["tasks"]) {
			tm := asMap(te)
			if tm == nil {
				continue
			}
			t := Task{
				TaskID:             asString(tm["task_id"]),
				Description:        asString(tm["description"]),
				RequiredCapability: asString(tm["required_capability"]),
				Status:             asString(tm["status"]),
				Assumption:         asString(tm["assumption"]),
			}
			if t.TaskID == "" && t.Description == "" {
				continue
			}
			seq++
			if t.TaskID == "" {
				t.TaskID = fmt.Sprintf("task_%d", seq)
			}
			if t.RequiredCapability == "" {
				t.RequiredCapability = "backend"
			}
			switch t.Status {
			case TaskReady, TaskAdapted, TaskBlocked:
			default:
				t.Status = TaskReady
			}
			group.Tasks = append(group.Tasks, t)
		}
		out.TaskGroups = append(out.TaskGroups, group)
	}
	return out
}

// NormalizeMatching guards the matching stage output. Assignments and
// unassigned entries without a task_id are dropped.
func NormalizeMatching(raw map[string]any) *MatchingOutput {
	if raw == nil {
		raw = map[string]any{}
	}
	out := &MatchingOutput{Warnings: asStringList(raw["warnings"])}

	for _, e := range asList(raw["assignments"]) {
		m := asMap(e)
		if m == nil {
			continue
		}
		a := Assignment{
			TaskID:       asString(m["task_id"]),
			AssignedTo:   asString(m["assigned_to"]),
			Confidence:   clamp01(m["confidence"]),
			OverloadRisk: asBool(m["overload_risk"]),
		}
		if a.TaskID == "" {
			continue
		}
		if a.AssignedTo == "" {
			a.AssignedTo = "unassigned"
		}
		out.Assignments = append(out.Assignments, a)
	}

	for _, e := range asList(raw["unassigned_tasks"]) {
		m := asMap(e)
		if m == nil {
			continue
		}
		u := UnassignedTask{TaskID: asString(m["task_id"]), Reason: asString(m["reason"])}
		if u.TaskID == "" {
			continue
		}
		if u.Reason == "" {
			u.Reason = "no suitable capability found"
		}
		out.UnassignedTasks = append(out.UnassignedTasks, u)
	}
	return out
}

// riskLevelForScore derives a level when the model omits one or invents its
// own vocabulary.
func riskLevelForScore(score int) string {
	switch {
	case score <= 30:
		return RiskLow
	case score <= 60:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// NormalizeRisk guards the validation/risk stage output. The score is an int
// clamped to [0, 100], the level is re-derived from the score when invalid,
// and top risks are capped at five.
func NormalizeRisk(raw map[string]any) *RiskReport {
	if raw == nil {
		raw = map[string]any{}
	}
	r := &RiskReport{
		RiskScore:      clampInt(raw["risk_score"], 0, 100),
		RiskLevel:      asString(raw["risk_level"]),
		TopRisks:       asStringList(raw["top_risks"]),
		BlockingIssues: asStringList(raw["blocking_issues"]),
	}
	switch r.RiskLevel {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		r.RiskLevel = riskLevelForScore(r.RiskScore)
	}
	if len(r.TopRisks) > 5 {
		r.TopRisks = r.TopRisks[:5]
	}
	return r
}
