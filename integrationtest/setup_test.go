package integrationtest

import (
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/planflow/artifact"
	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/team"
	"github.com/randalmurphal/planflow/trace"
)

// setupServices builds a full service set backed by a temp directory, with
// the given mock client as the model.
func setupServices(t *testing.T, mockLLM llm.Client) *planctx.Services {
	t.Helper()

	baseDir := t.TempDir()

	store, err := runstore.NewFileStore(baseDir)
	if err != nil {
		t.Fatalf("runstore.NewFileStore: %v", err)
	}
	traces, err := trace.NewFileStore(baseDir)
	if err != nil {
		t.Fatalf("trace.NewFileStore: %v", err)
	}

	return &planctx.Services{
		LLM:       mockLLM,
		Store:     store,
		Traces:    traces,
		Artifacts: artifact.NewManager(artifact.Config{BaseDir: baseDir}),
		Team:      team.SampleFetcher(),
	}
}

// mockResponses creates a MockClient with sequential responses.
func mockResponses(responses ...string) *llm.MockClient {
	return llm.NewMockClient("").WithResponses(responses...)
}

// Canned stage outputs used across the tests.
const (
	respIngest = `{"project_goal":"Track delivery vans in real time","primary_users":["dispatchers"],` +
		`"system_type":"web_app","core_domains":["tracking","alerts"],` +
		`"features":["live map","geofence alerts"],"overall_confidence":0.85}`

	respArch = `{"system_class":"event_driven","primary_patterns":["stream processing"],` +
		`"required_subsystems":["ingest","storage","api"],"confidence":0.8}`

	respNoQuestions = `{"questions":[],"risk_reduction_estimate":0,"residual_risk_estimate":0.1,"ready_to_proceed":true}`

	respTwoQuestions = `{"questions":[` +
		`{"id":"q1","question":"Which database?","blocking":true,"answer_type":"single",` +
		`"options":[{"id":"pg","label":"Postgres"},{"id":"my","label":"MySQL"}]},` +
		`{"id":"q2","question":"Multi-tenant?","blocking":true,"answer_type":"boolean"}],` +
		`"risk_reduction_estimate":0.4,"residual_risk_estimate":0.5,"ready_to_proceed":false}`

	respTasks = `{"task_groups":[` +
		`{"domain":"backend","tasks":[` +
		`{"task_id":"be_1","description":"Ingest GPS events","required_capability":"backend","status":"ready"},` +
		`{"task_id":"be_2","description":"Alert rules engine","required_capability":"backend","status":"ready"}]},` +
		`{"domain":"frontend","tasks":[` +
		`{"task_id":"fe_1","description":"Live map","required_capability":"frontend","status":"ready"}]}],` +
		`"confidence":0.8}`

	respMatch = `{"assignments":[` +
		`{"task_id":"be_1","assigned_to":"backend","confidence":0.9},` +
		`{"task_id":"be_2","assigned_to":"backend","confidence":0.85},` +
		`{"task_id":"fe_1","assigned_to":"frontend","confidence":0.9}],` +
		`"unassigned_tasks":[],"warnings":[]}`

	respRiskLow = `{"risk_score":20,"risk_level":"low","top_risks":["gps jitter"],"blocking_issues":[]}`
)
