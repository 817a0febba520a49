package integrationtest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/planflow"
	"github.com/randalmurphal/planflow/artifact"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/trace"
)

func startInputs() planflow.Inputs {
	return planflow.Inputs{
		ProjectName:     "fleet-tracker",
		TextDescription: "Real-time tracking for delivery vans with geofence alerts.",
		Organization:    "acme-robotics",
	}
}

// TestFullPipeline runs all seven stages end to end against the file-backed
// stores and verifies the persisted side effects.
func TestFullPipeline(t *testing.T) {
	mockLLM := mockResponses(respIngest, respArch, respNoQuestions, respTasks, respMatch, respRiskLow)
	services := setupServices(t, mockLLM)

	engine, err := planflow.NewEngine(services)
	require.NoError(t, err)

	result, handle, err := engine.Start(context.Background(), startInputs())
	require.NoError(t, err)
	require.Nil(t, handle, "no questions were generated, so the run must not suspend")
	require.NotNil(t, result)

	assert.Equal(t, planflow.StatusSuccess, result.Status)
	assert.Len(t, result.Stages, 6)
	assert.Equal(t, 6, mockLLM.CallCount())

	agg, ok := result.FinalOutput.(*planflow.PlanAggregate)
	require.True(t, ok, "FinalOutput should be the plan aggregate, got %#v", result.FinalOutput)
	assert.Len(t, agg.TaskGroups, 2)
	assert.Len(t, agg.Assignments, 3)

	// run state persisted as completed
	rec, err := services.Store.Load(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, runstore.PhaseCompleted, rec.Phase)

	// trace recorded every stage and closed the run
	runTrace, err := services.Traces.Load(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, trace.StatusCompleted, runTrace.Metadata.Status)
	assert.Len(t, runTrace.Stages, 6)

	// plan, matching, and risk artifacts written
	files, err := services.Artifacts.List(result.RunID)
	require.NoError(t, err)
	assert.Contains(t, files, artifact.FilePlan)
	assert.Contains(t, files, artifact.FileMatching)
	assert.Contains(t, files, artifact.FileRiskReport)
}

// TestSuspendResumeAcrossEngines suspends a run, then resumes it from a
// second engine over the same stores, proving the suspension is durable.
func TestSuspendResumeAcrossEngines(t *testing.T) {
	mockLLM := mockResponses(respIngest, respArch, respTwoQuestions, respTasks, respMatch, respRiskLow)
	services := setupServices(t, mockLLM)

	engine, err := planflow.NewEngine(services)
	require.NoError(t, err)

	result, handle, err := engine.Start(context.Background(), startInputs())
	require.NoError(t, err)
	require.Nil(t, result)
	require.NotNil(t, handle)
	assert.Len(t, handle.Questions, 2)
	assert.Equal(t, 3, mockLLM.CallCount(), "suspension must not burn downstream model calls")

	// questions artifact written before suspension
	var questions []planflow.Question
	require.NoError(t, services.Artifacts.LoadJSON(handle.RunID, artifact.FileQuestions, &questions))
	assert.Len(t, questions, 2)

	// trace marked suspended
	meta, err := services.Traces.LoadMetadata(handle.RunID)
	require.NoError(t, err)
	assert.Equal(t, trace.StatusSuspended, meta.Status)

	// a fresh engine over the same services picks the run up
	engine2, err := planflow.NewEngine(services)
	require.NoError(t, err)

	answers := planflow.AnswerSet{"q1": "pg", "q2": true}
	result, handle2, err := engine2.Resume(context.Background(), handle.RunID, answers)
	require.NoError(t, err)
	require.Nil(t, handle2)
	require.NotNil(t, result)

	assert.Len(t, result.Stages, 6, "stage log spans both halves of the run")
	assert.Equal(t, 6, mockLLM.CallCount())

	// the answers are on the persisted state
	rec, err := services.Store.Load(handle.RunID)
	require.NoError(t, err)
	assert.Equal(t, runstore.PhaseCompleted, rec.Phase)

	var state map[string]any
	require.NoError(t, json.Unmarshal(rec.State, &state))
	answersOut, _ := state["answers"].(map[string]any)
	assert.Equal(t, "pg", answersOut["q1"])

	// the trace continued instead of restarting
	runTrace, err := services.Traces.Load(handle.RunID)
	require.NoError(t, err)
	assert.Equal(t, trace.StatusCompleted, runTrace.Metadata.Status)
	require.Len(t, runTrace.Stages, 6)
	assert.Equal(t, 6, runTrace.Stages[5].Seq, "stage sequence numbers continue across the suspension")

	// resuming again is rejected
	_, _, err = engine2.Resume(context.Background(), handle.RunID, answers)
	assert.ErrorIs(t, err, planflow.ErrNotSuspended)
}

// TestBlockedRunHaltsEarly verifies a vague brief stops at ingestion and
// writes nothing downstream.
func TestBlockedRunHaltsEarly(t *testing.T) {
	mockLLM := mockResponses(`{"project_goal":"","overall_confidence":0.2,"too_vague":true,` +
		`"block_message":"brief contains no plannable signal"}`)
	services := setupServices(t, mockLLM)

	engine, err := planflow.NewEngine(services)
	require.NoError(t, err)

	result, handle, err := engine.Start(context.Background(), startInputs())
	require.NoError(t, err)
	require.Nil(t, handle)

	assert.Equal(t, planflow.StatusBlocked, result.Status)
	assert.Len(t, result.Stages, 1)
	assert.Equal(t, 1, mockLLM.CallCount())

	files, err := services.Artifacts.List(result.RunID)
	require.NoError(t, err)
	assert.Empty(t, files, "a run blocked at ingestion produces no artifacts")
}

// TestConcurrentResumeLosesVersionRace simulates two resumers racing on the
// same suspended run.
func TestConcurrentResumeLosesVersionRace(t *testing.T) {
	mockLLM := mockResponses(respIngest, respArch, respTwoQuestions, respTasks, respMatch, respRiskLow)
	services := setupServices(t, mockLLM)

	engine, err := planflow.NewEngine(services)
	require.NoError(t, err)

	_, handle, err := engine.Start(context.Background(), startInputs())
	require.NoError(t, err)
	require.NotNil(t, handle)

	// first resumer wins
	answers := planflow.AnswerSet{"q1": "pg", "q2": true}
	_, _, err = engine.Resume(context.Background(), handle.RunID, answers)
	require.NoError(t, err)

	// second resumer finds the run no longer suspended
	_, _, err = engine.Resume(context.Background(), handle.RunID, answers)
	assert.ErrorIs(t, err, planflow.ErrNotSuspended)
}
