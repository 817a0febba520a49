package planflow

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/flowgraph/pkg/flowgraph"
	llm "github.com/randalmurphal/llmkit/claude"

	planctx "github.com/randalmurphal/planflow/context"
	"github.com/randalmurphal/planflow/stage"
	"github.com/randalmurphal/planflow/team"
)

type failingFetcher struct{}

func (failingFetcher) Members(context.Context, string) ([]team.Member, error) {
	return nil, errors.New("backend down")
}

func TestClarificationWaitNode(t *testing.T) {
	ctx := flowgraph.NewContext(context.Background())

	tests := []struct {
		name          string
		state         RunState
		wantSuspended bool
	}{
		{
			name:          "no clarification output",
			state:         RunState{},
			wantSuspended: false,
		},
		{
			name: "open questions suspend",
			state: RunState{ClarificationState: ClarificationState{
				ClarificationOutput: &ClarificationOutput{Questions: []Question{{ID: "q1", Text: "?"}}},
			}},
			wantSuspended: true,
		},
		{
			name: "no questions pass through",
			state: RunState{ClarificationState: ClarificationState{
				ClarificationOutput: &ClarificationOutput{ReadyToProceed: true},
			}},
			wantSuspended: false,
		},
		{
			name: "answered questions pass through",
			state: RunState{ClarificationState: ClarificationState{
				ClarificationOutput: &ClarificationOutput{Questions: []Question{{ID: "q1", Text: "?"}}},
				Answers:             AnswerSet{"q1": "pg"},
			}},
			wantSuspended: false,
		},
		{
			name: "ready to proceed still suspends on open questions",
			state: RunState{ClarificationState: ClarificationState{
				ClarificationOutput: &ClarificationOutput{
					Questions:      []Question{{ID: "q1", Text: "?"}},
					ReadyToProceed: true,
				},
			}},
			wantSuspended: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ClarificationWaitNode(ctx, tt.state)
			if err != nil {
				t.Fatal(err)
			}
			if out.Suspended != tt.wantSuspended {
				t.Errorf("Suspended = %v, want %v", out.Suspended, tt.wantSuspended)
			}
		})
	}
}

func TestFetchTeamModelCachesAndDegrades(t *testing.T) {
	services := &planctx.Services{Team: team.SampleFetcher()}
	ctx := flowgraph.NewContext(services.InjectAll(context.Background()))

	state := NewRunState("f", Inputs{Organization: "acme-robotics"})
	state = fetchTeamModel(ctx, state)
	if state.TeamModel == nil || state.TeamModel.Empty() {
		t.Fatalf("TeamModel = %+v", state.TeamModel)
	}

	// cached: a second fetch keeps the same snapshot
	snapshot := state.TeamModel
	state = fetchTeamModel(ctx, state)
	if state.TeamModel != snapshot {
		t.Error("cached team model was refetched")
	}

	// unknown org gets an empty roster, which builds an empty model
	state2 := NewRunState("f", Inputs{Organization: "no-such-org"})
	state2 = fetchTeamModel(ctx, state2)
	if state2.TeamModel == nil || !state2.TeamModel.Empty() {
		t.Errorf("TeamModel = %+v, want empty", state2.TeamModel)
	}

	// a failing backend degrades to an empty model with a flag
	failCtx := flowgraph.NewContext(planctx.WithTeam(context.Background(), failingFetcher{}))
	state4 := fetchTeamModel(failCtx, NewRunState("f", Inputs{Organization: "acme-robotics"}))
	if state4.TeamModel == nil || !state4.TeamModel.Empty() {
		t.Errorf("TeamModel = %+v, want empty", state4.TeamModel)
	}
	if len(state4.Flags) != 1 || state4.Flags[0] != "team_unavailable" {
		t.Errorf("Flags = %v", state4.Flags)
	}

	// no fetcher at all behaves the same minus the flag
	bare := flowgraph.NewContext(context.Background())
	state3 := fetchTeamModel(bare, NewRunState("f", Inputs{}))
	if state3.TeamModel == nil || !state3.TeamModel.Empty() {
		t.Errorf("TeamModel = %+v", state3.TeamModel)
	}
}

func TestStagesRequestTieredModels(t *testing.T) {
	var models []string
	client := llm.NewMockClient("").WithCompleteFunc(
		func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			models = append(models, req.Model)
			return &llm.CompletionResponse{Content: `{"overall_confidence":0.9,"confidence":0.9}`}, nil
		})
	services := &planctx.Services{LLM: client}
	ctx := flowgraph.NewContext(services.InjectAll(context.Background()))

	state := NewRunState("f", startInputs())
	state, err := IngestInputsNode(ctx, state)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ArchitectureContextNode(ctx, state); err != nil {
		t.Fatal(err)
	}

	if len(models) != 2 {
		t.Fatalf("models = %v", models)
	}
	wantIngest := string(stage.SelectModel(stage.Ingestion))
	wantArch := string(stage.SelectModel(stage.Architecture))
	if models[0] != wantIngest {
		t.Errorf("ingestion model = %q, want %q", models[0], wantIngest)
	}
	if models[1] != wantArch {
		t.Errorf("architecture model = %q, want %q", models[1], wantArch)
	}
	if wantIngest == wantArch {
		t.Error("extraction and reasoning stages should request different models")
	}
}

func TestIngestNodeMissingLLMFailsStage(t *testing.T) {
	ctx := flowgraph.NewContext(context.Background())

	out, err := IngestInputsNode(ctx, NewRunState("f", startInputs()))
	if err != nil {
		t.Fatalf("node errors must be recorded, not returned: %v", err)
	}
	if out.IngestionStatus != StatusFailed {
		t.Errorf("IngestionStatus = %q", out.IngestionStatus)
	}
	if len(out.Stages) != 1 || len(out.Stages[0].Errors) == 0 {
		t.Errorf("stages = %+v", out.Stages)
	}
}
