package context

import (
	"context"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/planflow/artifact"
	"github.com/randalmurphal/planflow/prompt"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/team"
	"github.com/randalmurphal/planflow/trace"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers allow planflow services to be injected into context.Context
// for use by flowgraph nodes.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for planflow services
const (
	llmServiceKey      serviceContextKey = "planflow.llm"
	promptServiceKey   serviceContextKey = "planflow.prompts"
	teamServiceKey     serviceContextKey = "planflow.team"
	storeServiceKey    serviceContextKey = "planflow.store"
	traceServiceKey    serviceContextKey = "planflow.traces"
	artifactServiceKey serviceContextKey = "planflow.artifacts"
)

// WithLLM adds an LLM client to the context.
// This uses flowgraph's llm.Client interface.
func WithLLM(ctx context.Context, client llm.Client) context.Context {
	return context.WithValue(ctx, llmServiceKey, client)
}

// LLM extracts the LLM client from context.
func LLM(ctx context.Context) llm.Client {
	if client, ok := ctx.Value(llmServiceKey).(llm.Client); ok {
		return client
	}
	return nil
}

// MustLLM extracts the LLM client or panics.
func MustLLM(ctx context.Context) llm.Client {
	client := LLM(ctx)
	if client == nil {
		panic("planflow/context: llm.Client not found in context")
	}
	return client
}

// WithPrompt adds a prompt loader to the context
func WithPrompt(ctx context.Context, loader *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, loader)
}

// Prompt extracts the prompt loader from context
func Prompt(ctx context.Context) *prompt.Loader {
	if loader, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return loader
	}
	return nil
}

// MustPrompt extracts the prompt loader or panics
func MustPrompt(ctx context.Context) *prompt.Loader {
	loader := Prompt(ctx)
	if loader == nil {
		panic("planflow/context: prompt.Loader not found in context")
	}
	return loader
}

// WithTeam adds a team fetcher to the context
func WithTeam(ctx context.Context, fetcher team.Fetcher) context.Context {
	return context.WithValue(ctx, teamServiceKey, fetcher)
}

// Team extracts the team fetcher from context
func Team(ctx context.Context) team.Fetcher {
	if fetcher, ok := ctx.Value(teamServiceKey).(team.Fetcher); ok {
		return fetcher
	}
	return nil
}

// WithStore adds a run store to the context
func WithStore(ctx context.Context, store runstore.Store) context.Context {
	return context.WithValue(ctx, storeServiceKey, store)
}

// Store extracts the run store from context
func Store(ctx context.Context) runstore.Store {
	if store, ok := ctx.Value(storeServiceKey).(runstore.Store); ok {
		return store
	}
	return nil
}

// WithTrace adds a trace manager to the context
func WithTrace(ctx context.Context, mgr trace.Manager) context.Context {
	return context.WithValue(ctx, traceServiceKey, mgr)
}

// Trace extracts the trace manager from context
func Trace(ctx context.Context) trace.Manager {
	if mgr, ok := ctx.Value(traceServiceKey).(trace.Manager); ok {
		return mgr
	}
	return nil
}

// WithArtifact adds an artifact manager to the context
func WithArtifact(ctx context.Context, mgr *artifact.Manager) context.Context {
	return context.WithValue(ctx, artifactServiceKey, mgr)
}

// Artifact extracts the artifact manager from context
func Artifact(ctx context.Context) *artifact.Manager {
	if mgr, ok := ctx.Value(artifactServiceKey).(*artifact.Manager); ok {
		return mgr
	}
	return nil
}
