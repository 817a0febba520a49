// Package context provides dependency injection for pipeline services.
//
// Core types:
//   - Services: Collection of all planflow services for injection
//   - BriefBuilder: Assembles a markdown project brief from documents
//
// Context injection functions:
//   - WithLLM/LLM: LLM client injection (flowgraph llm.Client)
//   - WithPrompt/Prompt: Prompt loader injection
//   - WithTeam/Team: Team fetcher injection
//   - WithStore/Store: Run store injection
//   - WithTrace/Trace: Trace manager injection
//   - WithArtifact/Artifact: Artifact manager injection
//
// Example usage:
//
//	services := &context.Services{
//	    LLM:   llmClient,
//	    Store: store,
//	    Team:  team.SampleFetcher(),
//	}
//	ctx := services.InjectAll(ctx)
//
//	// Later, retrieve services
//	client := context.LLM(ctx)
//	store := context.Store(ctx)
package context
