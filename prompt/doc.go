// Package prompt loads the system prompts for the planning stages and
// assembles user prompts from run context.
//
// Core types:
//   - Loader: loads prompt templates from project files or embedded defaults
//   - Builder: assembles user prompts from brief text and upstream JSON
//
// Example usage:
//
//	loader := prompt.NewLoader(".")
//	system, err := loader.Load("task_decomposition")
//	user := prompt.NewBuilder().
//	    AddSection("Project Goal", goal).
//	    AddJSON("Architecture Context", archOutput).
//	    Build()
package prompt
