// Package config resolves planflow configuration from layered sources.
//
// Precedence, highest to lowest:
//  1. Command-line flags (via ResolveWithFlags)
//  2. PLANFLOW_* environment variables
//  3. Project-local .planflow.yaml (found by walking up from the
//     working directory)
//  4. Global ~/.config/planflow/config.yaml
//  5. Built-in defaults
//
// # Basic usage
//
//	resolver := config.NewResolver(".")
//	cfg := resolver.Resolve()
//	fmt.Println(cfg.Get(config.KeyBackendURL))
//	fmt.Println(cfg.Source(config.KeyBackendURL)) // "global", "env", ...
//
// # Environment variables
//
// Keys map to environment variables by upper-casing with the PLANFLOW_
// prefix: backend_url becomes PLANFLOW_BACKEND_URL.
//
// # Credentials
//
// auth_token is only accepted from global config or environment.
// Local .planflow.yaml files are committed with the project, so
// credential keys placed there are ignored with a warning.
package config
