package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration keys recognized by the resolver.
const (
	// KeyBackendURL is the base URL of the team backend API.
	KeyBackendURL = "backend_url"

	// KeyAuthToken is the bearer token for the team backend.
	// Only settable globally or via environment, never in local config.
	KeyAuthToken = "auth_token"

	// KeyOrganization is the default organization for team lookups.
	KeyOrganization = "organization"

	// KeyLLMModel overrides the model used for all reasoning stages.
	KeyLLMModel = "llm_model"

	// KeyStoreDir is the base directory for run state, traces, and artifacts.
	KeyStoreDir = "store_dir"

	// KeyPromptDir is an extra directory searched for prompt templates.
	KeyPromptDir = "prompt_dir"

	// KeyWebhookURL receives run lifecycle events when set.
	KeyWebhookURL = "webhook_url"

	// KeySlackWebhook posts run lifecycle events to Slack when set.
	KeySlackWebhook = "slack_webhook"
)

// envPrefix is prepended to upper-cased keys for environment lookup,
// so backend_url maps to PLANFLOW_BACKEND_URL.
const envPrefix = "PLANFLOW_"

// globalConfigDir is the directory under ~/.config/ holding the
// global config.yaml.
const globalConfigDir = "planflow"

// LocalConfigName is the per-project config filename, found by walking
// up from the working directory.
const LocalConfigName = ".planflow.yaml"

// Defaults returns the built-in default values.
func Defaults() map[string]string {
	return map[string]string{
		KeyLLMModel: "sonnet",
		KeyStoreDir: ".planflow",
	}
}

// GlobalKeys lists keys that may be set in the global config file.
func GlobalKeys() []string {
	return []string{
		KeyBackendURL, KeyAuthToken, KeyOrganization,
		KeyLLMModel, KeyStoreDir, KeyWebhookURL, KeySlackWebhook,
	}
}

// LocalKeys lists keys that may be set in a project's .planflow.yaml.
// Credentials are excluded: local config is committed alongside the
// project, so auth_token must come from global config or environment.
func LocalKeys() []string {
	return []string{
		KeyBackendURL, KeyOrganization, KeyLLMModel,
		KeyStoreDir, KeyPromptDir, KeyWebhookURL, KeySlackWebhook,
	}
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver merges configuration from defaults, the global config file,
// the project-local config file, and environment variables.
// Priority (highest to lowest): flags > env > local > global > defaults.
type Resolver struct {
	globalPath string
	localPath  string
	projectDir string
	errWriter  io.Writer

	// Warnings collects non-fatal issues hit during resolution,
	// such as an unparseable config file.
	Warnings []string
}

// NewResolver creates a resolver rooted at the given directory.
// The local config is searched for by walking up from startDir; the
// global config lives at ~/.config/planflow/config.yaml.
func NewResolver(startDir string) *Resolver {
	r := &Resolver{errWriter: os.Stderr}

	if dir := findProjectDir(startDir); dir != "" {
		r.projectDir = dir
		r.localPath = filepath.Join(dir, LocalConfigName)
	}

	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", globalConfigDir, "config.yaml")
	}

	return r
}

// NewResolverWithPaths creates a resolver with explicit file paths.
// Useful for tests or when paths are known ahead of time.
func NewResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{
		globalPath: globalPath,
		localPath:  localPath,
		errWriter:  os.Stderr,
	}
}

// SetErrWriter redirects warning output. Pass io.Discard to silence.
func (r *Resolver) SetErrWriter(w io.Writer) {
	r.errWriter = w
}

// ProjectDir returns the directory containing the local config file,
// or empty if none was found.
func (r *Resolver) ProjectDir() string {
	return r.projectDir
}

// GlobalPath returns the path to the global config file.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the path to the local config file.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

// Resolve builds the final configuration by merging all sources.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range Defaults() {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}

	r.applyFile(cfg, r.globalPath, GlobalKeys(), SourceGlobal)
	r.applyFile(cfg, r.localPath, LocalKeys(), SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves config and applies flag overrides on top.
// Empty flag values are ignored.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, validKeys []string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // file doesn't exist - not an error
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if !contains(validKeys, key) {
			r.warn(fmt.Sprintf("%s: ignoring unknown key %q", path, key))
			continue
		}
		if strVal := toString(value); strVal != "" {
			cfg.values[key] = strVal
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	for _, key := range GlobalKeys() {
		envKey := envPrefix + strings.ToUpper(key)
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}
	// prompt_dir is local-only but still honors the env override
	if value := os.Getenv(envPrefix + strings.ToUpper(KeyPromptDir)); value != "" {
		cfg.values[KeyPromptDir] = value
		cfg.sources[KeyPromptDir] = SourceEnv
	}
}

// =============================================================================
// Resolved
// =============================================================================

// Resolved holds the final merged configuration.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string if not set.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns the source of a key's value.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Helper functions

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findProjectDir walks up from startDir looking for a .planflow.yaml.
func findProjectDir(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, LocalConfigName)); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}

	return ""
}
