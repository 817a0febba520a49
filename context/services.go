package context

import (
	"context"
	"path/filepath"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/planflow/artifact"
	"github.com/randalmurphal/planflow/config"
	"github.com/randalmurphal/planflow/notify"
	"github.com/randalmurphal/planflow/prompt"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/team"
	"github.com/randalmurphal/planflow/trace"
)

// Services wraps all planflow services for convenient initialization
type Services struct {
	LLM       llm.Client // flowgraph llm.Client interface
	Prompts   *prompt.Loader
	Team      team.Fetcher
	Store     runstore.Store
	Traces    trace.Manager
	Artifacts *artifact.Manager
	Notifier  notify.Notifier // Optional notification service
}

// InjectAll adds all configured services to the context
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.LLM != nil {
		ctx = WithLLM(ctx, s.LLM)
	}
	if s.Prompts != nil {
		ctx = WithPrompt(ctx, s.Prompts)
	}
	if s.Team != nil {
		ctx = WithTeam(ctx, s.Team)
	}
	if s.Store != nil {
		ctx = WithStore(ctx, s.Store)
	}
	if s.Traces != nil {
		ctx = WithTrace(ctx, s.Traces)
	}
	if s.Artifacts != nil {
		ctx = WithArtifact(ctx, s.Artifacts)
	}
	if s.Notifier != nil {
		ctx = notify.WithNotifier(ctx, s.Notifier)
	}
	return ctx
}

// Config configures NewServices
type Config struct {
	ProjectDir string // Project directory (default: ".")
	BaseDir    string // Base directory for storage (default: ".planflow")
	PromptDir  string // Extra directory for prompt templates (optional)

	// Team backend configuration. When BackendURL is empty the sample
	// roster is used instead.
	BackendURL   string
	AuthToken    string
	Organization string

	// LLM configuration
	LLMModel   string // Model to use (default: "claude-sonnet-4-20250514")
	LLMWorkdir string // Working directory for LLM (default: ProjectDir)
}

// NewServices creates Services with common defaults
func NewServices(cfg Config) (*Services, error) {
	s := &Services{}

	projectDir := cfg.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}

	// Create LLM client using flowgraph's llm.ClaudeCLI
	model := cfg.LLMModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	workdir := cfg.LLMWorkdir
	if workdir == "" {
		workdir = projectDir
	}
	s.LLM = llm.NewClaudeCLI(
		llm.WithModel(model),
		llm.WithWorkdir(workdir),
		llm.WithDangerouslySkipPermissions(), // Non-interactive mode for automation
	)

	// Create base directory for storage
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = ".planflow"
	}

	// Create run store
	store, err := runstore.NewFileStore(baseDir)
	if err != nil {
		return nil, err
	}
	s.Store = store

	// Create trace manager
	traces, err := trace.NewFileStore(baseDir)
	if err != nil {
		return nil, err
	}
	s.Traces = traces

	// Create artifact manager
	s.Artifacts = artifact.NewManager(artifact.Config{
		BaseDir: baseDir,
	})

	// Create prompt loader
	prompts := prompt.NewLoader(projectDir)
	if cfg.PromptDir != "" {
		prompts.AddSearchDir(cfg.PromptDir)
	}
	s.Prompts = prompts

	// Create team fetcher: real backend when configured, sample roster
	// otherwise so the pipeline works out of the box.
	if cfg.BackendURL != "" {
		s.Team = team.NewClient(cfg.BackendURL, team.WithToken(cfg.AuthToken))
	} else {
		s.Team = team.SampleFetcher()
	}

	return s, nil
}

// NewServicesFromConfig resolves the layered planflow configuration
// (defaults, global config, .planflow.yaml, environment) starting at
// startDir and builds services from it.
func NewServicesFromConfig(startDir string) (*Services, error) {
	resolver := config.NewResolver(startDir)
	resolved := resolver.Resolve()

	projectDir := resolver.ProjectDir()
	if projectDir == "" {
		projectDir = startDir
	}

	// store_dir is project-relative unless given as an absolute path
	baseDir := resolved.Get(config.KeyStoreDir)
	if baseDir != "" && !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(projectDir, baseDir)
	}

	s, err := NewServices(Config{
		ProjectDir:   projectDir,
		BaseDir:      baseDir,
		PromptDir:    resolved.Get(config.KeyPromptDir),
		BackendURL:   resolved.Get(config.KeyBackendURL),
		AuthToken:    resolved.Get(config.KeyAuthToken),
		Organization: resolved.Get(config.KeyOrganization),
		LLMModel:     resolved.Get(config.KeyLLMModel),
	})
	if err != nil {
		return nil, err
	}
	s.Notifier = notifierFromConfig(resolved)
	return s, nil
}

// notifierFromConfig builds the configured notifier chain, or nil when no
// destination is set.
func notifierFromConfig(resolved *config.Resolved) notify.Notifier {
	var notifiers []notify.Notifier
	if url := resolved.Get(config.KeyWebhookURL); url != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(url, nil))
	}
	if url := resolved.Get(config.KeySlackWebhook); url != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(url))
	}
	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return notify.NewMultiNotifier(notifiers...)
	}
}
