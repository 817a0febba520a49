package context

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/planflow/config"
	"github.com/randalmurphal/planflow/notify"
	"github.com/randalmurphal/planflow/runstore"
	"github.com/randalmurphal/planflow/team"
)

func TestInjectAndExtract(t *testing.T) {
	client := llm.NewMockClient("ok")
	store := runstore.NewMemoryStore()
	fetcher := team.SampleFetcher()

	s := &Services{LLM: client, Store: store, Team: fetcher}
	ctx := s.InjectAll(context.Background())

	if LLM(ctx) == nil {
		t.Error("LLM not injected")
	}
	if Store(ctx) == nil {
		t.Error("Store not injected")
	}
	if Team(ctx) == nil {
		t.Error("Team not injected")
	}
	// services that were nil stay absent
	if Prompt(ctx) != nil {
		t.Error("Prompt should be nil")
	}
	if Trace(ctx) != nil {
		t.Error("Trace should be nil")
	}
	if Artifact(ctx) != nil {
		t.Error("Artifact should be nil")
	}
}

func TestMustLLMPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLLM should panic on empty context")
		}
	}()
	MustLLM(context.Background())
}

func TestNewServicesDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := NewServices(Config{ProjectDir: dir, BaseDir: filepath.Join(dir, ".planflow")})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	if s.LLM == nil || s.Store == nil || s.Traces == nil || s.Artifacts == nil || s.Prompts == nil {
		t.Errorf("missing service: %+v", s)
	}
	// no backend URL configured, so the sample roster backs team lookups
	members, err := s.Team.Members(context.Background(), "acme-robotics")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) == 0 {
		t.Error("sample roster is empty")
	}
}

func TestNewServicesFromConfig(t *testing.T) {
	// keep the ambient environment out of the resolution
	for _, key := range []string{"PLANFLOW_STORE_DIR", "PLANFLOW_BACKEND_URL",
		"PLANFLOW_WEBHOOK_URL", "PLANFLOW_SLACK_WEBHOOK"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	local := "store_dir: .state\n" +
		"backend_url: https://teams.example.com\n" +
		"organization: acme-robotics\n" +
		"webhook_url: https://hooks.example.com/planflow\n"
	if err := os.WriteFile(filepath.Join(dir, config.LocalConfigName), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewServicesFromConfig(dir)
	if err != nil {
		t.Fatalf("NewServicesFromConfig: %v", err)
	}

	// store_dir is relative, so storage lands inside the project
	wantBase := filepath.Join(dir, ".state")
	if got := s.Artifacts.BaseDir(); got != wantBase {
		t.Errorf("BaseDir = %q, want %q", got, wantBase)
	}
	if _, err := os.Stat(filepath.Join(wantBase, "runs")); err != nil {
		t.Errorf("run store dir not created: %v", err)
	}

	// backend_url configured, so the roster comes from the HTTP client
	if _, ok := s.Team.(*team.Client); !ok {
		t.Errorf("Team = %T, want *team.Client", s.Team)
	}

	// webhook_url configured, slack absent
	if _, ok := s.Notifier.(*notify.WebhookNotifier); !ok {
		t.Errorf("Notifier = %T, want *notify.WebhookNotifier", s.Notifier)
	}
}

func TestNotifierFromConfigChain(t *testing.T) {
	resolver := config.NewResolverWithPaths("", "")
	if n := notifierFromConfig(resolver.Resolve()); n != nil {
		t.Errorf("Notifier = %T, want nil with nothing configured", n)
	}

	resolved := resolver.ResolveWithFlags(map[string]string{
		config.KeyWebhookURL:   "https://hooks.example.com/a",
		config.KeySlackWebhook: "https://hooks.slack.com/b",
	})
	if _, ok := notifierFromConfig(resolved).(*notify.MultiNotifier); !ok {
		t.Errorf("Notifier = %T, want *notify.MultiNotifier", notifierFromConfig(resolved))
	}
}

func TestBriefBuilder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Fleet Tracker\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "goals.md"), []byte("Track delivery vans."), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBriefBuilder(dir)
	if err := b.AddGlob("*.md"); err != nil {
		t.Fatal(err)
	}
	if b.DocCount() != 2 {
		t.Fatalf("DocCount = %d, want 2", b.DocCount())
	}

	brief, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(brief, "## README.md") || !strings.Contains(brief, "Fleet Tracker") {
		t.Errorf("brief missing content:\n%s", brief)
	}
	if !strings.Contains(brief, "Track delivery vans.") {
		t.Errorf("brief missing second document:\n%s", brief)
	}
}

func TestBriefBuilderRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBriefBuilder(dir)
	if err := b.AddFile("logo.png"); err == nil {
		t.Error("expected error for binary file")
	}
}

func TestBriefBuilderLimits(t *testing.T) {
	b := NewBriefBuilder(t.TempDir()).WithLimits(BriefLimits{
		MaxFileSize:  1024,
		MaxTotalSize: 1024,
		MaxFileCount: 1,
	})
	b.AddContent("a.md", []byte("alpha"))
	b.AddContent("b.md", []byte("beta"))

	_, err := b.Build()
	if !errors.Is(err, ErrBriefTooLarge) {
		t.Errorf("err = %v, want ErrBriefTooLarge", err)
	}
}

func TestBriefBuilderTruncatesLargeFiles(t *testing.T) {
	b := NewBriefBuilder(t.TempDir()).WithLimits(BriefLimits{
		MaxFileSize:  10,
		MaxTotalSize: 1024,
		MaxFileCount: 5,
	})
	b.AddContent("big.md", []byte(strings.Repeat("x", 100)))

	brief, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(brief, "[... truncated ...]") {
		t.Errorf("expected truncation marker:\n%s", brief)
	}
}
