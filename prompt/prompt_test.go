package prompt

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestEmbeddedStagePrompts(t *testing.T) {
	loader := NewLoader(t.TempDir())

	stages := []string{
		"input_ingestion",
		"architecture_context",
		"clarification",
		"task_decomposition",
		"role_task_matching",
		"validation_risk",
	}
	for _, name := range stages {
		content, err := loader.Load(name)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if !strings.Contains(content, "Return ONLY valid JSON") {
			t.Errorf("%s prompt missing the JSON-only instruction", name)
		}
	}
}

func TestFilesystemOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	promptDir := filepath.Join(dir, ".planflow", "prompts")
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	custom := "custom ingestion prompt"
	if err := os.WriteFile(filepath.Join(promptDir, "input_ingestion.txt"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	got, err := loader.Load("input_ingestion")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != custom {
		t.Errorf("Load = %q, want override", got)
	}
}

func TestLoadWithVars(t *testing.T) {
	dir := t.TempDir()
	promptDir := filepath.Join(dir, "prompts")
	if err := os.MkdirAll(promptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	tmpl := "Plan {{.project | title}} carefully."
	if err := os.WriteFile(filepath.Join(promptDir, "greet.txt"), []byte(tmpl), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	got, err := loader.LoadWithVars("greet", map[string]any{"project": "orion"})
	if err != nil {
		t.Fatalf("LoadWithVars: %v", err)
	}
	if got != "Plan Orion carefully." {
		t.Errorf("rendered = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.Load("nonesuch"); err == nil {
		t.Error("expected error for unknown prompt")
	}
	if loader.Exists("nonesuch") {
		t.Error("Exists should be false for unknown prompt")
	}
}

func TestList(t *testing.T) {
	loader := NewLoader(t.TempDir())
	names, err := loader.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Contains(names, "validation_risk") {
		t.Errorf("List = %v, missing embedded prompts", names)
	}
}

func TestBuilder(t *testing.T) {
	got := NewBuilder().
		AddSection("Project Goal", "build a scheduling tool").
		AddList("Constraints", []string{"GDPR", "two-week deadline"}).
		AddJSON("Team Model", map[string]int{"backend": 2}).
		Build()

	for _, want := range []string{
		"## Project Goal",
		"- GDPR",
		"```json",
		`"backend": 2`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q:\n%s", want, got)
		}
	}
}
