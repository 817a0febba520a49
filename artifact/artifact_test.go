package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestSaveLoadJSON(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	plan := map[string]any{"task_groups": []string{"backend"}}
	if err := m.SaveJSON("run_a", FilePlan, plan); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	var out map[string]any
	if err := m.LoadJSON("run_a", FilePlan, &out); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if _, ok := out["task_groups"]; !ok {
		t.Errorf("round-trip lost task_groups: %v", out)
	}
}

func TestLoadMissing(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})
	if _, err := m.Load("run_a", FileRiskReport); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	m := NewManager(Config{BaseDir: t.TempDir()})

	if err := m.SaveJSON("run_a", FileQuestions, []string{}); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveJSON("run_a", FileMatching, map[string]any{}); err != nil {
		t.Fatal(err)
	}

	names, err := m.List("run_a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(names, []string{FileMatching, FileQuestions}) {
		t.Errorf("List = %v", names)
	}

	empty, err := m.List("nonesuch")
	if err != nil {
		t.Fatalf("List missing run: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List for missing run = %v", empty)
	}
}

func TestCleanupRespectsKeepMin(t *testing.T) {
	base := t.TempDir()
	m := NewManager(Config{BaseDir: base})
	for _, id := range []string{"run_a", "run_b", "run_c"} {
		if err := m.SaveJSON(id, FilePlan, map[string]any{}); err != nil {
			t.Fatal(err)
		}
	}
	// Age all run dirs past the delete threshold.
	old := time.Now().AddDate(0, 0, -60)
	for _, id := range []string{"run_a", "run_b", "run_c"} {
		dir := filepath.Join(base, "artifacts", id)
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	lc := NewLifecycleManager(base, RetentionConfig{
		ArchiveAfterDays: 7,
		RetentionDays:    30,
		KeepMinRuns:      2,
	})
	result, err := lc.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Errorf("Deleted = %v, want exactly 1", result.Deleted)
	}
	if len(result.Kept) != 2 {
		t.Errorf("Kept = %v, want 2", result.Kept)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	base := t.TempDir()
	m := NewManager(Config{BaseDir: base})
	if err := m.SaveJSON("run_old", FileRiskReport, map[string]any{"risk_score": 20}); err != nil {
		t.Fatal(err)
	}

	old := time.Now().AddDate(0, 0, -10)
	dir := filepath.Join(base, "artifacts", "run_old")
	if err := os.Chtimes(dir, old, old); err != nil {
		t.Fatal(err)
	}

	lc := NewLifecycleManager(base, RetentionConfig{
		ArchiveAfterDays: 7,
		RetentionDays:    30,
		KeepMinRuns:      0,
	})
	result, err := lc.Cleanup(false)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !slices.Contains(result.Archived, "run_old") {
		t.Fatalf("Archived = %v, want run_old", result.Archived)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("archived run dir should be removed")
	}

	if err := lc.RestoreArchive("run_old"); err != nil {
		t.Fatalf("RestoreArchive: %v", err)
	}
	var report map[string]any
	if err := m.LoadJSON("run_old", FileRiskReport, &report); err != nil {
		t.Fatalf("LoadJSON after restore: %v", err)
	}
}

func TestCleanupDryRun(t *testing.T) {
	base := t.TempDir()
	m := NewManager(Config{BaseDir: base})
	if err := m.SaveJSON("run_a", FilePlan, map[string]any{}); err != nil {
		t.Fatal(err)
	}
	old := time.Now().AddDate(0, 0, -60)
	dir := filepath.Join(base, "artifacts", "run_a")
	if err := os.Chtimes(dir, old, old); err != nil {
		t.Fatal(err)
	}

	lc := NewLifecycleManager(base, RetentionConfig{ArchiveAfterDays: 7, RetentionDays: 30})
	result, err := lc.Cleanup(true)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if len(result.Deleted) != 1 {
		t.Errorf("dry run should report the delete: %v", result.Deleted)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("dry run must not touch disk")
	}
}
