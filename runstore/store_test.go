package runstore

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

// storeFactories covers every Store implementation with the same contract
// tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func record(runID string, phase Phase) *Record {
	return &Record{
		RunID:  runID,
		FlowID: "planning",
		Phase:  phase,
		State:  json.RawMessage(`{"runId":"` + runID + `"}`),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			rec := record("run_a", PhaseAwaitingClarification)
			if err := s.Create(rec); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if rec.Version != 1 {
				t.Errorf("Version after Create = %d, want 1", rec.Version)
			}

			loaded, err := s.Load("run_a")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Phase != PhaseAwaitingClarification {
				t.Errorf("Phase = %q", loaded.Phase)
			}
			if string(loaded.State) != `{"runId":"run_a"}` {
				t.Errorf("State = %s", loaded.State)
			}
		})
	}
}

func TestStoreCreateDuplicate(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			if err := s.Create(record("run_a", PhaseAwaitingInput)); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := s.Create(record("run_a", PhaseAwaitingInput)); !errors.Is(err, ErrRunExists) {
				t.Errorf("duplicate Create err = %v, want ErrRunExists", err)
			}
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			if _, err := s.Load("nonesuch"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Load err = %v, want ErrRunNotFound", err)
			}
		})
	}
}

func TestStoreSaveIncrementsVersion(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			rec := record("run_a", PhaseAwaitingClarification)
			if err := s.Create(rec); err != nil {
				t.Fatalf("Create: %v", err)
			}

			rec.Phase = PhaseCompleted
			if err := s.Save(rec); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if rec.Version != 2 {
				t.Errorf("Version after Save = %d, want 2", rec.Version)
			}

			loaded, err := s.Load("run_a")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Version != 2 || loaded.Phase != PhaseCompleted {
				t.Errorf("loaded = v%d %q, want v2 completed", loaded.Version, loaded.Phase)
			}
		})
	}
}

func TestStoreSaveVersionConflict(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			rec := record("run_a", PhaseAwaitingClarification)
			if err := s.Create(rec); err != nil {
				t.Fatalf("Create: %v", err)
			}

			// Two loads of the same version: first save wins, second loses.
			first, _ := s.Load("run_a")
			second, _ := s.Load("run_a")

			first.Phase = PhaseCompleted
			if err := s.Save(first); err != nil {
				t.Fatalf("first Save: %v", err)
			}
			second.Phase = PhaseErrored
			if err := s.Save(second); !errors.Is(err, ErrVersionConflict) {
				t.Errorf("second Save err = %v, want ErrVersionConflict", err)
			}
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			for _, r := range []*Record{
				record("run_a", PhaseCompleted),
				record("run_b", PhaseAwaitingClarification),
				record("run_c", PhaseAwaitingClarification),
			} {
				if err := s.Create(r); err != nil {
					t.Fatalf("Create %s: %v", r.RunID, err)
				}
			}

			suspended, err := s.List(ListFilter{Phase: PhaseAwaitingClarification})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(suspended) != 2 {
				t.Errorf("suspended count = %d, want 2", len(suspended))
			}

			limited, err := s.List(ListFilter{Limit: 1})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(limited) != 1 {
				t.Errorf("limited count = %d, want 1", len(limited))
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			if err := s.Create(record("run_a", PhaseCompleted)); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := s.Delete("run_a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Load("run_a"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("Load after Delete err = %v, want ErrRunNotFound", err)
			}
			if err := s.Delete("run_a"); !errors.Is(err, ErrRunNotFound) {
				t.Errorf("second Delete err = %v, want ErrRunNotFound", err)
			}
		})
	}
}
