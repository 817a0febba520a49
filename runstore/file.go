package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore persists run records as one JSON file per run under
// baseDir/runs/. It is the default store: no daemon, easy to inspect.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates the storage directory and returns a FileStore.
func NewFileStore(baseDir string) (*FileStore, error) {
	dir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run store dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(runID string) string {
	return filepath.Join(s.baseDir, "runs", runID+".json")
}

// write persists rec atomically via temp file + rename. The record is
// marshaled compactly so the State blob reloads byte-for-byte.
func (s *FileStore) write(rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	path := s.path(rec.RunID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit run record: %w", err)
	}
	return nil
}

func (s *FileStore) read(runID string) (*Record, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("read run record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode run record %s: %w", runID, err)
	}
	return &rec, nil
}

// Create implements Store.
func (s *FileStore) Create(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(rec.RunID)); err == nil {
		return fmt.Errorf("%w: %s", ErrRunExists, rec.RunID)
	}
	now := time.Now()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return s.write(rec)
}

// Load implements Store.
func (s *FileStore) Load(runID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(runID)
}

// Save implements Store with an optimistic version check.
func (s *FileStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(rec.RunID)
	if err != nil {
		return err
	}
	if current.Version != rec.Version {
		return fmt.Errorf("%w: %s at version %d, caller has %d",
			ErrVersionConflict, rec.RunID, current.Version, rec.Version)
	}
	rec.Version++
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = time.Now()
	return s.write(rec)
}

// List implements Store, newest first.
func (s *FileStore) List(filter ListFilter) ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.baseDir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("list run store: %w", err)
	}

	var out []Meta
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue // skip unreadable records rather than failing the listing
		}
		if m := metaOf(rec); filter.matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Delete implements Store.
func (s *FileStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}
