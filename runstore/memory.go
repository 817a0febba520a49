package runstore

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process runs.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string]*Record{}}
}

// Create implements Store.
func (s *MemoryStore) Create(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[rec.RunID]; ok {
		return fmt.Errorf("%w: %s", ErrRunExists, rec.RunID)
	}
	now := time.Now()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.runs[rec.RunID] = cloneRecord(rec)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(runID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return cloneRecord(rec), nil
}

// Save implements Store with an optimistic version check.
func (s *MemoryStore) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.runs[rec.RunID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, rec.RunID)
	}
	if current.Version != rec.Version {
		return fmt.Errorf("%w: %s at version %d, caller has %d",
			ErrVersionConflict, rec.RunID, current.Version, rec.Version)
	}
	rec.Version++
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = time.Now()
	s.runs[rec.RunID] = cloneRecord(rec)
	return nil
}

// List implements Store, newest first.
func (s *MemoryStore) List(filter ListFilter) ([]Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Meta
	for _, rec := range s.runs {
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
func (s *MemoryStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	delete(s.runs, runID)
	return nil
}
