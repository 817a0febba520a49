package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore keeps one directory per run under baseDir/traces/, with
// metadata.json beside trace.json. Active runs are held in memory and
// flushed on EndRun.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
	active  map[string]*RunTrace
}

// NewFileStore creates a file-backed trace store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "traces"), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		active:  make(map[string]*RunTrace),
	}, nil
}

// BaseDir returns the store's root directory.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

func (s *FileStore) runDir(runID string) string {
	return filepath.Join(s.baseDir, "traces", runID)
}

// StartRun implements Manager.
func (s *FileStore) StartRun(runID string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[runID]; ok {
		return fmt.Errorf("%w: %s", ErrRunExists, runID)
	}
	if _, err := os.Stat(s.runDir(runID)); err == nil {
		return fmt.Errorf("%w: %s", ErrRunExists, runID)
	}
	if err := os.MkdirAll(s.runDir(runID), 0o755); err != nil {
		return err
	}

	meta.RunID = runID
	meta.Status = StatusRunning
	meta.StartedAt = time.Now()

	tr := &RunTrace{RunID: runID, Metadata: meta}
	if err := s.writeMetadata(runID, &tr.Metadata); err != nil {
		return err
	}
	s.active[runID] = tr
	return nil
}

// ResumeRun implements Manager: it loads a persisted trace back into the
// active set so a resumed run keeps appending to the same record.
func (s *FileStore) ResumeRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[runID]; ok {
		return nil
	}
	tr, err := s.loadFromDisk(runID)
	if err != nil {
		return err
	}
	tr.Metadata.Status = StatusRunning
	tr.Metadata.EndedAt = time.Time{}
	s.active[runID] = tr
	return nil
}

// RecordStage implements Manager.
func (s *FileStore) RecordStage(runID string, rec StageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.active[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	rec.Seq = len(tr.Stages) + 1
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	tr.Stages = append(tr.Stages, rec)
	tr.Metadata.StageCount = len(tr.Stages)
	return nil
}

// AddTokens implements Manager.
func (s *FileStore) AddTokens(runID string, in, out int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.active[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	tr.Metadata.TokensIn += in
	tr.Metadata.TokensOut += out
	return nil
}

// EndRun implements Manager: it flushes the trace to disk and drops it from
// the active set.
func (s *FileStore) EndRun(runID string, status RunStatus) error {
	return s.endRun(runID, status, "")
}

// EndRunWithError implements Manager.
func (s *FileStore) EndRunWithError(runID string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.endRun(runID, StatusFailed, msg)
}

func (s *FileStore) endRun(runID string, status RunStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.active[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotActive, runID)
	}
	tr.Metadata.Status = status
	tr.Metadata.EndedAt = time.Now()
	tr.Metadata.Error = errMsg

	if err := s.writeTrace(tr); err != nil {
		return err
	}
	if err := s.writeMetadata(runID, &tr.Metadata); err != nil {
		return err
	}
	delete(s.active, runID)
	return nil
}

// Load implements Manager. Active runs are returned as a snapshot copy.
func (s *FileStore) Load(runID string) (*RunTrace, error) {
	s.mu.RLock()
	if tr, ok := s.active[runID]; ok {
		data, err := json.Marshal(tr)
		s.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		var out RunTrace
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}
	s.mu.RUnlock()

	return s.loadFromDisk(runID)
}

func (s *FileStore) loadFromDisk(runID string) (*RunTrace, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), "trace.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var tr RunTrace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("decode trace %s: %w", runID, err)
	}
	return &tr, nil
}

// LoadMetadata implements Manager.
func (s *FileStore) LoadMetadata(runID string) (*Meta, error) {
	s.mu.RLock()
	if tr, ok := s.active[runID]; ok {
		meta := tr.Metadata
		s.mu.RUnlock()
		return &meta, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.runDir(runID), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// List implements Manager, newest first.
func (s *FileStore) List(filter ListFilter) ([]Meta, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "traces"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var results []Meta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.LoadMetadata(entry.Name())
		if err != nil {
			continue
		}
		if filter.FlowID != "" && meta.FlowID != filter.FlowID {
			continue
		}
		if filter.Status != "" && meta.Status != filter.Status {
			continue
		}
		if !filter.After.IsZero() && meta.StartedAt.Before(filter.After) {
			continue
		}
		if !filter.Before.IsZero() && meta.StartedAt.After(filter.Before) {
			continue
		}
		results = append(results, *meta)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// Delete implements Manager.
func (s *FileStore) Delete(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, runID)
	if err := os.RemoveAll(s.runDir(runID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) writeTrace(tr *RunTrace) error {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.runDir(tr.RunID), "trace.json"), data, 0o644)
}

func (s *FileStore) writeMetadata(runID string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.runDir(runID), "metadata.json"), data, 0o644)
}
