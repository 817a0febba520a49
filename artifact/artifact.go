package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Well-known artifact file names the pipeline writes as it runs.
const (
	FileQuestions  = "questions.json"
	FilePlan       = "plan.json"
	FileMatching   = "matching.json"
	FileRiskReport = "risk-report.json"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact: not found")

// Config configures a Manager.
type Config struct {
	// BaseDir is the root storage directory (e.g. ".planflow").
	BaseDir string
}

// Manager saves and loads per-run artifact files under
// BaseDir/artifacts/<runID>/.
type Manager struct {
	baseDir string
}

// NewManager creates a Manager rooted at cfg.BaseDir.
func NewManager(cfg Config) *Manager {
	return &Manager{baseDir: cfg.BaseDir}
}

// BaseDir returns the manager's root directory.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

func (m *Manager) runDir(runID string) string {
	return filepath.Join(m.baseDir, "artifacts", runID)
}

// SaveJSON marshals v with indentation and writes it as the named artifact.
func (m *Manager) SaveJSON(runID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	dir := m.runDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

// Load reads the named artifact's raw bytes.
func (m *Manager) Load(runID, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(m.runDir(runID), name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, runID, name)
		}
		return nil, err
	}
	return data, nil
}

// LoadJSON reads the named artifact and unmarshals it into out.
func (m *Manager) LoadJSON(runID, name string, out any) error {
	data, err := m.Load(runID, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", name, err)
	}
	return nil
}

// List returns the artifact file names stored for a run, sorted.
func (m *Manager) List(runID string) ([]string, error) {
	entries, err := os.ReadDir(m.runDir(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes all artifacts for a run.
func (m *Manager) Delete(runID string) error {
	return os.RemoveAll(m.runDir(runID))
}
