package artifact

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetentionConfig controls how long run artifacts are kept on disk.
type RetentionConfig struct {
	// ArchiveAfterDays compresses runs older than this into tar.gz files.
	ArchiveAfterDays int
	// RetentionDays deletes runs (and their archives) older than this.
	RetentionDays int
	// KeepMinRuns is a floor: the newest N runs are never touched.
	KeepMinRuns int
}

// DefaultRetentionConfig returns the policy used when callers pass nothing.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		ArchiveAfterDays: 7,
		RetentionDays:    30,
		KeepMinRuns:      50,
	}
}

// LifecycleManager applies a retention policy to a Manager's storage tree.
type LifecycleManager struct {
	baseDir string
	config  RetentionConfig
}

// NewLifecycleManager creates a lifecycle manager over the same BaseDir the
// artifact Manager writes to.
func NewLifecycleManager(baseDir string, config RetentionConfig) *LifecycleManager {
	return &LifecycleManager{baseDir: baseDir, config: config}
}

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	Archived   []string `json:"archived"`
	Deleted    []string `json:"deleted"`
	Kept       []string `json:"kept"`
	Errors     []string `json:"errors,omitempty"`
	SpaceSaved int64    `json:"spaceSaved"`
}

// Cleanup archives and deletes run artifact directories per the retention
// policy. With dryRun set it only reports what it would do.
func (m *LifecycleManager) Cleanup(dryRun bool) (*CleanupResult, error) {
	result := &CleanupResult{}

	artifactsDir := filepath.Join(m.baseDir, "artifacts")
	entries, err := os.ReadDir(artifactsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	type runInfo struct {
		id       string
		modified time.Time
		size     int64
	}

	var runs []runInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stat %s: %v", entry.Name(), err))
			continue
		}
		runs = append(runs, runInfo{
			id:       entry.Name(),
			modified: info.ModTime(),
			size:     dirSize(filepath.Join(artifactsDir, entry.Name())),
		})
	}

	// Oldest first, so the keep-minimum floor protects the newest runs.
	sort.Slice(runs, func(i, j int) bool { return runs[i].modified.Before(runs[j].modified) })

	now := time.Now()
	archiveThreshold := now.AddDate(0, 0, -m.config.ArchiveAfterDays)
	deleteThreshold := now.AddDate(0, 0, -m.config.RetentionDays)

	removed := 0
	for _, run := range runs {
		if len(runs)-removed <= m.config.KeepMinRuns {
			result.Kept = append(result.Kept, run.id)
			continue
		}

		runDir := filepath.Join(artifactsDir, run.id)
		switch {
		case run.modified.Before(deleteThreshold):
			if !dryRun {
				if err := os.RemoveAll(runDir); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", run.id, err))
					continue
				}
			}
			result.Deleted = append(result.Deleted, run.id)
			result.SpaceSaved += run.size
			removed++

		case run.modified.Before(archiveThreshold):
			if !dryRun {
				if err := m.archiveRun(run.id); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("archive %s: %v", run.id, err))
					continue
				}
			}
			result.Archived = append(result.Archived, run.id)
			result.SpaceSaved += run.size / 2 // compressed, rough estimate
			removed++

		default:
			result.Kept = append(result.Kept, run.id)
		}
	}

	return result, nil
}

// archiveRun compresses one run directory into archive/<runID>.tar.gz and
// removes the original.
func (m *LifecycleManager) archiveRun(runID string) error {
	runDir := filepath.Join(m.baseDir, "artifacts", runID)
	archiveDir := filepath.Join(m.baseDir, "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return err
	}
	archivePath := filepath.Join(archiveDir, runID+".tar.gz")

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(runDir, path)
		header.Name = filepath.Join(runID, rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})

	tw.Close()
	gz.Close()
	f.Close()

	if walkErr != nil {
		os.Remove(archivePath)
		return walkErr
	}
	return os.RemoveAll(runDir)
}

// RestoreArchive extracts an archived run back into the artifacts tree.
func (m *LifecycleManager) RestoreArchive(runID string) error {
	archivePath := filepath.Join(m.baseDir, "archive", runID+".tar.gz")
	if _, err := os.Stat(archivePath); err != nil {
		return fmt.Errorf("archive not found: %s", runID)
	}
	runDir := filepath.Join(m.baseDir, "artifacts", runID)
	if _, err := os.Stat(runDir); err == nil {
		return fmt.Errorf("run already exists: %s", runID)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	dest := filepath.Join(m.baseDir, "artifacts")
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Entries were written relative to the artifacts root; refuse
		// anything that would escape it.
		target := filepath.Join(dest, header.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

func dirSize(dir string) int64 {
	var size int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
