package context

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BriefLimits bounds how much document content goes into a project brief.
type BriefLimits struct {
	MaxFileSize  int64 // Max size per document in bytes
	MaxTotalSize int64 // Max total size in bytes
	MaxFileCount int   // Max number of documents
}

// DefaultBriefLimits returns sensible default limits.
func DefaultBriefLimits() BriefLimits {
	return BriefLimits{
		MaxFileSize:  100 * 1024, // 100KB per document
		MaxTotalSize: 500 * 1024, // 500KB total
		MaxFileCount: 20,         // 20 documents max
	}
}

// BriefBuilder assembles a markdown project brief from documents on
// disk. The result feeds the pipeline as Inputs.MarkdownContent.
type BriefBuilder struct {
	workDir string
	limits  BriefLimits
	docs    []briefDoc
}

type briefDoc struct {
	path    string
	content []byte
}

// NewBriefBuilder creates a brief builder rooted at workDir.
func NewBriefBuilder(workDir string) *BriefBuilder {
	return &BriefBuilder{
		workDir: workDir,
		limits:  DefaultBriefLimits(),
	}
}

// WithLimits sets custom limits.
func (b *BriefBuilder) WithLimits(limits BriefLimits) *BriefBuilder {
	b.limits = limits
	return b
}

// AddFile adds a single document to the brief.
// Binary files are rejected.
func (b *BriefBuilder) AddFile(path string) error {
	fullPath := filepath.Join(b.workDir, path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if isBinary(content) {
		return fmt.Errorf("%s: binary files cannot be part of a brief", path)
	}

	b.docs = append(b.docs, briefDoc{path: path, content: content})
	return nil
}

// AddGlob adds documents matching a glob pattern, skipping anything
// unreadable or binary.
func (b *BriefBuilder) AddGlob(pattern string) error {
	matches, err := filepath.Glob(filepath.Join(b.workDir, pattern))
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}

	for _, match := range matches {
		relPath, err := filepath.Rel(b.workDir, match)
		if err != nil {
			continue
		}
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if err := b.AddFile(relPath); err != nil {
			slog.Debug("skipping document",
				slog.String("path", relPath),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// AddContent adds pre-loaded content under a virtual path.
func (b *BriefBuilder) AddContent(path string, content []byte) {
	b.docs = append(b.docs, briefDoc{path: path, content: content})
}

// Build renders the brief as markdown, one section per document.
func (b *BriefBuilder) Build() (string, error) {
	if len(b.docs) > b.limits.MaxFileCount {
		return "", fmt.Errorf("%w: %d documents > max %d",
			ErrBriefTooLarge, len(b.docs), b.limits.MaxFileCount)
	}

	var buf bytes.Buffer
	var totalSize int64

	for _, d := range b.docs {
		content := d.content

		if int64(len(content)) > b.limits.MaxFileSize {
			content = content[:b.limits.MaxFileSize]
			content = append(content, []byte("\n\n[... truncated ...]")...)
		}

		totalSize += int64(len(content))
		if totalSize > b.limits.MaxTotalSize {
			return "", fmt.Errorf("%w: total size %d > max %d",
				ErrBriefTooLarge, totalSize, b.limits.MaxTotalSize)
		}

		fmt.Fprintf(&buf, "## %s\n\n", d.path)
		buf.Write(content)
		if !bytes.HasSuffix(content, []byte("\n")) {
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}

	return strings.TrimRight(buf.String(), "\n"), nil
}

// DocCount returns the number of documents added.
func (b *BriefBuilder) DocCount() int {
	return len(b.docs)
}

// TotalSize returns the total size of all documents.
func (b *BriefBuilder) TotalSize() int64 {
	var total int64
	for _, d := range b.docs {
		total += int64(len(d.content))
	}
	return total
}

// Clear removes all documents from the builder.
func (b *BriefBuilder) Clear() {
	b.docs = nil
}

// isBinary detects binary content by checking for null bytes.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return bytes.Contains(sample, []byte{0})
}
