package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/scoring"
	"github.com/c360studio/semreport/signoff"
)

// Writer persists a generated document.
type Writer interface {
	Write(ctx context.Context, r *Result) (*Artifact, error)
}

// Artifact locates a persisted document.
type Artifact struct {
	MarkdownPath string `json:"markdown_path"`
	RecordPath   string `json:"record_path"`
}

// Record is the JSON sidecar written next to the markdown.
type Record struct {
	Metadata  *document.Metadata `json:"metadata"`
	Scoring   *scoring.Summary   `json:"scoring,omitempty"`
	SignOff   *signoff.Block     `json:"sign_off"`
	WrittenAt time.Time          `json:"written_at"`
}

// FileWriter writes <id>.md and <id>.json into a directory.
type FileWriter struct {
	dir   string
	clock func() time.Time
}

// NewFileWriter creates a writer for dir. The directory is created on
// first write.
func NewFileWriter(dir string) *FileWriter {
	return &FileWriter{dir: dir, clock: time.Now}
}

// Write persists the markdown text and its record. Existing files for the
// same document ID are replaced.
func (w *FileWriter) Write(ctx context.Context, r *Result) (*Artifact, error) {
	if r == nil || r.Metadata == nil {
		return nil, fmt.Errorf("write artifact: result has no metadata")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	record, err := json.MarshalIndent(Record{
		Metadata:  r.Metadata,
		Scoring:   r.Scoring,
		SignOff:   r.SignOff,
		WrittenAt: w.clock().UTC(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact := &Artifact{
		MarkdownPath: filepath.Join(w.dir, r.Metadata.ID+".md"),
		RecordPath:   filepath.Join(w.dir, r.Metadata.ID+".json"),
	}
	if err := os.WriteFile(artifact.MarkdownPath, []byte(r.Text), 0644); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}
	if err := os.WriteFile(artifact.RecordPath, append(record, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}
	return artifact, nil
}
