// Package results persists pipeline artifacts to the output directory:
// structured OCR records, token statistics, summaries, and the audit
// trail.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/stats"
	"github.com/crosscore/cloud-ocr-summarizer/internal/summarize"
)

const (
	// processIDLayout yields identifiers like 20250109_051748 that sort
	// chronologically inside the output directory.
	processIDLayout = "20060102_150405"

	auditLogName = "audit_log.jsonl"
)

// ErrSerialization is returned when an artifact cannot be encoded.
var ErrSerialization = errors.New("serialize result")

// AuditEntry is one line of the append-only audit log.
type AuditEntry struct {
	Timestamp         string  `json:"timestamp"`
	FileName          string  `json:"file_name"`
	ProcessID         string  `json:"process_id"`
	TotalPages        int     `json:"total_pages"`
	AverageConfidence float64 `json:"average_confidence"`
	PrimaryLanguage   string  `json:"primary_language"`
	Status            string  `json:"status"`
	Error             string  `json:"error,omitempty"`
}

// Writer persists run artifacts under a single output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter creates the output directory if needed and returns a Writer
// rooted there.
func NewWriter(dir string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the output directory the writer was rooted at.
func (w *Writer) Dir() string {
	return w.dir
}

// ProcessID returns a timestamp identifier naming the artifacts of one
// pipeline run.
func (w *Writer) ProcessID() string {
	return w.now().Format(processIDLayout)
}

// WriteRecord saves a normalized record as vision_results_{id}.json and
// returns the written path.
func (w *Writer) WriteRecord(processID string, rec *normalize.Record) (string, error) {
	return w.writeJSON(fmt.Sprintf("vision_results_%s.json", processID), rec)
}

// WriteStats saves a statistics report as structure_stats_{id}.json.
func (w *Writer) WriteStats(processID string, report *stats.Report) (string, error) {
	return w.writeJSON(fmt.Sprintf("structure_stats_%s.json", processID), report)
}

// WriteSummary saves a document summary as summary_{id}.json.
func (w *Writer) WriteSummary(processID string, summary *summarize.Summary) (string, error) {
	return w.writeJSON(fmt.Sprintf("summary_%s.json", processID), summary)
}

func (w *Writer) writeJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	w.logger.Info("saved artifact", "path", path)
	return path, nil
}

// AppendAudit appends one entry to audit_log.jsonl. The timestamp is
// filled in when the caller leaves it empty.
func (w *Writer) AppendAudit(entry AuditEntry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = w.now().Format(time.RFC3339)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	path := filepath.Join(w.dir, auditLogName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append audit log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audit log: %w", err)
	}

	w.logger.Debug("appended audit entry",
		"file", entry.FileName,
		"process_id", entry.ProcessID,
		"status", entry.Status)
	return nil
}
