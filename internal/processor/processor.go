// Package processor orchestrates the document pipeline: validate the
// input, stage it in object storage, run OCR, normalize the annotation
// tree, compute statistics, and persist the artifacts.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/results"
	"github.com/crosscore/cloud-ocr-summarizer/internal/stats"
	"github.com/crosscore/cloud-ocr-summarizer/internal/storage"
	"github.com/crosscore/cloud-ocr-summarizer/internal/summarize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/vision"
)

// Options controls pipeline behavior for one Processor.
type Options struct {
	Normalize             normalize.Options
	StoragePrefix         string   // Object key prefix, e.g. "documents"
	BatchSize             int      // Pages per OCR output shard
	LanguageHints         []string // Passed to the OCR engine
	DeleteAfterProcessing bool     // Remove staged objects when done
	EnableAuditLogs       bool     // Append to audit_log.jsonl
	Summarize             bool     // Run the summarizer after normalization
}

// Config wires the pipeline's collaborators.
type Config struct {
	Validator  *Validator
	Store      storage.Store
	Engine     vision.Engine
	Writer     *results.Writer
	Summarizer *summarize.Summarizer // Required only when Options.Summarize
	Options    Options
	Logger     *slog.Logger
}

// Result reports one completed pipeline run.
type Result struct {
	ProcessID   string
	RunID       string
	Record      *normalize.Record
	Report      *stats.Report
	Summary     *summarize.Summary
	RecordPath  string
	StatsPath   string
	SummaryPath string
}

// Processor runs documents through the OCR pipeline.
type Processor struct {
	validator  *Validator
	store      storage.Store
	engine     vision.Engine
	writer     *results.Writer
	summarizer *summarize.Summarizer
	opts       Options
	logger     *slog.Logger
}

// New validates the wiring and returns a Processor.
func New(cfg Config) (*Processor, error) {
	if cfg.Store == nil {
		return nil, errors.New("storage is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("ocr engine is required")
	}
	if cfg.Writer == nil {
		return nil, errors.New("results writer is required")
	}
	if cfg.Options.Summarize && cfg.Summarizer == nil {
		return nil, errors.New("summarizer is required when summarization is enabled")
	}
	if cfg.Validator == nil {
		cfg.Validator = &Validator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Processor{
		validator:  cfg.Validator,
		store:      cfg.Store,
		engine:     cfg.Engine,
		writer:     cfg.Writer,
		summarizer: cfg.Summarizer,
		opts:       cfg.Options,
		logger:     cfg.Logger,
	}, nil
}

// Process runs one document through the full pipeline and returns the
// produced artifacts. Staged objects are removed afterwards when
// DeleteAfterProcessing is set, on failures included.
func (p *Processor) Process(ctx context.Context, inputPath string) (*Result, error) {
	processID := p.writer.ProcessID()
	fileName := filepath.Base(inputPath)

	fileInfo, err := p.validator.Validate(inputPath)
	if err != nil {
		return nil, p.fail(fileName, processID, fmt.Errorf("validate input: %w", err))
	}

	runID := uuid.New().String()
	log := p.logger.With("file", fileInfo.Name, "process_id", processID, "run_id", runID)
	log.Info("processing document", "size", fileInfo.Size, "type", fileInfo.MimeType)

	key := path.Join(p.opts.StoragePrefix, "temp", runID, fileInfo.Name)
	outputPrefix := path.Join(p.opts.StoragePrefix, "temp", runID, "output") + "/"

	f, err := os.Open(fileInfo.Path)
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("open input: %w", err))
	}
	obj, err := p.store.Upload(ctx, key, f, fileInfo.Size, fileInfo.MimeType)
	f.Close()
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("stage input: %w", err))
	}
	log.Debug("staged input", "key", obj.Key, "uri", p.store.URI(obj.Key))

	if p.opts.DeleteAfterProcessing {
		defer func() {
			if err := p.store.Delete(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("failed to remove staged input", "key", key, "error", err)
			}
		}()
	}

	tree, err := p.engine.Annotate(ctx, vision.Request{
		SourceURI:     p.store.URI(obj.Key),
		MimeType:      fileInfo.MimeType,
		OutputPrefix:  outputPrefix,
		BatchSize:     p.opts.BatchSize,
		LanguageHints: p.opts.LanguageHints,
	})
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("annotate document: %w", err))
	}

	rec, err := normalize.Normalize(tree, p.opts.Normalize)
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("normalize annotation: %w", err))
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("%w: %v", results.ErrSerialization, err))
	}
	report, err := stats.AnalyzeJSON(data)
	if err != nil {
		return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("analyze record: %w", err))
	}

	res := &Result{
		ProcessID: processID,
		RunID:     runID,
		Record:    rec,
		Report:    report,
	}

	if res.RecordPath, err = p.writer.WriteRecord(processID, rec); err != nil {
		return nil, p.fail(fileInfo.Name, processID, err)
	}
	if res.StatsPath, err = p.writer.WriteStats(processID, report); err != nil {
		return nil, p.fail(fileInfo.Name, processID, err)
	}

	if p.opts.Summarize {
		summary, err := p.summarizer.Summarize(ctx, rec)
		switch {
		case errors.Is(err, summarize.ErrNothingToSummarize):
			log.Warn("skipping summary", "reason", err)
		case err != nil:
			return nil, p.fail(fileInfo.Name, processID, fmt.Errorf("summarize record: %w", err))
		default:
			res.Summary = summary
			if res.SummaryPath, err = p.writer.WriteSummary(processID, summary); err != nil {
				return nil, p.fail(fileInfo.Name, processID, err)
			}
		}
	}

	if p.opts.EnableAuditLogs {
		if err := p.writer.AppendAudit(results.AuditEntry{
			FileName:          fileInfo.Name,
			ProcessID:         processID,
			TotalPages:        rec.Metadata.TotalPages,
			AverageConfidence: rec.Metadata.AverageConfidence,
			PrimaryLanguage:   rec.Metadata.PrimaryLanguage,
			Status:            "completed",
		}); err != nil {
			return nil, err
		}
	}

	log.Info("processing complete",
		"pages", rec.Metadata.TotalPages,
		"tokens", report.TotalTokens,
		"record", res.RecordPath)
	return res, nil
}

// fail records a failed run in the audit log and passes the error back.
func (p *Processor) fail(fileName, processID string, err error) error {
	if p.opts.EnableAuditLogs {
		if aerr := p.writer.AppendAudit(results.AuditEntry{
			FileName:  fileName,
			ProcessID: processID,
			Status:    "failed",
			Error:     err.Error(),
		}); aerr != nil {
			p.logger.Warn("failed to append audit entry", "error", aerr)
		}
	}
	return err
}
