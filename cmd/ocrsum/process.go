package main

import (
	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/config"
	"github.com/crosscore/cloud-ocr-summarizer/internal/processor"
	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
	"github.com/crosscore/cloud-ocr-summarizer/internal/results"
	"github.com/crosscore/cloud-ocr-summarizer/internal/summarize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/vision"
)

var (
	processSummarize     bool
	processMode          string
	processMinConfidence float64
	processKeepRemote    bool
)

// processReport is the structured output of the process command.
type processReport struct {
	ProcessID         string  `json:"process_id" yaml:"process_id"`
	File              string  `json:"file" yaml:"file"`
	TotalPages        int     `json:"total_pages" yaml:"total_pages"`
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
	PrimaryLanguage   string  `json:"primary_language" yaml:"primary_language"`
	TotalTokens       int     `json:"total_tokens" yaml:"total_tokens"`
	RecordPath        string  `json:"record_path" yaml:"record_path"`
	StatsPath         string  `json:"stats_path" yaml:"stats_path"`
	SummaryPath       string  `json:"summary_path,omitempty" yaml:"summary_path,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Run a document through the full OCR pipeline",
	Long: `Process validates a document, stages it in object storage, runs Cloud
Vision document text detection, then normalizes the annotation tree and
writes the record, statistics and audit trail to the output directory.

Examples:
  ocrsum process report.pdf
  ocrsum process scan.png --mode detailed --min-confidence 0.5
  ocrsum process report.pdf --summarize`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mode") {
			cfg.Output.Mode = processMode
		}
		if cmd.Flags().Changed("min-confidence") {
			cfg.Output.MinConfidence = processMinConfidence
		}
		if cmd.Flags().Changed("summarize") {
			cfg.Summary.Enabled = processSummarize
		}
		if processKeepRemote {
			cfg.Security.DeleteAfterProcessing = false
		}

		normOpts, err := cfg.NormalizeOptions()
		if err != nil {
			return err
		}

		h, err := getHome()
		if err != nil {
			return err
		}

		store, err := newStore(cfg, h, logger)
		if err != nil {
			return err
		}

		engine := vision.NewClient(vision.Config{
			APIKey:        config.ResolveEnvVars(cfg.Vision.APIKey),
			BaseURL:       cfg.Vision.Endpoint,
			Timeout:       cfg.Vision.Timeout,
			PollInterval:  cfg.Vision.PollInterval,
			PollAttempts:  cfg.Vision.PollAttempts,
			CleanupOutput: cfg.Vision.CleanupOutput,
			Logger:        logger,
		}, store)

		writer, err := results.NewWriter(h.OutputPath(), logger)
		if err != nil {
			return err
		}

		var summarizer *summarize.Summarizer
		if cfg.Summary.Enabled {
			summarizer = newSummarizer(cfg, logger)
		}

		proc, err := processor.New(processor.Config{
			Validator: &processor.Validator{
				AllowedExtensions: cfg.Files.AllowedExtensions,
				MaxFileSize:       cfg.Files.MaxFileSize,
			},
			Store:      store,
			Engine:     engine,
			Writer:     writer,
			Summarizer: summarizer,
			Options: processor.Options{
				Normalize:             normOpts,
				StoragePrefix:         cfg.Storage.Prefix,
				BatchSize:             cfg.Vision.BatchSize,
				LanguageHints:         cfg.Vision.LanguageHints,
				DeleteAfterProcessing: cfg.Security.DeleteAfterProcessing,
				EnableAuditLogs:       cfg.Security.EnableAuditLogs,
				Summarize:             cfg.Summary.Enabled,
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}

		res, err := proc.Process(ctx, args[0])
		if err != nil {
			return err
		}

		return render.Output(processReport{
			ProcessID:         res.ProcessID,
			File:              args[0],
			TotalPages:        res.Record.Metadata.TotalPages,
			AverageConfidence: res.Record.Metadata.AverageConfidence,
			PrimaryLanguage:   res.Record.Metadata.PrimaryLanguage,
			TotalTokens:       res.Report.TotalTokens,
			RecordPath:        res.RecordPath,
			StatsPath:         res.StatsPath,
			SummaryPath:       res.SummaryPath,
		})
	},
}

func init() {
	processCmd.Flags().BoolVar(&processSummarize, "summarize", false, "Generate LLM summaries after normalization")
	processCmd.Flags().StringVar(&processMode, "mode", "", "Output mode: simple or detailed")
	processCmd.Flags().Float64Var(&processMinConfidence, "min-confidence", 0, "Minimum block confidence to keep")
	processCmd.Flags().BoolVar(&processKeepRemote, "keep-remote", false, "Keep staged objects after processing")

	rootCmd.AddCommand(processCmd)
}
