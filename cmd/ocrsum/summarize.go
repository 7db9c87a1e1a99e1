package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
	"github.com/crosscore/cloud-ocr-summarizer/internal/results"
)

var summarizeSave bool

var summarizeCmd = &cobra.Command{
	Use:   "summarize <record.json>",
	Short: "Summarize a previously normalized record",
	Long: `Summarize generates per-page summaries for a normalized record using
the configured LLM, plus an overall summary for multi-page documents.
Prompts follow the record's primary language when a template for it is
configured; otherwise the English template is used.

Requires summary.api_key (or the environment variable it references).

Examples:
  ocrsum summarize vision_results_20240101_120000.json
  ocrsum summarize record.json --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		var rec normalize.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}

		summary, err := newSummarizer(cfg, logger).Summarize(ctx, &rec)
		if err != nil {
			return err
		}

		if summarizeSave {
			h, err := getHome()
			if err != nil {
				return err
			}
			writer, err := results.NewWriter(h.OutputPath(), logger)
			if err != nil {
				return err
			}
			path, err := writer.WriteSummary(writer.ProcessID(), summary)
			if err != nil {
				return err
			}
			return render.Output(struct {
				SummaryPath string `json:"summary_path" yaml:"summary_path"`
			}{SummaryPath: path})
		}

		return render.Output(summary)
	},
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeSave, "save", false, "Write the summary through the results writer instead of printing it")

	rootCmd.AddCommand(summarizeCmd)
}
