package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
	"github.com/crosscore/cloud-ocr-summarizer/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file.json>",
	Short: "Compute token and structure statistics for a JSON file",
	Long: `Stats counts text tokens and structural elements in any JSON document.
It works on raw annotation responses and normalized records alike.

Examples:
  ocrsum stats vision_results_20240101_120000.json
  ocrsum stats response.json -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		report, err := stats.AnalyzeJSON(data)
		if err != nil {
			return err
		}

		return render.Output(report)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
