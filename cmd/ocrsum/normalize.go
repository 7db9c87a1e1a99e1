package main

import (
	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/annotation"
	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
	"github.com/crosscore/cloud-ocr-summarizer/internal/results"
)

var (
	normalizeMode          string
	normalizeMinConfidence float64
	normalizeSave          bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <raw.json>",
	Short: "Normalize a raw annotation file into a structured record",
	Long: `Normalize reads a Cloud Vision annotation response from a local JSON
file and converts it into the stable record format without calling any
external service.

Examples:
  ocrsum normalize response.json
  ocrsum normalize response.json --mode detailed --min-confidence 0.5
  ocrsum normalize response.json --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mode") {
			cfg.Output.Mode = normalizeMode
		}
		if cmd.Flags().Changed("min-confidence") {
			cfg.Output.MinConfidence = normalizeMinConfidence
		}

		opts, err := cfg.NormalizeOptions()
		if err != nil {
			return err
		}

		tree, err := annotation.DecodeFile(args[0])
		if err != nil {
			return err
		}

		rec, err := normalize.Normalize(tree, opts)
		if err != nil {
			return err
		}

		if normalizeSave {
			h, err := getHome()
			if err != nil {
				return err
			}
			writer, err := results.NewWriter(h.OutputPath(), newLogger())
			if err != nil {
				return err
			}
			path, err := writer.WriteRecord(writer.ProcessID(), rec)
			if err != nil {
				return err
			}
			return render.Output(struct {
				RecordPath string `json:"record_path" yaml:"record_path"`
			}{RecordPath: path})
		}

		return render.Output(rec)
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&normalizeMode, "mode", "", "Output mode: simple or detailed")
	normalizeCmd.Flags().Float64Var(&normalizeMinConfidence, "min-confidence", 0, "Minimum block confidence to keep")
	normalizeCmd.Flags().BoolVar(&normalizeSave, "save", false, "Write the record through the results writer instead of printing it")

	rootCmd.AddCommand(normalizeCmd)
}
