package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/crosscore/cloud-ocr-summarizer/internal/config"
	"github.com/crosscore/cloud-ocr-summarizer/internal/home"
	"github.com/crosscore/cloud-ocr-summarizer/internal/render"
	"github.com/crosscore/cloud-ocr-summarizer/internal/storage"
	"github.com/crosscore/cloud-ocr-summarizer/internal/summarize"
	"github.com/crosscore/cloud-ocr-summarizer/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ocrsum",
	Short: "Document OCR pipeline with normalized records and statistics",
	Long: `ocrsum runs documents through Cloud Vision document text detection and
turns the raw annotation tree into a stable, analyzable record.

The pipeline includes:
  - Input validation (type allow-list, size ceiling, PDF page count)
  - Staging in S3-compatible object storage
  - Asynchronous batch annotation with polling
  - Normalization into simple or detailed records
  - Token and structure statistics over the results
  - Optional LLM-generated page and document summaries`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ocrsum/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "ocrsum home directory (default: ~/.ocrsum)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		render.SetFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// loadConfig loads the effective configuration, preferring --config and
// falling back to the home directory's config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		h, err := home.New(homeDir)
		if err != nil {
			return nil, err
		}
		if h.ConfigExists() {
			path = h.ConfigPath()
		}
	}

	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	return mgr.Get(), nil
}

// newLogger returns the logger handed to pipeline components. Logs go
// to stderr so structured output on stdout stays parseable.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// newStore builds the object store selected by storage.provider.
func newStore(cfg *config.Config, h *home.Dir, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Provider {
	case "local":
		root := cfg.Storage.LocalRoot
		if root == "" {
			root = filepath.Join(h.Path(), "storage")
		}
		return storage.NewLocalStore(root, logger)
	case "s3", "":
		return storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: config.ResolveEnvVars(cfg.Storage.AccessKey),
			SecretKey: config.ResolveEnvVars(cfg.Storage.SecretKey),
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			URIScheme: cfg.Storage.URIScheme,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

// newSummarizer builds a summarizer from the summary config section.
func newSummarizer(cfg *config.Config, logger *slog.Logger) *summarize.Summarizer {
	var languages map[string]summarize.LanguageSettings
	if len(cfg.Summary.Languages) > 0 {
		languages = make(map[string]summarize.LanguageSettings, len(cfg.Summary.Languages))
		for code, l := range cfg.Summary.Languages {
			languages[code] = summarize.LanguageSettings{
				PagePrompt:    l.PagePrompt,
				OverallPrompt: l.OverallPrompt,
			}
		}
	}

	return summarize.New(summarize.Config{
		APIKey:          config.ResolveEnvVars(cfg.Summary.APIKey),
		Model:           cfg.Summary.Model,
		MaxOutputTokens: cfg.Summary.MaxOutputTokens,
		MaxCharsPerPage: cfg.Summary.MaxCharsPerPage,
		Languages:       languages,
		Logger:          logger,
	})
}
