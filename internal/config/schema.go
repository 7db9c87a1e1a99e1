package config

import (
	"time"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
)

// Config holds ocrsum configuration.
// Loaded from ./config.yaml or ~/.ocrsum/config.yaml.
type Config struct {
	Vision   VisionConfig   `mapstructure:"vision" yaml:"vision"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Files    FilesConfig    `mapstructure:"files" yaml:"files"`
	Summary  SummaryConfig  `mapstructure:"summary" yaml:"summary"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

// VisionConfig configures the OCR engine client.
type VisionConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	BatchSize     int           `mapstructure:"batch_size" yaml:"batch_size"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollAttempts  uint          `mapstructure:"poll_attempts" yaml:"poll_attempts"`
	LanguageHints []string      `mapstructure:"language_hints" yaml:"language_hints"`
	CleanupOutput bool          `mapstructure:"cleanup_output" yaml:"cleanup_output"`
}

// StorageConfig configures the object store documents are staged in.
type StorageConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`     // "s3" or "local"
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`     // Host:port for s3
	AccessKey string `mapstructure:"access_key" yaml:"access_key"` // Supports ${ENV_VAR} syntax
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"` // Supports ${ENV_VAR} syntax
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"` // Key prefix for staged documents
	Region    string `mapstructure:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	URIScheme string `mapstructure:"uri_scheme" yaml:"uri_scheme"` // Engine-facing URI scheme (gs, s3)
	LocalRoot string `mapstructure:"local_root" yaml:"local_root"` // Root directory for provider "local"
}

// OutputConfig controls normalization of the annotation tree.
type OutputConfig struct {
	Mode                 string  `mapstructure:"mode" yaml:"mode"` // "simple" or "detailed"
	MinConfidence        float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	IncludeConfidence    bool    `mapstructure:"include_confidence" yaml:"include_confidence"`
	IncludeBoundingBoxes bool    `mapstructure:"include_bounding_boxes" yaml:"include_bounding_boxes"`
	IncludeWordLevel     bool    `mapstructure:"include_word_level" yaml:"include_word_level"`
	FallbackLanguage     string  `mapstructure:"fallback_language" yaml:"fallback_language"`
}

// FilesConfig limits which local documents are accepted.
type FilesConfig struct {
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
	MaxFileSize       int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// SummaryConfig configures the optional summarization step.
type SummaryConfig struct {
	Enabled         bool                       `mapstructure:"enabled" yaml:"enabled"`
	Model           string                     `mapstructure:"model" yaml:"model"`
	APIKey          string                     `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	MaxOutputTokens int64                      `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	MaxCharsPerPage int                        `mapstructure:"max_chars_per_page" yaml:"max_chars_per_page"`
	Languages       map[string]SummaryLanguage `mapstructure:"languages" yaml:"languages"`
}

// SummaryLanguage holds the prompt templates for one document language.
// Templates use {text} as the placeholder for page text.
type SummaryLanguage struct {
	PagePrompt    string `mapstructure:"page_prompt" yaml:"page_prompt"`
	OverallPrompt string `mapstructure:"overall_prompt" yaml:"overall_prompt"`
}

// SecurityConfig controls artifact retention behavior.
type SecurityConfig struct {
	EnableAuditLogs       bool `mapstructure:"enable_audit_logs" yaml:"enable_audit_logs"`
	DeleteAfterProcessing bool `mapstructure:"delete_after_processing" yaml:"delete_after_processing"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Vision: VisionConfig{
			Endpoint:      "https://vision.googleapis.com/v1",
			APIKey:        "${VISION_API_KEY}",
			BatchSize:     1,
			Timeout:       30 * time.Second,
			PollInterval:  5 * time.Second,
			PollAttempts:  60,
			LanguageHints: []string{"ja", "en"},
			CleanupOutput: true,
		},
		Storage: StorageConfig{
			Provider:  "s3",
			Endpoint:  "storage.googleapis.com",
			AccessKey: "${STORAGE_ACCESS_KEY}",
			SecretKey: "${STORAGE_SECRET_KEY}",
			Bucket:    "",
			Prefix:    "documents",
			Region:    "asia-northeast1",
			UseSSL:    true,
			URIScheme: "gs",
		},
		Output: OutputConfig{
			Mode:                 "simple",
			MinConfidence:        0.7,
			IncludeConfidence:    true,
			IncludeBoundingBoxes: true,
			IncludeWordLevel:     false,
			FallbackLanguage:     "en",
		},
		Files: FilesConfig{
			AllowedExtensions: []string{".pdf", ".png", ".jpg", ".jpeg"},
			MaxFileSize:       10 * 1024 * 1024,
		},
		Summary: SummaryConfig{
			Enabled:         false,
			Model:           "gpt-4o-mini",
			APIKey:          "${OPENAI_API_KEY}",
			MaxOutputTokens: 1024,
			MaxCharsPerPage: 8000,
			Languages: map[string]SummaryLanguage{
				"en": {
					PagePrompt:    "Summarize the following document page in a few concise sentences. Keep numbers, dates, and names exactly as written.\n\n{text}",
					OverallPrompt: "The following are per-page summaries of a single document. Merge them into one coherent summary of the whole document.\n\n{text}",
				},
				"ja": {
					PagePrompt:    "次の文書ページを簡潔に要約してください。数値、日付、固有名詞は原文のまま正確に保持してください。\n\n{text}",
					OverallPrompt: "次は一つの文書のページごとの要約です。全体を一つのまとまった要約に統合してください。\n\n{text}",
				},
			},
		},
		Security: SecurityConfig{
			EnableAuditLogs:       true,
			DeleteAfterProcessing: true,
		},
	}
}

// NormalizeOptions converts the output section into normalizer options.
// Fails when the configured mode is not a known value.
func (c *Config) NormalizeOptions() (normalize.Options, error) {
	mode, err := normalize.ParseMode(c.Output.Mode)
	if err != nil {
		return normalize.Options{}, err
	}
	return normalize.Options{
		Mode:                 mode,
		MinConfidence:        c.Output.MinConfidence,
		IncludeConfidence:    c.Output.IncludeConfidence,
		IncludeBoundingBoxes: c.Output.IncludeBoundingBoxes,
		IncludeWordLevel:     c.Output.IncludeWordLevel,
		FallbackLanguage:     c.Output.FallbackLanguage,
	}, nil
}
