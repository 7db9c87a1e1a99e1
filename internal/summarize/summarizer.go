// Package summarize turns normalized OCR records into per-page and
// whole-document summaries using the OpenAI chat completions API.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/crosscore/cloud-ocr-summarizer/internal/normalize"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	defaultMaxOutputTokens = 1024
	defaultMaxCharsPerPage = 12000
	defaultTimeout         = 120 * time.Second
	fallbackLanguage       = "en"

	// textPlaceholder marks where page text is spliced into a prompt
	// template. Templates without it get the text appended instead.
	textPlaceholder = "{text}"
)

// ErrNothingToSummarize is returned when a record carries no page text.
var ErrNothingToSummarize = errors.New("nothing to summarize")

// LanguageSettings holds the prompt templates for one document language.
type LanguageSettings struct {
	PagePrompt    string
	OverallPrompt string
}

// DefaultLanguages returns the built-in prompt templates, keyed by
// BCP-47 language code.
func DefaultLanguages() map[string]LanguageSettings {
	return map[string]LanguageSettings{
		"en": {
			PagePrompt:    "Summarize the following document page in a few concise sentences. Keep numbers, dates, and names exactly as written.\n\n{text}",
			OverallPrompt: "The following are per-page summaries of a single document. Merge them into one coherent summary of the whole document.\n\n{text}",
		},
		"ja": {
			PagePrompt:    "次の文書ページを簡潔に要約してください。数値、日付、固有名詞は原文のまま正確に保持してください。\n\n{text}",
			OverallPrompt: "次は一つの文書のページごとの要約です。全体を一つのまとまった要約に統合してください。\n\n{text}",
		},
	}
}

// Config holds configuration for the summarizer.
type Config struct {
	APIKey          string
	Model           string                      // "gpt-4o-mini" (default)
	MaxOutputTokens int64                       // Cap per completion
	MaxCharsPerPage int                         // Page text beyond this is truncated
	MaxRetries      int                         // Retry attempts for SDK transport
	Timeout         time.Duration               // HTTP timeout
	Languages       map[string]LanguageSettings // Prompt templates by language code
	BaseURL         string                      // Optional (tests)
	HTTPClient      *http.Client                // Optional (tests)
	Logger          *slog.Logger
}

// PageSummary is the summary of one page.
type PageSummary struct {
	PageNumber int    `json:"page_number"`
	Summary    string `json:"summary"`
}

// Summary is the full summarization result for one record.
type Summary struct {
	PageSummaries  []PageSummary `json:"page_summaries"`
	OverallSummary string        `json:"overall_summary,omitempty"`
	Model          string        `json:"model"`
	Language       string        `json:"language"`
}

// Summarizer generates summaries via the OpenAI SDK.
type Summarizer struct {
	model           string
	maxOutputTokens int64
	maxCharsPerPage int
	languages       map[string]LanguageSettings
	client          openai.Client
	logger          *slog.Logger
}

// New creates a Summarizer from cfg, filling in defaults.
func New(cfg Config) *Summarizer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.MaxCharsPerPage <= 0 {
		cfg.MaxCharsPerPage = defaultMaxCharsPerPage
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Languages == nil {
		cfg.Languages = DefaultLanguages()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Summarizer{
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		maxCharsPerPage: cfg.MaxCharsPerPage,
		languages:       cfg.Languages,
		client:          openai.NewClient(opts...),
		logger:          cfg.Logger,
	}
}

// Summarize produces one summary per non-empty page and, when more than
// one page was summarized, a combined summary of the whole document.
// Prompts are chosen by the record's primary language, falling back to
// English for languages without templates.
func (s *Summarizer) Summarize(ctx context.Context, rec *normalize.Record) (*Summary, error) {
	if rec == nil || len(rec.Pages) == 0 {
		return nil, ErrNothingToSummarize
	}

	settings, lang := s.settingsFor(rec.Metadata.PrimaryLanguage)
	s.logger.Debug("summarizing record",
		"pages", len(rec.Pages),
		"language", lang,
		"model", s.model)

	var pages []PageSummary
	for _, page := range rec.Pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			s.logger.Debug("skipping page without text", "page", page.PageNumber)
			continue
		}
		if len(text) > s.maxCharsPerPage {
			s.logger.Warn("truncating page text",
				"page", page.PageNumber,
				"chars", len(text),
				"limit", s.maxCharsPerPage)
			text = text[:s.maxCharsPerPage]
		}

		out, err := s.complete(ctx, renderPrompt(settings.PagePrompt, text))
		if err != nil {
			return nil, fmt.Errorf("summarize page %d: %w", page.PageNumber, err)
		}
		pages = append(pages, PageSummary{PageNumber: page.PageNumber, Summary: out})
	}

	if len(pages) == 0 {
		return nil, ErrNothingToSummarize
	}

	summary := &Summary{
		PageSummaries: pages,
		Model:         s.model,
		Language:      lang,
	}

	if len(pages) > 1 {
		parts := make([]string, 0, len(pages))
		for _, p := range pages {
			parts = append(parts, p.Summary)
		}
		out, err := s.complete(ctx, renderPrompt(settings.OverallPrompt, strings.Join(parts, "\n")))
		if err != nil {
			return nil, fmt.Errorf("summarize document: %w", err)
		}
		summary.OverallSummary = out
	}

	return summary, nil
}

// settingsFor resolves the prompt templates for a language code. Codes
// without templates fall back to English.
func (s *Summarizer) settingsFor(code string) (LanguageSettings, string) {
	if st, ok := s.languages[code]; ok {
		return st, code
	}
	if st, ok := s.languages[fallbackLanguage]; ok {
		return st, fallbackLanguage
	}
	return DefaultLanguages()[fallbackLanguage], fallbackLanguage
}

func renderPrompt(template, text string) string {
	if strings.Contains(template, textPlaceholder) {
		return strings.ReplaceAll(template, textPlaceholder, text)
	}
	return template + "\n\n" + text
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(s.maxOutputTokens),
	})
	if err != nil {
		return "", mapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func mapAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("openai error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai error (status %d)", apiErr.StatusCode)
	}
	return err
}
