package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/crosscore/cloud-ocr-summarizer/internal/annotation"
	"github.com/crosscore/cloud-ocr-summarizer/internal/storage"
)

const (
	// DefaultBaseURL is the engine's REST endpoint.
	DefaultBaseURL = "https://vision.googleapis.com/v1"

	featureType      = "DOCUMENT_TEXT_DETECTION"
	defaultBatchSize = 1
)

var (
	// ErrOperationFailed is returned when the engine reports a failed
	// annotation operation.
	ErrOperationFailed = errors.New("annotation operation failed")

	// ErrNoOutput is returned when a completed operation produced no
	// result shards.
	ErrNoOutput = errors.New("no annotation output produced")
)

// Config holds configuration for the engine client.
type Config struct {
	APIKey  string
	BaseURL string

	// Timeout bounds each HTTP call, not the whole operation.
	Timeout time.Duration

	// PollInterval and PollAttempts bound how long a submitted
	// operation is awaited.
	PollInterval time.Duration
	PollAttempts uint

	// CleanupOutput deletes result shards after collection.
	CleanupOutput bool

	Logger *slog.Logger
}

// Client implements Engine over the REST API. Input is referenced by
// storage URI; output shards are collected through the same store the
// document was staged in.
type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	pollAttempts uint
	cleanup      bool
	store        storage.Store
	client       *http.Client
	logger       *slog.Logger
}

var _ Engine = (*Client)(nil)

// NewClient creates an engine client backed by the given store.
func NewClient(cfg Config, store storage.Store) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = 60
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		cleanup:      cfg.CleanupOutput,
		store:        store,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
	}
}

// Annotate submits the staged document, awaits the operation and
// assembles the annotation tree from the output shards.
func (c *Client) Annotate(ctx context.Context, req Request) (*annotation.Tree, error) {
	batch := req.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	body := asyncBatchRequest{Requests: []asyncFileRequest{{
		InputConfig: inputConfig{
			GCSSource: gcsSource{URI: req.SourceURI},
			MimeType:  req.MimeType,
		},
		Features: []feature{{Type: featureType}},
		OutputConfig: outputConfig{
			GCSDestination: gcsDestination{URI: c.store.URI(req.OutputPrefix)},
			BatchSize:      batch,
		},
	}}}
	if len(req.LanguageHints) > 0 {
		body.Requests[0].ImageContext = &imageContext{LanguageHints: req.LanguageHints}
	}

	var op operation
	if err := c.doRequest(ctx, http.MethodPost, "/files:asyncBatchAnnotate", body, &op); err != nil {
		return nil, fmt.Errorf("submit annotation job: %w", err)
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: no operation name returned", ErrOperationFailed)
	}
	c.logger.Info("annotation job submitted", "operation", op.Name, "source", req.SourceURI)

	if err := c.awaitOperation(ctx, op.Name); err != nil {
		return nil, err
	}
	return c.collect(ctx, req.OutputPrefix)
}

// awaitOperation polls the operation until it reports done. Engine
// errors stop polling immediately.
func (c *Client) awaitOperation(ctx context.Context, name string) error {
	return retry.Do(
		func() error {
			var op operation
			if err := c.doRequest(ctx, http.MethodGet, "/"+name, nil, &op); err != nil {
				return err
			}
			if op.Error != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: %s (code %d)",
					ErrOperationFailed, op.Error.Message, op.Error.Code))
			}
			if !op.Done {
				return fmt.Errorf("operation %s still running", name)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.pollAttempts),
		retry.Delay(c.pollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// collect merges the JSON shards under prefix into one tree, in key
// order.
func (c *Client) collect(ctx context.Context, prefix string) (*annotation.Tree, error) {
	objects, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list annotation output: %w", err)
	}

	shards := make([]storage.Object, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, ".json") {
			shards = append(shards, obj)
		}
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoOutput, prefix)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Key < shards[j].Key })

	merged := &annotation.Tree{Responses: make([]annotation.Response, 0)}
	for _, shard := range shards {
		rc, err := c.store.Download(ctx, shard.Key)
		if err != nil {
			return nil, fmt.Errorf("download shard %s: %w", shard.Key, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read shard %s: %w", shard.Key, err)
		}
		tree, err := annotation.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode shard %s: %w", shard.Key, err)
		}
		merged.Responses = append(merged.Responses, tree.Responses...)
	}

	if c.cleanup {
		for _, shard := range shards {
			if err := c.store.Delete(ctx, shard.Key); err != nil {
				c.logger.Warn("failed to delete output shard", "key", shard.Key, "error", err)
			}
		}
	}

	c.logger.Info("annotation output collected",
		"shards", len(shards), "responses", len(merged.Responses))
	return merged, nil
}

// doRequest makes one HTTP call to the engine API.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("engine error (status %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// Engine API wire types.

type asyncBatchRequest struct {
	Requests []asyncFileRequest `json:"requests"`
}

type asyncFileRequest struct {
	InputConfig  inputConfig   `json:"inputConfig"`
	Features     []feature     `json:"features"`
	OutputConfig outputConfig  `json:"outputConfig"`
	ImageContext *imageContext `json:"imageContext,omitempty"`
}

type inputConfig struct {
	GCSSource gcsSource `json:"gcsSource"`
	MimeType  string    `json:"mimeType"`
}

type gcsSource struct {
	URI string `json:"uri"`
}

type feature struct {
	Type string `json:"type"`
}

type outputConfig struct {
	GCSDestination gcsDestination `json:"gcsDestination"`
	BatchSize      int            `json:"batchSize"`
}

type gcsDestination struct {
	URI string `json:"uri"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints,omitempty"`
}

type operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *operationError `json:"error,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
