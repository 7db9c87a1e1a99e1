package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crosscore/cloud-ocr-summarizer/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T, keys map[string]string) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir(), quietLogger())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	for key, doc := range keys {
		if _, err := store.Upload(context.Background(), key, strings.NewReader(doc), -1, "application/json"); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	return store
}

func shardDoc(text string) string {
	return `{"responses":[{"fullTextAnnotation":{"text":"` + text + `","pages":[{"confidence":0.9}]}}]}`
}

func TestClientAnnotate(t *testing.T) {
	t.Run("submit poll collect", func(t *testing.T) {
		var polls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("key") != "test-key" {
				t.Errorf("missing api key, got query %q", r.URL.RawQuery)
			}

			switch {
			case r.Method == "POST" && r.URL.Path == "/files:asyncBatchAnnotate":
				var req asyncBatchRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if len(req.Requests) != 1 {
					t.Fatalf("expected 1 request, got %d", len(req.Requests))
				}
				fr := req.Requests[0]
				if fr.InputConfig.MimeType != "application/pdf" {
					t.Errorf("mimeType = %q", fr.InputConfig.MimeType)
				}
				if len(fr.Features) != 1 || fr.Features[0].Type != "DOCUMENT_TEXT_DETECTION" {
					t.Errorf("unexpected features: %+v", fr.Features)
				}
				if fr.OutputConfig.BatchSize != 1 {
					t.Errorf("batchSize = %d, want 1", fr.OutputConfig.BatchSize)
				}
				if !strings.Contains(fr.OutputConfig.GCSDestination.URI, "temp/run/output/") {
					t.Errorf("destination = %q", fr.OutputConfig.GCSDestination.URI)
				}
				if fr.ImageContext == nil || len(fr.ImageContext.LanguageHints) != 2 {
					t.Errorf("unexpected image context: %+v", fr.ImageContext)
				}
				json.NewEncoder(w).Encode(operation{Name: "operations/op-123"})

			case r.Method == "GET" && r.URL.Path == "/operations/op-123":
				done := polls.Add(1) > 1
				json.NewEncoder(w).Encode(operation{Name: "operations/op-123", Done: done})

			default:
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		store := seedStore(t, map[string]string{
			"temp/run/output/output-2.json": shardDoc("second"),
			"temp/run/output/output-1.json": shardDoc("first"),
			"temp/run/output/readme.txt":    "not a shard",
		})

		client := NewClient(Config{
			APIKey:        "test-key",
			BaseURL:       server.URL,
			PollInterval:  time.Millisecond,
			CleanupOutput: true,
			Logger:        quietLogger(),
		}, store)

		tree, err := client.Annotate(context.Background(), Request{
			SourceURI:     "gs://bucket/temp/run/doc.pdf",
			MimeType:      "application/pdf",
			OutputPrefix:  "temp/run/output/",
			LanguageHints: []string{"ja", "en"},
		})
		if err != nil {
			t.Fatalf("Annotate() error = %v", err)
		}

		if len(tree.Responses) != 2 {
			t.Fatalf("expected 2 merged responses, got %d", len(tree.Responses))
		}
		// Shards merge in key order.
		if got := tree.Responses[0].FullTextAnnotation.Text; got != "first" {
			t.Errorf("first response text = %q, want first", got)
		}
		if got := tree.Responses[1].FullTextAnnotation.Text; got != "second" {
			t.Errorf("second response text = %q, want second", got)
		}
		if polls.Load() < 2 {
			t.Errorf("expected at least 2 polls, got %d", polls.Load())
		}

		// Cleanup removed the shards but left the non-shard file.
		left, err := store.List(context.Background(), "temp/run/output/")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(left) != 1 || left[0].Key != "temp/run/output/readme.txt" {
			t.Errorf("unexpected leftovers: %+v", left)
		}
	})

	t.Run("operation error stops polling", func(t *testing.T) {
		var polls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "POST" {
				json.NewEncoder(w).Encode(operation{Name: "operations/op-err"})
				return
			}
			polls.Add(1)
			json.NewEncoder(w).Encode(operation{
				Name:  "operations/op-err",
				Done:  true,
				Error: &operationError{Code: 7, Message: "permission denied"},
			})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL:      server.URL,
			PollInterval: time.Millisecond,
			PollAttempts: 10,
			Logger:       quietLogger(),
		}, seedStore(t, nil))

		_, err := client.Annotate(context.Background(), Request{
			SourceURI:    "gs://bucket/doc.pdf",
			MimeType:     "application/pdf",
			OutputPrefix: "out/",
		})
		if !errors.Is(err, ErrOperationFailed) {
			t.Fatalf("expected ErrOperationFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "permission denied") {
			t.Errorf("error should carry the engine message, got %q", err)
		}
		if polls.Load() != 1 {
			t.Errorf("engine errors must not be retried, got %d polls", polls.Load())
		}
	})

	t.Run("submit rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 400, "message": "invalid input uri"},
			})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Logger:  quietLogger(),
		}, seedStore(t, nil))

		_, err := client.Annotate(context.Background(), Request{
			SourceURI: "gs://bucket/doc.pdf", MimeType: "application/pdf", OutputPrefix: "out/",
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "invalid input uri") {
			t.Errorf("error should carry the API message, got %q", err)
		}
	})

	t.Run("no output shards", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "POST" {
				json.NewEncoder(w).Encode(operation{Name: "operations/op-1"})
				return
			}
			json.NewEncoder(w).Encode(operation{Name: "operations/op-1", Done: true})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL:      server.URL,
			PollInterval: time.Millisecond,
			Logger:       quietLogger(),
		}, seedStore(t, nil))

		_, err := client.Annotate(context.Background(), Request{
			SourceURI: "gs://bucket/doc.pdf", MimeType: "application/pdf", OutputPrefix: "out/",
		})
		if !errors.Is(err, ErrNoOutput) {
			t.Fatalf("expected ErrNoOutput, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(50 * time.Millisecond)
			json.NewEncoder(w).Encode(operation{Name: "operations/op-1"})
		}))
		defer server.Close()

		client := NewClient(Config{
			BaseURL: server.URL,
			Logger:  quietLogger(),
		}, seedStore(t, nil))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Annotate(ctx, Request{
			SourceURI: "gs://bucket/doc.pdf", MimeType: "application/pdf", OutputPrefix: "out/",
		})
		if err == nil {
			t.Fatal("expected error from cancelled context")
		}
	})
}
