package vision

import (
	"context"

	"github.com/crosscore/cloud-ocr-summarizer/internal/annotation"
)

// Request describes one asynchronous annotation job.
type Request struct {
	// SourceURI is the storage URI of the staged document.
	SourceURI string

	// MimeType of the staged document (application/pdf, image/png, ...).
	MimeType string

	// OutputPrefix is the storage key prefix the engine writes result
	// shards under.
	OutputPrefix string

	// BatchSize is the number of pages per output shard. Defaults to 1
	// so every response maps to one page.
	BatchSize int

	// LanguageHints bias recognition toward the given language codes.
	LanguageHints []string
}

// Engine runs document text detection and returns the raw annotation
// tree assembled from the engine's output.
type Engine interface {
	Annotate(ctx context.Context, req Request) (*annotation.Tree, error)
}
