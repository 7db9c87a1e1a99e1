package storage

import (
	"context"
	"io"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// Store stages documents for the vision engine and collects the result
// shards it writes back. Keys are slash-separated paths relative to
// the configured bucket or root.
type Store interface {
	// Upload stores the reader's contents under key. Pass size < 0
	// when the length is unknown.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)

	// Download opens the blob stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns all objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Delete removes the blob stored under key.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a presigned GET URL for the blob.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// URI returns the engine-facing URI for a key (gs://, s3://, ...).
	URI(key string) string
}
