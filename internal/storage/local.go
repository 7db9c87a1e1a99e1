package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStore implements Store on the local filesystem. It backs
// offline runs against pre-fetched engine output and keeps the
// pipeline testable without a bucket.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{root: root, logger: logger}, nil
}

func (l *LocalStore) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Upload writes the reader's contents to a file under the root.
func (l *LocalStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error) {
	path := l.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create object directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create object file: %w", err)
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write object %s: %w", key, err)
	}

	l.logger.Debug("stored local object", "key", key, "size", written)
	return &Object{
		Key:          key,
		Size:         written,
		ContentType:  contentType,
		LastModified: time.Now(),
	}, nil
}

// Download opens the file stored under key.
func (l *LocalStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

// List walks the root and returns objects whose key starts with prefix,
// sorted by key.
func (l *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Delete removes the file stored under key.
func (l *LocalStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(l.path(key)); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// SignedURL returns a file URI; local objects need no signing.
func (l *LocalStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return l.URI(key), nil
}

// URI returns a file URI for the key.
func (l *LocalStore) URI(key string) string {
	return "file://" + l.path(key)
}
