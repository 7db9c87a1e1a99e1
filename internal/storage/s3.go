package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible store. Works with GCS in
// interoperability mode, AWS S3, MinIO and other compatible services.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// URIScheme is the scheme reported by URI (default "gs", which is
	// what the vision engine expects for its source and destination).
	URIScheme string

	Logger *slog.Logger
}

// S3Store implements Store against a single bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	scheme string
	logger *slog.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store connects to the configured S3-compatible endpoint.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	scheme := cfg.URIScheme
	if scheme == "" {
		scheme = "gs"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("object storage initialized",
		"endpoint", cfg.Endpoint, "bucket", cfg.Bucket, "ssl", cfg.UseSSL)

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		scheme: scheme,
		logger: logger,
	}, nil
}

// Upload stores the reader's contents under key.
func (s *S3Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Debug("uploaded object", "key", key, "size", info.Size)
	return &Object{
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		LastModified: time.Now(),
		ETag:         info.ETag,
	}, nil
}

// Download opens the blob stored under key. The returned reader fails
// on first read when the object does not exist.
func (s *S3Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return obj, nil
}

// List returns all objects under prefix.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, info.Err)
		}
		objects = append(objects, Object{
			Key:          info.Key,
			Size:         info.Size,
			ContentType:  info.ContentType,
			LastModified: info.LastModified,
			ETag:         info.ETag,
		})
	}
	return objects, nil
}

// Delete removes the blob stored under key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.logger.Debug("deleted object", "key", key)
	return nil
}

// SignedURL returns a presigned GET URL for the blob.
func (s *S3Store) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", key, err)
	}
	return u.String(), nil
}

// URI returns the engine-facing URI for a key.
func (s *S3Store) URI(key string) string {
	return fmt.Sprintf("%s://%s/%s", s.scheme, s.bucket, key)
}
