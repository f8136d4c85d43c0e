package flatfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound indicates the requested flat file does not exist in the
// bucket. Files appear a few hours after the session close, so a recent
// date may legitimately have no file yet.
var ErrNotFound = errors.New("flat file not found")

// Fetcher downloads daily flat files from the provider's S3-compatible
// object store.
type Fetcher struct {
	client *minio.Client
	bucket string
	logger *slog.Logger

	timeout    time.Duration
	maxElapsed time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// New creates a Fetcher for the given endpoint and bucket. The access
// and secret keys are the S3 credentials from the provider dashboard.
func New(endpoint, accessKey, secretKey, bucket string, opts ...Option) (*Fetcher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: true,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	f := &Fetcher{
		client:     client,
		bucket:     bucket,
		logger:     slog.Default(),
		timeout:    60 * time.Second,
		maxElapsed: 2 * time.Minute,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithTimeout sets the per-attempt download timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxElapsedRetry caps the total time spent retrying a download.
func WithMaxElapsedRetry(d time.Duration) Option {
	return func(f *Fetcher) {
		f.maxElapsed = d
	}
}

// download opens the object at key and verifies it exists. GetObject is
// lazy, so a Stat is needed to surface NoSuchKey before decoding starts.
func (f *Fetcher) download(ctx context.Context, key string) (*minio.Object, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, nil
}
