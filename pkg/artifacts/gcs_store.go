//go:build gcp

package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore keeps packets in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

// NewGCSStore uses Application Default Credentials.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) Scheme() string { return "gs" }

func (s *GCSStore) Put(ctx context.Context, data []byte) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("%w: no bucket configured", ErrReadOnly)
	}
	objectPath := s.prefix + ObjectName(data)
	uri := s.URIFor(data)

	obj := s.client.Bucket(s.bucket).Object(objectPath)
	if _, err := obj.Attrs(ctx); err == nil {
		return uri, nil
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close failed: %w", err)
	}
	return uri, nil
}

func (s *GCSStore) URIFor(data []byte) string {
	return "gs://" + s.bucket + "/" + s.prefix + ObjectName(data)
}

func (s *GCSStore) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := splitBucketURI(uri, "gs")
	if err != nil {
		return nil, err
	}
	if s.bucket != "" && bucket != s.bucket {
		return nil, fmt.Errorf("%w: bucket %q", ErrForbidden, bucket)
	}
	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("gcs get failed for %s: %w", uri, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
