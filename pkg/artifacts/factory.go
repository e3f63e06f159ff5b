package artifacts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// StoreType selects the backend new packets are published to.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv creates the publishing store.
//
// Environment variables:
//   - PACKET_STORAGE_TYPE: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: base directory for the filesystem store (default: "data")
//
// For S3:
//   - PACKET_S3_BUCKET (required)
//   - PACKET_S3_REGION or AWS_REGION
//   - PACKET_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - PACKET_S3_PREFIX (optional)
//
// For GCS:
//   - PACKET_GCS_BUCKET (required)
//   - PACKET_GCS_PREFIX (optional)
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	storeType := StoreType(os.Getenv("PACKET_STORAGE_TYPE"))
	if storeType == "" {
		storeType = StoreTypeFS
	}

	switch storeType {
	case StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unsupported packet storage type: %s", storeType)
	}
}

func newFileStoreFromEnv() (Store, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFileStore(filepath.Join(dataDir, "packets"))
}

func newS3StoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("PACKET_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("PACKET_S3_BUCKET is required for S3 storage")
	}
	return NewS3Store(ctx, s3ConfigFromEnv(bucket))
}

func s3ConfigFromEnv(bucket string) S3StoreConfig {
	region := os.Getenv("PACKET_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	return S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("PACKET_S3_ENDPOINT"),
		Prefix:   os.Getenv("PACKET_S3_PREFIX"),
	}
}

// NewResolverFromEnv registers a reader for every scheme this build
// supports: file, http, https, s3, and gs when built with -tags gcp.
// The S3 reader is only added when AWS configuration loads.
//
// A non-nil policy confines the resolver for server use: http(s) hosts must
// pass policy, and the s3 and gs readers are registered only for a
// configured bucket and read only from it. The file reader always stays
// inside DATA_DIR/packets.
func NewResolverFromEnv(ctx context.Context, httpClient *http.Client, policy HostPolicy) (*Resolver, error) {
	fs, err := newFileStoreFromEnv()
	if err != nil {
		return nil, err
	}
	r := NewResolver(
		fs,
		NewHTTPStore(httpClient, "https").WithHostPolicy(policy),
		NewHTTPStore(httpClient, "http").WithHostPolicy(policy),
	)

	confined := policy != nil
	s3Bucket := os.Getenv("PACKET_S3_BUCKET")
	if !confined || s3Bucket != "" {
		if s3Store, err := NewS3Store(ctx, s3ConfigFromEnv(s3Bucket)); err == nil {
			r.Register(s3Store)
		}
	}
	if !confined || os.Getenv("PACKET_GCS_BUCKET") != "" {
		if gcs, err := newGCSStoreFromEnv(ctx); err == nil {
			r.Register(gcs)
		}
	}
	return r, nil
}
