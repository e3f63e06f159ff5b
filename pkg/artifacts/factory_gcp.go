//go:build gcp

package artifacts

import (
	"context"
	"os"
)

func newGCSStoreFromEnv(ctx context.Context) (Store, error) {
	return NewGCSStore(ctx, GCSStoreConfig{
		Bucket: os.Getenv("PACKET_GCS_BUCKET"),
		Prefix: os.Getenv("PACKET_GCS_PREFIX"),
	})
}
