package storage

import (
	"context"
	"fmt"
	"io"

	"nexuslab/config"
)

// BlobStore stores uploaded files (post thumbnails) under caller-chosen
// paths and resolves them to public URLs. Uploads stream from an io.Reader
// so large files never sit in memory.
type BlobStore interface {
	// Upload stores the content read from r at path. size is the number of
	// bytes that will be read from r. Uploading to an existing path
	// overwrites it.
	Upload(ctx context.Context, path string, r io.Reader, size int64) error

	// PublicURL returns the URL under which an uploaded path is served.
	PublicURL(path string) string
}

// NewBlobStoreFromConfig creates a BlobStore based on the configured backend.
func NewBlobStoreFromConfig(cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageBackend {
	case "memory":
		return NewMemoryStore(cfg.StorageBaseURL), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires S3_BUCKET to be set")
		}
		return NewS3Store(context.Background(), cfg)
	case "filesystem":
		if cfg.StorageRoot == "" {
			return nil, fmt.Errorf("filesystem storage requires STORAGE_ROOT to be set")
		}
		return NewFilesystemStore(cfg.StorageRoot, cfg.StorageBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
