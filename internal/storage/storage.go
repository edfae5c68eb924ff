// Package storage reads attachment blobs written by the transformers.
package storage

import (
	"context"
	"fmt"

	"dispatcher/internal/config"
	"dispatcher/internal/constants"
)

// BlobStore is the subset of object storage the dispatcher needs.
type BlobStore interface {
	Download(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Ping(ctx context.Context) error
}

func New(cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Type {
	case constants.StorageTypeMinIO:
		return NewMinIOStore(cfg)
	case constants.StorageTypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
