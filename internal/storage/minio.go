package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dispatcher/internal/config"
	apperrors "dispatcher/pkg/errors"
)

type MinIOStore struct {
	mc     *minio.Client
	bucket string
}

func NewMinIOStore(cfg config.StorageConfig) (*MinIOStore, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinIOStore{mc: mc, bucket: cfg.Bucket}, nil
}

func (s *MinIOStore) Download(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.translate(path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.translate(path, err)
	}
	return data, nil
}

func (s *MinIOStore) Delete(ctx context.Context, path string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", s.bucket, path, err)
	}
	return nil
}

func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// GetObject is lazy, so a missing key usually surfaces on the first read.
func (s *MinIOStore) translate(path string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return apperrors.ErrNotFound.
			WithMessage("file not found in storage").
			WithDetail("bucket", s.bucket).
			WithDetail("path", path).
			WithCause(err)
	}
	return fmt.Errorf("failed to download %s/%s: %w", s.bucket, path, err)
}
