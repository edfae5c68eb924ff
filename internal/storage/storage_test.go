package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatcher/internal/config"
	apperrors "dispatcher/pkg/errors"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Download(ctx, "missing.jpg")
	assert.True(t, apperrors.IsNotFound(err))

	s.Put("cameratrap/img.jpg", []byte("jpeg-bytes"))
	data, err := s.Download(ctx, "cameratrap/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	// Callers get a copy.
	data[0] = 'X'
	again, err := s.Download(ctx, "cameratrap/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), again)

	require.NoError(t, s.Delete(ctx, "cameratrap/img.jpg"))
	assert.False(t, s.Exists("cameratrap/img.jpg"))
	require.NoError(t, s.Delete(ctx, "cameratrap/img.jpg"))
}

func TestNew(t *testing.T) {
	store, err := New(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(config.StorageConfig{Type: "minio", Endpoint: "localhost:9000", Bucket: "cdip-files-dev"})
	require.NoError(t, err)
	assert.IsType(t, &MinIOStore{}, store)

	_, err = New(config.StorageConfig{Type: "gcs"})
	assert.Error(t, err)
}
