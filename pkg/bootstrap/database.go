package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dispatcher/internal/config"
	"dispatcher/internal/logger"
	"dispatcher/internal/storage"
)

// DatabaseConnector opens the shared cache and the attachment store.
type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	cfg := dc.Config.Database.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr(), err)
	}

	dc.Logger.Infow("Redis connected successfully", "addr", cfg.Addr(), "db", cfg.DB)
	return rdb, nil
}

// InitStorage opens the blob store. An unreachable bucket is logged, not
// fatal: only attachment deliveries need it.
func (dc *DatabaseConnector) InitStorage(ctx context.Context) (storage.BlobStore, error) {
	store, err := storage.New(dc.Config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	if err := store.Ping(ctx); err != nil {
		dc.Logger.Warnw("Blob store not reachable", "type", dc.Config.Storage.Type, "error", err)
		return store, nil
	}

	dc.Logger.Infow("Blob store connected successfully", "type", dc.Config.Storage.Type)
	return store, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(rdb *redis.Client) []error {
	if rdb == nil {
		return nil
	}
	if err := rdb.Close(); err != nil {
		return []error{fmt.Errorf("redis close error: %w", err)}
	}
	return nil
}
