// Package blobstore opens the media blob store backend selected by configuration.
package blobstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/purestream/internal/config"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/cache"
	"github.com/hszk-dev/purestream/internal/infrastructure/postgres"
	"github.com/hszk-dev/purestream/internal/infrastructure/storage"
)

// Backend names accepted by CACHE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendMinIO    = "minio"
	BackendPostgres = "postgres"
)

// IsShared reports whether a backend can be reached by more than one process.
func IsShared(backend string) bool {
	return backend != BackendMemory
}

// Open connects the configured blob store. The returned cleanup releases its connections.
func Open(ctx context.Context, cfg *config.Config) (repository.BlobStore, func(), error) {
	noop := func() {}

	switch cfg.Cache.Backend {
	case BackendMemory:
		return storage.NewMemoryStore(), noop, nil

	case BackendFile:
		store, err := storage.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case BackendRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewRedisBlobStore(client), func() { _ = client.Close() }, nil

	case BackendMinIO:
		store, err := storage.NewMinioStore(ctx, storage.ClientConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return store, noop, nil

	case BackendPostgres:
		client, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		store, err := client.BlobStore(ctx)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("connected to Redis", slog.String("addr", cfg.Addr()))
	return client, nil
}
