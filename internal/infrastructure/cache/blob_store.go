package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

const (
	blobKeyPrefix = "media:blob:"
	// blobIndexKey is a sorted set of cache keys scored by insertion time in milliseconds.
	blobIndexKey = "media:index"
	// blobSizesKey is a hash of cache key -> payload size.
	blobSizesKey = "media:sizes"
)

// RedisBlobStore implements repository.BlobStore on Redis.
// Payloads live under their own keys; an index and a size hash make List a two-command read.
type RedisBlobStore struct {
	client *redis.Client
}

var _ repository.BlobStore = (*RedisBlobStore)(nil)

// NewRedisBlobStore creates a new Redis-backed blob store.
func NewRedisBlobStore(client *redis.Client) *RedisBlobStore {
	return &RedisBlobStore{client: client}
}

// Get reads the payload and its insertion time from the index.
func (s *RedisBlobStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	payload, err := s.client.Get(ctx, blobKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	score, err := s.client.ZScore(ctx, blobIndexKey, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis zscore: %w", err)
	}

	return &model.CacheEntry{
		Key:        key,
		Payload:    payload,
		Size:       int64(len(payload)),
		InsertedAt: time.UnixMilli(int64(score)),
	}, nil
}

// Stat reads the index score and recorded size of key in one round trip.
// The payload key must still exist, since Redis may evict it independently.
func (s *RedisBlobStore) Stat(ctx context.Context, key string) (model.CacheEntryInfo, error) {
	var (
		exists *redis.IntCmd
		score  *redis.FloatCmd
		size   *redis.StringCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, blobKeyPrefix+key)
		score = pipe.ZScore(ctx, blobIndexKey, key)
		size = pipe.HGet(ctx, blobSizesKey, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.CacheEntryInfo{}, fmt.Errorf("redis stat: %w", err)
	}
	if exists.Val() == 0 {
		return model.CacheEntryInfo{}, repository.ErrBlobNotFound
	}

	n, _ := strconv.ParseInt(size.Val(), 10, 64)
	return model.CacheEntryInfo{
		Key:        key,
		Size:       n,
		InsertedAt: time.UnixMilli(int64(score.Val())),
	}, nil
}

// Put writes the payload, index score and size in one transaction.
func (s *RedisBlobStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, blobKeyPrefix+entry.Key, entry.Payload, 0)
		pipe.ZAdd(ctx, blobIndexKey, redis.Z{
			Score:  float64(entry.InsertedAt.UnixMilli()),
			Member: entry.Key,
		})
		pipe.HSet(ctx, blobSizesKey, entry.Key, len(entry.Payload))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Delete removes the payload and its index and size records.
func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, blobKeyPrefix+key)
		pipe.ZRem(ctx, blobIndexKey, key)
		pipe.HDel(ctx, blobSizesKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// List returns entries ordered oldest first.
func (s *RedisBlobStore) List(ctx context.Context) ([]model.CacheEntryInfo, error) {
	members, err := s.client.ZRangeWithScores(ctx, blobIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}

	sizes, err := s.client.HGetAll(ctx, blobSizesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	infos := make([]model.CacheEntryInfo, 0, len(members))
	for _, m := range members {
		key, ok := m.Member.(string)
		if !ok {
			continue
		}
		size, _ := strconv.ParseInt(sizes[key], 10, 64)
		infos = append(infos, model.CacheEntryInfo{
			Key:        key,
			Size:       size,
			InsertedAt: time.UnixMilli(int64(m.Score)),
		})
	}
	return infos, nil
}
