package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

const (
	// feedCacheKeyPrefix is the prefix for feed cache keys in Redis.
	feedCacheKeyPrefix = "feed:req:"
)

// videoJSON is the JSON representation of a VideoDescriptor for caching.
// Using explicit struct avoids coupling to domain model's JSON tags.
type videoJSON struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	CDNURL      string `json:"cdn_url,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Views       int64  `json:"views"`
	Likes       int64  `json:"likes"`
}

// pageJSON is the JSON representation of a FeedPage for caching.
type pageJSON struct {
	Videos  []videoJSON `json:"videos"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

// RedisFeedCache implements FeedCache using Redis as the backing store.
type RedisFeedCache struct {
	client *redis.Client
}

var _ FeedCache = (*RedisFeedCache)(nil)

// NewRedisFeedCache creates a new Redis-backed feed cache.
func NewRedisFeedCache(client *redis.Client) *RedisFeedCache {
	return &RedisFeedCache{
		client: client,
	}
}

// Get retrieves a feed page from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisFeedCache) Get(ctx context.Context, key string) (*model.FeedPage, error) {
	data, err := c.client.Get(ctx, feedCacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	page, err := deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize feed: %w", err)
	}

	return page, nil
}

// Set stores a feed page in Redis cache with the specified TTL.
func (c *RedisFeedCache) Set(ctx context.Context, key string, page *model.FeedPage, ttl time.Duration) error {
	data, err := serialize(page)
	if err != nil {
		return fmt.Errorf("serialize feed: %w", err)
	}

	if err := c.client.Set(ctx, feedCacheKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a feed page from Redis cache.
func (c *RedisFeedCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, feedCacheKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func serialize(page *model.FeedPage) ([]byte, error) {
	out := pageJSON{
		Videos:  make([]videoJSON, len(page.Items)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for i, v := range page.Items {
		out.Videos[i] = videoJSON{
			ID:          v.ID,
			URL:         v.URL,
			CDNURL:      v.CDNURL,
			Thumbnail:   v.Thumbnail,
			Author:      v.Author,
			Description: v.Description,
			Views:       v.Views,
			Likes:       v.Likes,
		}
	}
	return json.Marshal(out)
}

func deserialize(data []byte) (*model.FeedPage, error) {
	var in pageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}

	page := &model.FeedPage{
		Items:   make([]model.VideoDescriptor, len(in.Videos)),
		Cursor:  in.Cursor,
		HasMore: in.HasMore,
	}
	for i, v := range in.Videos {
		page.Items[i] = model.VideoDescriptor{
			ID:          v.ID,
			URL:         v.URL,
			CDNURL:      v.CDNURL,
			Thumbnail:   v.Thumbnail,
			Author:      v.Author,
			Description: v.Description,
			Views:       v.Views,
			Likes:       v.Likes,
		}
	}
	return page, nil
}
