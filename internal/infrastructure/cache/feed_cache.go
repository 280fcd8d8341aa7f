package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// FeedCache caches backend feed responses keyed by request.
// Implementations should handle serialization/deserialization transparently.
type FeedCache interface {
	// Get retrieves a cached page by key.
	// Returns nil, nil on a cache miss.
	Get(ctx context.Context, key string) (*model.FeedPage, error)

	// Set stores a page with the specified TTL.
	Set(ctx context.Context, key string, page *model.FeedPage, ttl time.Duration) error

	// Delete removes an entry. Returns nil if the key was not cached.
	Delete(ctx context.Context, key string) error
}
