package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/cache"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
)

// DefaultFeedCacheTTL is how long a backend response is reused for an identical request.
const DefaultFeedCacheTTL = 60 * time.Second

// cachedFeedBackend wraps a FeedBackend with a short-lived request cache.
// Requests flagged SkipCache always reach the backend.
type cachedFeedBackend struct {
	delegate repository.FeedBackend
	cache    cache.FeedCache
	sfGroup  singleflight.Group
	ttl      time.Duration
}

var _ repository.FeedBackend = (*cachedFeedBackend)(nil)

// NewCachedFeedBackend creates a FeedBackend decorator caching responses for ttl.
func NewCachedFeedBackend(delegate repository.FeedBackend, feedCache cache.FeedCache, ttl time.Duration) repository.FeedBackend {
	if ttl <= 0 {
		ttl = DefaultFeedCacheTTL
	}
	return &cachedFeedBackend{
		delegate: delegate,
		cache:    feedCache,
		ttl:      ttl,
	}
}

func feedRequestKey(req repository.FeedRequest) string {
	key := req.Kind().String()
	if req.Cursor != "" {
		key += ":" + req.Cursor
	}
	return key
}

func userVideosKey(username string, limit int) string {
	return fmt.Sprintf("%s:%s:%d", model.FeedKindUser, strings.ToLower(strings.TrimPrefix(username, "@")), limit)
}

func searchKey(query string, limit int, cursor string) string {
	return fmt.Sprintf("%s:%s:%s:%d", model.FeedKindSearch, strings.ToLower(strings.TrimSpace(query)), cursor, limit)
}

// Feed serves feed batches from the request cache unless SkipCache is set.
func (b *cachedFeedBackend) Feed(ctx context.Context, req repository.FeedRequest) ([]model.VideoDescriptor, error) {
	if req.SkipCache {
		return b.delegate.Feed(ctx, req)
	}

	page, err := b.load(ctx, feedRequestKey(req), func() (*model.FeedPage, error) {
		videos, err := b.delegate.Feed(ctx, req)
		if err != nil {
			return nil, err
		}
		return &model.FeedPage{Items: videos}, nil
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// UserVideos serves an author's videos from the request cache.
func (b *cachedFeedBackend) UserVideos(ctx context.Context, username string, limit int) ([]model.VideoDescriptor, error) {
	page, err := b.load(ctx, userVideosKey(username, limit), func() (*model.FeedPage, error) {
		videos, err := b.delegate.UserVideos(ctx, username, limit)
		if err != nil {
			return nil, err
		}
		return &model.FeedPage{Items: videos}, nil
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Search serves search pages from the request cache, keyed by query, cursor and limit.
func (b *cachedFeedBackend) Search(ctx context.Context, query string, limit int, cursor string) (*model.FeedPage, error) {
	return b.load(ctx, searchKey(query, limit, cursor), func() (*model.FeedPage, error) {
		return b.delegate.Search(ctx, query, limit, cursor)
	})
}

// load coalesces concurrent identical requests and applies cache-aside.
func (b *cachedFeedBackend) load(ctx context.Context, key string, fetch func() (*model.FeedPage, error)) (*model.FeedPage, error) {
	result, err, shared := b.sfGroup.Do(key, func() (any, error) {
		return b.loadWithCache(ctx, key, fetch)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}
	return result.(*model.FeedPage), nil
}

func (b *cachedFeedBackend) loadWithCache(ctx context.Context, key string, fetch func() (*model.FeedPage, error)) (*model.FeedPage, error) {
	page, err := b.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeFeed).Inc()
		slog.Warn("feed cache get failed, falling back to backend",
			"key", key,
			"error", err,
		)
	}
	if page != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeFeed).Inc()
		return page, nil
	}
	if err == nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeFeed).Inc()
	}

	page, err = fetch()
	if err != nil {
		return nil, err
	}

	if err := b.cache.Set(ctx, key, page, b.ttl); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeFeed).Inc()
		slog.Warn("failed to cache feed response",
			"key", key,
			"error", err,
		)
	}

	return page, nil
}
