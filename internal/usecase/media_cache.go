package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
)

var videoIDPattern = regexp.MustCompile(`/video/(\d+)`)

// CacheKey derives the cache key of a source locator.
// Locators embedding a numeric video id map to "video:<id>"; anything else
// uses the literal locator truncated to maxLen bytes.
func CacheKey(locator string, maxLen int) string {
	if m := videoIDPattern.FindStringSubmatch(locator); m != nil {
		return "video:" + m[1]
	}
	if maxLen > 0 && len(locator) > maxLen {
		return locator[:maxLen]
	}
	return locator
}

// MediaCache is the size- and age-bounded blob cache for media prefixes.
// Every storage fault is logged and reported as a miss or a no-op.
type MediaCache interface {
	// Get returns the cached blob for a locator. Expired entries are deleted and reported as a miss.
	Get(ctx context.Context, locator string) ([]byte, bool)

	// Contains reports whether a live entry exists for a locator.
	Contains(ctx context.Context, locator string) bool

	// Put stores a blob and runs eviction when the budget is exceeded.
	Put(ctx context.Context, locator string, payload []byte)

	// Stats returns the aggregate size and entry count.
	Stats(ctx context.Context) model.CacheStats

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// PurgeExpired removes every entry older than the TTL and returns how many were removed.
	PurgeExpired(ctx context.Context) int
}

// MediaCacheConfig holds configuration for MediaCache.
type MediaCacheConfig struct {
	// MaxBytes is the aggregate payload budget.
	MaxBytes int64
	// MaxEntries caps the number of entries. Zero disables the cap.
	MaxEntries int
	// TTL is the maximum entry age. Zero disables expiry.
	TTL time.Duration
	// EvictTarget is the fraction of MaxBytes eviction shrinks the cache to.
	EvictTarget float64
	// KeyMaxLen truncates literal locator keys.
	KeyMaxLen int
}

// DefaultMediaCacheConfig returns the default configuration.
func DefaultMediaCacheConfig() MediaCacheConfig {
	return MediaCacheConfig{
		MaxBytes:    200 * 1024 * 1024,
		TTL:         24 * time.Hour,
		EvictTarget: 0.8,
		KeyMaxLen:   100,
	}
}

type mediaCache struct {
	store repository.BlobStore
	cfg   MediaCacheConfig
	now   func() time.Time

	// evictMu serialises eviction passes so concurrent puts don't evict twice.
	evictMu sync.Mutex
}

// NewMediaCache creates a MediaCache over a blob store.
func NewMediaCache(store repository.BlobStore, cfg MediaCacheConfig) MediaCache {
	return newMediaCache(store, cfg, time.Now)
}

func newMediaCache(store repository.BlobStore, cfg MediaCacheConfig, now func() time.Time) *mediaCache {
	cfg.EvictTarget = lo.Clamp(cfg.EvictTarget, 0, 1)
	return &mediaCache{store: store, cfg: cfg, now: now}
}

func (c *mediaCache) key(locator string) string {
	return CacheKey(locator, c.cfg.KeyMaxLen)
}

// Get reads the blob for locator. Expired entries are deleted and store
// faults are logged; both are reported as a miss.
func (c *mediaCache) Get(ctx context.Context, locator string) ([]byte, bool) {
	key := c.key(locator)

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrBlobNotFound) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMedia).Inc()
			return nil, false
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeMedia).Inc()
		slog.Warn("media cache get failed, treating as miss",
			"key", key,
			"error", err,
		)
		return nil, false
	}

	if entry.IsExpired(c.now(), c.cfg.TTL) {
		c.delete(ctx, key, metrics.EvictExpired)
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeMedia).Inc()
		return nil, false
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeMedia).Inc()
	return entry.Payload, true
}

// Contains checks entry metadata only; the payload is never read.
func (c *mediaCache) Contains(ctx context.Context, locator string) bool {
	key := c.key(locator)

	info, err := c.store.Stat(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrBlobNotFound) {
			slog.Warn("media cache stat failed, treating as miss",
				"key", key,
				"error", err,
			)
		}
		return false
	}
	if info.IsExpired(c.now(), c.cfg.TTL) {
		c.delete(ctx, key, metrics.EvictExpired)
		return false
	}
	return true
}

// Put upserts the blob and evicts when the budget or entry cap is exceeded.
func (c *mediaCache) Put(ctx context.Context, locator string, payload []byte) {
	key := c.key(locator)

	if err := c.store.Put(ctx, model.NewCacheEntry(key, payload, c.now())); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeMedia).Inc()
		slog.Warn("media cache put failed",
			"key", key,
			"error", err,
		)
		return
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMedia).Inc()

	if err := c.evict(ctx); err != nil {
		slog.Warn("media cache eviction failed",
			"error", err,
		)
	}
}

// evict removes oldest-inserted entries once the byte budget or entry cap is exceeded.
// Byte eviction shrinks the cache to EvictTarget of the budget.
func (c *mediaCache) evict(ctx context.Context) error {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	infos, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	total := lo.SumBy(infos, func(i model.CacheEntryInfo) int64 { return i.Size })
	count := len(infos)
	overBytes := c.cfg.MaxBytes > 0 && total > c.cfg.MaxBytes
	overCount := c.cfg.MaxEntries > 0 && count > c.cfg.MaxEntries
	if !overBytes && !overCount {
		metrics.MediaCacheBytes.Set(float64(total))
		return nil
	}

	target := total
	if overBytes {
		target = int64(float64(c.cfg.MaxBytes) * c.cfg.EvictTarget)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].InsertedAt.Before(infos[j].InsertedAt)
	})

	for _, info := range infos {
		if total <= target && (c.cfg.MaxEntries <= 0 || count <= c.cfg.MaxEntries) {
			break
		}
		if !c.delete(ctx, info.Key, metrics.EvictBudget) {
			continue
		}
		total -= info.Size
		count--
	}

	metrics.MediaCacheBytes.Set(float64(total))
	return nil
}

func (c *mediaCache) delete(ctx context.Context, key, reason string) bool {
	if err := c.store.Delete(ctx, key); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeMedia).Inc()
		slog.Warn("media cache delete failed",
			"key", key,
			"error", err,
		)
		return false
	}
	metrics.MediaCacheEvictionsTotal.WithLabelValues(reason).Inc()
	return true
}

// Stats sums entry metadata. A store fault reports an empty cache.
func (c *mediaCache) Stats(ctx context.Context) model.CacheStats {
	infos, err := c.store.List(ctx)
	if err != nil {
		slog.Warn("media cache stats failed",
			"error", err,
		)
		return model.CacheStats{}
	}

	return model.CacheStats{
		SizeBytes: lo.SumBy(infos, func(i model.CacheEntryInfo) int64 { return i.Size }),
		Count:     len(infos),
	}
}

// Clear deletes every entry and joins the failures of any deletes that did not succeed.
func (c *mediaCache) Clear(ctx context.Context) error {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	infos, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	var errs []error
	for _, info := range infos {
		if !c.delete(ctx, info.Key, metrics.EvictClear) {
			errs = append(errs, fmt.Errorf("delete %s failed", info.Key))
		}
	}

	metrics.MediaCacheBytes.Set(0)
	return errors.Join(errs...)
}

// PurgeExpired deletes entries older than the TTL.
func (c *mediaCache) PurgeExpired(ctx context.Context) int {
	if c.cfg.TTL <= 0 {
		return 0
	}

	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	infos, err := c.store.List(ctx)
	if err != nil {
		slog.Warn("media cache purge failed",
			"error", err,
		)
		return 0
	}

	now := c.now()
	removed := 0
	for _, info := range infos {
		if info.IsExpired(now, c.cfg.TTL) && c.delete(ctx, info.Key, metrics.EvictExpired) {
			removed++
		}
	}
	return removed
}
