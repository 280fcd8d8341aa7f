package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// sweepInterval bounds how often Set scans the whole map for expired items.
const sweepInterval = time.Minute

type memoryItem struct {
	page      model.FeedPage
	expiresAt time.Time
}

// MemoryFeedCache implements FeedCache in process memory.
// Expired items are dropped on read, and Set periodically sweeps keys that are
// never read again (search and user pages).
type MemoryFeedCache struct {
	mu        sync.Mutex
	items     map[string]memoryItem
	now       func() time.Time
	nextSweep time.Time
}

var _ FeedCache = (*MemoryFeedCache)(nil)

// NewMemoryFeedCache creates an empty in-memory feed cache.
func NewMemoryFeedCache() *MemoryFeedCache {
	return &MemoryFeedCache{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// Get returns a copy of the cached page, or nil when the key is missing or expired.
func (c *MemoryFeedCache) Get(_ context.Context, key string) (*model.FeedPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	if item.expired(c.now()) {
		delete(c.items, key)
		return nil, nil
	}
	page := item.page
	page.Items = append([]model.VideoDescriptor(nil), item.page.Items...)
	return &page, nil
}

// Set stores a copy of page. A zero ttl never expires.
func (c *MemoryFeedCache) Set(_ context.Context, key string, page *model.FeedPage, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if !now.Before(c.nextSweep) {
		c.sweepLocked(now)
	}

	item := memoryItem{page: *page}
	item.page.Items = append([]model.VideoDescriptor(nil), page.Items...)
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	c.items[key] = item
	return nil
}

func (c *MemoryFeedCache) sweepLocked(now time.Time) {
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}
	c.nextSweep = now.Add(sweepInterval)
}

// Len returns the number of stored items, expired or not.
func (c *MemoryFeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Delete removes the page stored under key.
func (c *MemoryFeedCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}
