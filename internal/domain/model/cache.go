package model

import "time"

// CacheEntry is a binary payload stored in the media cache.
type CacheEntry struct {
	Key        string
	Payload    []byte
	Size       int64
	InsertedAt time.Time
}

// NewCacheEntry creates an entry stamped with the given insertion time.
func NewCacheEntry(key string, payload []byte, insertedAt time.Time) *CacheEntry {
	return &CacheEntry{
		Key:        key,
		Payload:    payload,
		Size:       int64(len(payload)),
		InsertedAt: insertedAt,
	}
}

// IsExpired reports whether the entry is older than ttl at now.
// A zero ttl never expires.
func (e *CacheEntry) IsExpired(now time.Time, ttl time.Duration) bool {
	return e.Info().IsExpired(now, ttl)
}

// Info returns the entry metadata without the payload.
func (e *CacheEntry) Info() CacheEntryInfo {
	return CacheEntryInfo{
		Key:        e.Key,
		Size:       e.Size,
		InsertedAt: e.InsertedAt,
	}
}

// CacheEntryInfo is the metadata of a cache entry, used for eviction and stats.
type CacheEntryInfo struct {
	Key        string
	Size       int64
	InsertedAt time.Time
}

// IsExpired reports whether the entry is older than ttl. A zero ttl never expires.
func (i CacheEntryInfo) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(i.InsertedAt) > ttl
}

// CacheStats summarises the media cache.
type CacheStats struct {
	SizeBytes int64 `json:"size_bytes"`
	Count     int   `json:"count"`
}
