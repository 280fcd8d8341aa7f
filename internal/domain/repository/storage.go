package repository

import (
	"context"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// BlobStore is a key -> binary blob capability backing the media cache.
// Implementations are provided by the infrastructure layer (memory, file, Redis, MinIO, PostgreSQL).
// Puts are keyed upserts; entries never reference each other.
type BlobStore interface {
	// Get retrieves an entry by key.
	// Returns ErrBlobNotFound if the key does not exist.
	Get(ctx context.Context, key string) (*model.CacheEntry, error)

	// Stat returns the metadata of an entry without reading its payload.
	// Returns ErrBlobNotFound if the key does not exist.
	Stat(ctx context.Context, key string) (model.CacheEntryInfo, error)

	// Put stores an entry, replacing any entry with the same key.
	Put(ctx context.Context, entry *model.CacheEntry) error

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the metadata of every stored entry.
	List(ctx context.Context) ([]model.CacheEntryInfo, error)
}
