package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BlobRepository implements repository.BlobStore using a PostgreSQL table.
type BlobRepository struct {
	db DBTX
}

var _ repository.BlobStore = (*BlobRepository)(nil)

// NewBlobRepository creates a new BlobRepository instance.
func NewBlobRepository(db DBTX) *BlobRepository {
	return &BlobRepository{db: db}
}

// EnsureSchema creates the media_cache table when it does not exist.
func (r *BlobRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS media_cache (
			key         TEXT PRIMARY KEY,
			payload     BYTEA NOT NULL,
			size        BIGINT NOT NULL,
			inserted_at TIMESTAMPTZ NOT NULL
		)
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create media_cache table: %w", err)
	}
	return nil
}

// Get retrieves an entry by key.
func (r *BlobRepository) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	const query = `
		SELECT key, payload, size, inserted_at
		FROM media_cache
		WHERE key = $1
	`

	var entry model.CacheEntry
	err := r.db.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&entry.Payload,
		&entry.Size,
		&entry.InsertedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}

	return &entry, nil
}

// Stat retrieves entry metadata without the payload column.
func (r *BlobRepository) Stat(ctx context.Context, key string) (model.CacheEntryInfo, error) {
	const query = `
		SELECT key, size, inserted_at
		FROM media_cache
		WHERE key = $1
	`

	var info model.CacheEntryInfo
	err := r.db.QueryRow(ctx, query, key).Scan(&info.Key, &info.Size, &info.InsertedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CacheEntryInfo{}, repository.ErrBlobNotFound
		}
		return model.CacheEntryInfo{}, fmt.Errorf("failed to stat blob: %w", err)
	}

	return info, nil
}

// Put upserts an entry.
func (r *BlobRepository) Put(ctx context.Context, entry *model.CacheEntry) error {
	const query = `
		INSERT INTO media_cache (key, payload, size, inserted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, size = EXCLUDED.size, inserted_at = EXCLUDED.inserted_at
	`

	_, err := r.db.Exec(ctx, query,
		entry.Key,
		entry.Payload,
		int64(len(entry.Payload)),
		entry.InsertedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}

	return nil
}

// Delete removes an entry. Missing keys are ignored.
func (r *BlobRepository) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM media_cache WHERE key = $1`

	if _, err := r.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

// List returns entry metadata ordered oldest first.
func (r *BlobRepository) List(ctx context.Context) ([]model.CacheEntryInfo, error) {
	const query = `
		SELECT key, size, inserted_at
		FROM media_cache
		ORDER BY inserted_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var infos []model.CacheEntryInfo
	for rows.Next() {
		var info model.CacheEntryInfo
		if err := rows.Scan(&info.Key, &info.Size, &info.InsertedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blob: %w", err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blobs: %w", err)
	}

	return infos, nil
}
