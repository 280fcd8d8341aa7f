package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientConfig holds configuration for the PostgreSQL client.
type ClientConfig struct {
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	// StatementTimeout bounds every query so a slow database degrades to cache misses.
	StatementTimeout time.Duration
}

// DefaultClientConfig returns a ClientConfig sized for a single cache table.
func DefaultClientConfig(dsn string) ClientConfig {
	return ClientConfig{
		DSN:              dsn,
		ApplicationName:  "purestream",
		MaxConns:         8,
		MinConns:         1,
		MaxConnIdleTime:  10 * time.Minute,
		StatementTimeout: 5 * time.Second,
	}
}

// Client owns the connection pool behind the postgres blob store.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient opens the pool and verifies the connection.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	poolConfig, err := poolConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool}, nil
}

func poolConfigFor(cfg ClientConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	return poolConfig, nil
}

// BlobStore returns a media cache repository on this pool with its table ensured.
func (c *Client) BlobStore(ctx context.Context) (*BlobRepository, error) {
	repo := NewBlobRepository(c.pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Close closes every connection in the pool.
func (c *Client) Close() {
	c.pool.Close()
}
