package config

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://localhost:8002/api" || cfg.Backend.ProxyMode != "auto" {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.MaxBytes != 200*1024*1024 || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.EvictTarget != 0.8 || cfg.Cache.KeyMaxLen != 100 || cfg.Cache.MaxEntries != 0 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Prefetch.Mode != "local" || cfg.Prefetch.Lookahead != 3 || cfg.Prefetch.InitialBatch != 3 {
		t.Errorf("Prefetch = %+v", cfg.Prefetch)
	}
	if cfg.Prefetch.Timeout != 30*time.Second || cfg.Prefetch.RangeBytes != 1024*1024 {
		t.Errorf("Prefetch = %+v", cfg.Prefetch)
	}
	if cfg.Feed.RequestCacheTTL != time.Minute || cfg.Feed.SearchLimit != 12 || cfg.Feed.SearchMinPage != 5 {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if cfg.Feed.PaginationThreshold != 0.6 {
		t.Errorf("Feed.PaginationThreshold = %v, want 0.6", cfg.Feed.PaginationThreshold)
	}
	if cfg.Playback.TapWindow != 250*time.Millisecond || !cfg.Playback.StartMuted {
		t.Errorf("Playback = %+v", cfg.Playback)
	}
	if cfg.Viewer.SwipeThreshold != 50 {
		t.Errorf("Viewer.SwipeThreshold = %v, want 50", cfg.Viewer.SwipeThreshold)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_MAX_ENTRIES", "30")
	t.Setenv("PREFETCH_MODE", "queue")
	t.Setenv("PREFETCH_MAX_CONCURRENCY", "4")
	t.Setenv("FEED_FOLLOWING", "alice,bob")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cache.Backend != "redis" || cfg.Cache.MaxEntries != 30 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Prefetch.Mode != "queue" || cfg.Prefetch.MaxConcurrency != 4 {
		t.Errorf("Prefetch = %+v", cfg.Prefetch)
	}
	if !slices.Equal(cfg.Feed.Following, []string{"alice", "bob"}) {
		t.Errorf("Feed.Following = %v, want [alice bob]", cfg.Feed.Following)
	}
	if got := cfg.Redis.Addr(); got != "cache.internal:6380" {
		t.Errorf("Redis.Addr() = %q, want cache.internal:6380", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "unknown cache backend", key: "CACHE_BACKEND", value: "s3", wantErr: "CACHE_BACKEND"},
		{name: "unknown feed cache", key: "FEED_REQUEST_CACHE", value: "disk", wantErr: "FEED_REQUEST_CACHE"},
		{name: "zero budget", key: "CACHE_MAX_BYTES", value: "0", wantErr: "CACHE_MAX_BYTES"},
		{name: "zero lookahead", key: "PREFETCH_LOOKAHEAD", value: "0", wantErr: "PREFETCH_LOOKAHEAD"},
		{name: "threshold above one", key: "FEED_PAGINATION_THRESHOLD", value: "1.5", wantErr: "FEED_PAGINATION_THRESHOLD"},
		{name: "malformed duration", key: "CACHE_TTL", value: "soon", wantErr: "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestDSNAndURL(t *testing.T) {
	db := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, DBName: "media", SSLMode: "disable"}
	if got, want := db.DSN(), "postgres://u:p@db:5432/media?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	mq := RabbitMQConfig{User: "u", Password: "p", Host: "mq", Port: 5672, VHost: "/"}
	if got, want := mq.URL(), "amqp://u:p@mq:5672/"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}
