package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Cache    CacheConfig
	Prefetch PrefetchConfig
	Feed     FeedConfig
	Playback PlaybackConfig
	Viewer   ViewerConfig
	Worker   WorkerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type BackendConfig struct {
	BaseURL   string        `envconfig:"BACKEND_BASE_URL" default:"http://localhost:8002/api"`
	Timeout   time.Duration `envconfig:"BACKEND_TIMEOUT" default:"20s"`
	ProxyMode string        `envconfig:"BACKEND_PROXY_MODE" default:"auto"`
}

// CacheConfig configures the media blob cache.
// Backend is one of memory, file, redis, minio or postgres.
type CacheConfig struct {
	Backend     string        `envconfig:"CACHE_BACKEND" default:"file"`
	Dir         string        `envconfig:"CACHE_DIR" default:"/tmp/purestream/media"`
	MaxBytes    int64         `envconfig:"CACHE_MAX_BYTES" default:"209715200"`
	MaxEntries  int           `envconfig:"CACHE_MAX_ENTRIES" default:"0"`
	TTL         time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	EvictTarget float64       `envconfig:"CACHE_EVICT_TARGET" default:"0.8"`
	KeyMaxLen   int           `envconfig:"CACHE_KEY_MAX_LEN" default:"100"`
}

type PrefetchConfig struct {
	Mode           string        `envconfig:"PREFETCH_MODE" default:"local"`
	Lookahead      int           `envconfig:"PREFETCH_LOOKAHEAD" default:"3"`
	InitialBatch   int           `envconfig:"PREFETCH_INITIAL_BATCH" default:"3"`
	Timeout        time.Duration `envconfig:"PREFETCH_TIMEOUT" default:"30s"`
	RangeBytes     int64         `envconfig:"PREFETCH_RANGE_BYTES" default:"1048576"`
	MaxConcurrency int           `envconfig:"PREFETCH_MAX_CONCURRENCY" default:"0"`
}

// FeedConfig configures feed loading. RequestCache is memory or redis.
type FeedConfig struct {
	RequestCache        string        `envconfig:"FEED_REQUEST_CACHE" default:"memory"`
	RequestCacheTTL     time.Duration `envconfig:"FEED_REQUEST_CACHE_TTL" default:"60s"`
	SearchLimit         int           `envconfig:"FEED_SEARCH_LIMIT" default:"12"`
	UserVideosLimit     int           `envconfig:"FEED_USER_VIDEOS_LIMIT" default:"10"`
	SearchMinPage       int           `envconfig:"FEED_SEARCH_MIN_PAGE" default:"5"`
	PaginationThreshold float64       `envconfig:"FEED_PAGINATION_THRESHOLD" default:"0.6"`
	Following           []string      `envconfig:"FEED_FOLLOWING"`
}

type PlaybackConfig struct {
	TapWindow            time.Duration `envconfig:"PLAYBACK_TAP_WINDOW" default:"250ms"`
	StartMuted           bool          `envconfig:"PLAYBACK_START_MUTED" default:"true"`
	AutoplayRequiresMute bool          `envconfig:"PLAYBACK_AUTOPLAY_REQUIRES_MUTE" default:"true"`
}

type ViewerConfig struct {
	SwipeThreshold float64 `envconfig:"VIEWER_SWIPE_THRESHOLD" default:"50"`
}

type WorkerConfig struct {
	Concurrency     int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Addr returns the host:port address of the Redis server.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"purestream"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"purestream"`
	DBName   string `envconfig:"POSTGRES_DB" default:"purestream"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"purestream-media"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"purestream"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"purestream"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

var (
	cacheBackends = map[string]bool{"memory": true, "file": true, "redis": true, "minio": true, "postgres": true}
	feedCaches    = map[string]bool{"memory": true, "redis": true}
)

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !cacheBackends[c.Cache.Backend] {
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if !feedCaches[c.Feed.RequestCache] {
		return fmt.Errorf("unknown FEED_REQUEST_CACHE %q", c.Feed.RequestCache)
	}
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("CACHE_MAX_BYTES must be positive, got %d", c.Cache.MaxBytes)
	}
	if c.Prefetch.Lookahead < 1 {
		return fmt.Errorf("PREFETCH_LOOKAHEAD must be at least 1, got %d", c.Prefetch.Lookahead)
	}
	if c.Feed.PaginationThreshold <= 0 || c.Feed.PaginationThreshold > 1 {
		return fmt.Errorf("FEED_PAGINATION_THRESHOLD must be in (0, 1], got %v", c.Feed.PaginationThreshold)
	}
	return nil
}
