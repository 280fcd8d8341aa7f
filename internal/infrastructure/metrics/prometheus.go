// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "purestream"

var (
	// CacheOperationsTotal tracks cache operations.
	// Labels:
	//   - operation: get, set, delete, evict
	//   - status: hit, miss, success, error
	//   - cache_type: media, feed
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// MediaCacheBytes is the payload size of the media cache after the last write or eviction.
	MediaCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "media_cache_bytes",
			Help:      "Total payload bytes held by the media cache",
		},
	)

	// MediaCacheEvictionsTotal tracks entries removed from the media cache.
	// Labels:
	//   - reason: expired, budget, clear
	MediaCacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_cache_evictions_total",
			Help:      "Total number of media cache entries evicted",
		},
		[]string{"reason"},
	)

	// PrefetchTasksTotal tracks prefetch scheduling outcomes.
	// Labels:
	//   - mode: local, queue
	//   - result: started, cached, in_flight, saturated, completed, failed
	PrefetchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_tasks_total",
			Help:      "Total number of prefetch scheduling decisions",
		},
		[]string{"mode", "result"},
	)

	// PrefetchInFlight is the number of prefetch tasks currently in flight.
	PrefetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prefetch_in_flight",
			Help:      "Number of prefetch tasks currently in flight",
		},
	)

	// BackendRequestsTotal tracks calls to the feed backend.
	// Labels:
	//   - endpoint: feed, user_videos, search, media
	//   - status: success, unauthenticated, error
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"endpoint", "status"},
	)

	// PlaybackSourcesTotal tracks which source a playback ended up using.
	// Labels:
	//   - tier: thin, primary
	//   - origin: cache, network
	PlaybackSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_sources_total",
			Help:      "Total number of playback sources applied",
		},
		[]string{"tier", "origin"},
	)

	// PlaybackFallbacksTotal tracks thin-tier failures that fell back to the primary tier.
	PlaybackFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_fallbacks_total",
			Help:      "Total number of fallbacks from the thin tier to the primary tier",
		},
	)

	// PlaybackErrorsTotal tracks videos that reached the terminal errored state.
	PlaybackErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Total number of terminal playback errors",
		},
		[]string{"tier"},
	)

	// HTTPRequestsTotal tracks requests served by the local API.
	// Labels:
	//   - method: HTTP method
	//   - route: chi route pattern
	//   - status: response status class (2xx, 4xx, 5xx)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks local API latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests served",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
	CacheOpEvict  = "evict"
)

// Cache type constants.
const (
	CacheTypeMedia = "media"
	CacheTypeFeed  = "feed"
)

// Eviction reason constants.
const (
	EvictExpired = "expired"
	EvictBudget  = "budget"
	EvictClear   = "clear"
)

// Prefetch result constants.
const (
	PrefetchStarted   = "started"
	PrefetchCached    = "cached"
	PrefetchSkipped   = "in_flight"
	PrefetchSaturated = "saturated"
	PrefetchCompleted = "completed"
	PrefetchFailed    = "failed"
)

// Backend endpoint constants.
const (
	EndpointFeed       = "feed"
	EndpointUserVideos = "user_videos"
	EndpointSearch     = "search"
	EndpointMedia      = "media"
)

// Backend status constants.
const (
	BackendSuccess         = "success"
	BackendUnauthenticated = "unauthenticated"
	BackendError           = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Playback source origin constants.
const (
	OriginCache   = "cache"
	OriginNetwork = "network"
)
