package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/purestream/internal/api/handler"
	"github.com/hszk-dev/purestream/internal/api/middleware"
	"github.com/hszk-dev/purestream/internal/config"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/backend"
	"github.com/hszk-dev/purestream/internal/infrastructure/blobstore"
	"github.com/hszk-dev/purestream/internal/infrastructure/cache"
	"github.com/hszk-dev/purestream/internal/infrastructure/mediahost"
	"github.com/hszk-dev/purestream/internal/infrastructure/queue"
	"github.com/hszk-dev/purestream/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	proxyMode, err := backend.ParseProxyMode(cfg.Backend.ProxyMode)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_PROXY_MODE: %w", err)
	}
	prefetchMode, err := usecase.ParsePrefetchMode(cfg.Prefetch.Mode)
	if err != nil {
		return fmt.Errorf("invalid PREFETCH_MODE: %w", err)
	}

	backendClient, err := backend.NewClient(backend.ClientConfig{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		ProxyMode: proxyMode,
	})
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	// Media cache
	blobStore, closeStore, err := blobstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s blob store: %w", cfg.Cache.Backend, err)
	}
	defer closeStore()
	logger.Info("media cache ready", slog.String("backend", cfg.Cache.Backend))

	mediaCache := usecase.NewMediaCache(blobStore, usecase.MediaCacheConfig{
		MaxBytes:    cfg.Cache.MaxBytes,
		MaxEntries:  cfg.Cache.MaxEntries,
		TTL:         cfg.Cache.TTL,
		EvictTarget: cfg.Cache.EvictTarget,
		KeyMaxLen:   cfg.Cache.KeyMaxLen,
	})
	if purged := mediaCache.PurgeExpired(ctx); purged > 0 {
		logger.Info("purged expired media cache entries", slog.Int("count", purged))
	}

	// Feed request cache
	feedCache, closeFeedCache, err := newFeedCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFeedCache()

	// Prefetch dispatch
	var prefetchQueue repository.PrefetchQueue
	if prefetchMode == usecase.PrefetchQueue {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		logger.Info("connected to RabbitMQ")
		prefetchQueue = queueClient
	}

	warmer := usecase.NewMediaWarmer(mediaCache, backendClient)
	scheduler := usecase.NewPrefetchScheduler(mediaCache, warmer, backendClient, prefetchQueue, usecase.PrefetchSchedulerConfig{
		Mode:           prefetchMode,
		Lookahead:      cfg.Prefetch.Lookahead,
		InitialBatch:   cfg.Prefetch.InitialBatch,
		Timeout:        cfg.Prefetch.Timeout,
		RangeBytes:     cfg.Prefetch.RangeBytes,
		MaxConcurrency: cfg.Prefetch.MaxConcurrency,
	})

	loader := usecase.NewFeedLoader(
		usecase.NewCachedFeedBackend(backendClient, feedCache, cfg.Feed.RequestCacheTTL),
		usecase.FeedLoaderConfig{
			SearchLimit:     cfg.Feed.SearchLimit,
			UserVideosLimit: cfg.Feed.UserVideosLimit,
			SearchMinPage:   cfg.Feed.SearchMinPage,
		},
	)

	// Playback
	host := mediahost.NewMirror(cfg.Playback.AutoplayRequiresMute)
	playback := usecase.NewPlaybackController(host, backendClient, mediaCache, scheduler, usecase.PlaybackControllerConfig{
		TapWindow:  cfg.Playback.TapWindow,
		StartMuted: cfg.Playback.StartMuted,
	})
	outcomes := handler.NewOutcomeLog(handler.DefaultOutcomeLogSize)
	unsubscribe := playback.Subscribe(outcomes.Record)
	defer unsubscribe()

	tabs := usecase.NewTabController(loader, scheduler, playback, backend.StaticFollowing(cfg.Feed.Following), usecase.TabControllerConfig{
		PaginationThreshold: cfg.Feed.PaginationThreshold,
		SwipeThreshold:      cfg.Viewer.SwipeThreshold,
	})
	defer tabs.Close()

	r := setupRouter(logger, routes{
		health:   handler.NewHealthHandler(tabs, scheduler),
		feed:     handler.NewFeedHandler(tabs),
		playback: handler.NewPlaybackHandler(playback, host, outcomes),
		cache:    handler.NewCacheHandler(mediaCache),
		gestures: host,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.Int("port", cfg.Server.Port),
			slog.String("prefetch_mode", string(prefetchMode)),
			slog.String("proxy_mode", string(proxyMode)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// Let background loads and local prefetch tasks settle before the stores close.
	done := make(chan struct{})
	go func() {
		tabs.Wait()
		scheduler.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("background work settled")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, abandoning background work")
	}

	logger.Info("server stopped")
	return nil
}

func newFeedCache(ctx context.Context, cfg *config.Config) (cache.FeedCache, func(), error) {
	if cfg.Feed.RequestCache != "redis" {
		return cache.NewMemoryFeedCache(), func() {}, nil
	}
	client, err := blobstore.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return cache.NewRedisFeedCache(client), func() { _ = client.Close() }, nil
}

type routes struct {
	health   *handler.HealthHandler
	feed     *handler.FeedHandler
	playback *handler.PlaybackHandler
	cache    *handler.CacheHandler
	gestures middleware.GestureRecorder
}

func setupRouter(logger *slog.Logger, h routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", h.health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/feed/load", h.feed.Load)
		r.Get("/tabs/{tab}", h.feed.Get)
		r.Post("/tabs/{tab}/more", h.feed.LoadMore)
		r.Post("/search", h.feed.Search)
		r.Delete("/banner", h.feed.DismissBanner)

		r.Get("/playback", h.playback.Get)
		r.Post("/playback/events", h.playback.Event)
		r.Get("/playback/host/{id}", h.playback.Host)
		r.Get("/playback/outcomes", h.playback.Outcomes)

		r.Get("/cache/stats", h.cache.Stats)
		r.Delete("/cache", h.cache.Clear)

		// User interaction
		r.Group(func(r chi.Router) {
			r.Use(middleware.UserGesture(h.gestures))

			r.Post("/tabs/switch", h.feed.Switch)
			r.Post("/scroll", h.feed.Scroll)
			r.Post("/gestures/swipe", h.feed.Swipe)
			r.Post("/keys", h.feed.Key)
			r.Post("/playback/tap", h.playback.Tap)
			r.Post("/playback/toggle", h.playback.Toggle)
			r.Post("/playback/seek", h.playback.Seek)
			r.Post("/playback/mute", h.playback.Mute)
		})
	})

	return r
}
