package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hszk-dev/purestream/internal/config"
	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/infrastructure/backend"
	"github.com/hszk-dev/purestream/internal/infrastructure/blobstore"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
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

	if !blobstore.IsShared(cfg.Cache.Backend) {
		return fmt.Errorf("CACHE_BACKEND %q is process local; the worker needs a shared backend", cfg.Cache.Backend)
	}

	proxyMode, err := backend.ParseProxyMode(cfg.Backend.ProxyMode)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_PROXY_MODE: %w", err)
	}
	backendClient, err := backend.NewClient(backend.ClientConfig{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		ProxyMode: proxyMode,
	})
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	blobStore, closeStore, err := blobstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s blob store: %w", cfg.Cache.Backend, err)
	}
	defer closeStore()
	logger.Info("media cache ready", slog.String("backend", cfg.Cache.Backend))

	queueConfig := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueConfig.Prefetch = max(cfg.Worker.Concurrency, 1)
	queueClient, err := queue.NewClient(ctx, queueConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	mediaCache := usecase.NewMediaCache(blobStore, usecase.MediaCacheConfig{
		MaxBytes:    cfg.Cache.MaxBytes,
		MaxEntries:  cfg.Cache.MaxEntries,
		TTL:         cfg.Cache.TTL,
		EvictTarget: cfg.Cache.EvictTarget,
		KeyMaxLen:   cfg.Cache.KeyMaxLen,
	})
	warmer := usecase.NewMediaWarmer(mediaCache, backendClient)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	handle := func(task model.PrefetchTask) error {
		wg.Add(1)
		defer wg.Done()

		deadline := task.Deadline
		if deadline.IsZero() {
			deadline = time.Now().Add(cfg.Prefetch.Timeout)
		}
		taskCtx, taskCancel := context.WithDeadline(context.WithoutCancel(ctx), deadline)
		defer taskCancel()

		if err := warmer.Warm(taskCtx, task); err != nil {
			metrics.PrefetchTasksTotal.WithLabelValues(string(usecase.PrefetchQueue), metrics.PrefetchFailed).Inc()
			return err
		}

		metrics.PrefetchTasksTotal.WithLabelValues(string(usecase.PrefetchQueue), metrics.PrefetchCompleted).Inc()
		logger.Debug("prefetch task completed",
			slog.String("video_id", task.VideoID),
			slog.String("message_id", task.MessageID),
		)
		return nil
	}

	consumers := max(cfg.Worker.Concurrency, 1)
	errCh := make(chan error, consumers)
	logger.Info("starting worker, consuming prefetch tasks", slog.Int("consumers", consumers))
	for range consumers {
		go func() {
			if err := queueClient.ConsumePrefetchTasks(ctx, handle); err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("consumer error: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel the main context to stop consuming new messages
	cancel()

	// Wait for in-flight tasks to complete (or timeout)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
