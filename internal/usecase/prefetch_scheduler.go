package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
)

// PrefetchMode selects where prefetch tasks run.
type PrefetchMode string

const (
	// PrefetchLocal runs tasks in goroutines of this process.
	PrefetchLocal PrefetchMode = "local"
	// PrefetchQueue publishes tasks for remote workers.
	PrefetchQueue PrefetchMode = "queue"
)

// ParsePrefetchMode validates a prefetch mode string.
func ParsePrefetchMode(s string) (PrefetchMode, error) {
	switch m := PrefetchMode(strings.ToLower(s)); m {
	case PrefetchLocal, PrefetchQueue:
		return m, nil
	case "":
		return PrefetchLocal, nil
	default:
		return "", fmt.Errorf("unknown prefetch mode %q", s)
	}
}

// PrefetchScheduler warms the media cache ahead of playback.
// At most one task per video identifier is outstanding at a time.
type PrefetchScheduler interface {
	// PrefetchWindow enqueues the videos after activeIndex inside the lookahead window
	// that are playable and neither cached nor in flight. Returns how many were enqueued.
	PrefetchWindow(ctx context.Context, list []model.VideoDescriptor, activeIndex int) int

	// PrefetchInitialBatch warms the first count videos in parallel and returns once all settled.
	// A count of zero or less uses the configured initial batch size.
	PrefetchInitialBatch(ctx context.Context, list []model.VideoDescriptor, count int)

	// PrefetchVideo enqueues a single video. Returns false when it was cached, in flight or unplayable.
	PrefetchVideo(ctx context.Context, video model.VideoDescriptor) bool

	// QueueDepth returns the number of tasks in flight.
	QueueDepth() int

	// Wait blocks until every locally running task has settled.
	Wait()
}

// PrefetchSchedulerConfig holds configuration for PrefetchScheduler.
type PrefetchSchedulerConfig struct {
	Mode PrefetchMode
	// Lookahead bounds the window: indices in (active, active+Lookahead) are considered.
	Lookahead int
	// InitialBatch is the number of videos warmed after a fresh feed load.
	InitialBatch int
	// Timeout bounds each task.
	Timeout time.Duration
	// RangeBytes is the prefix length fetched per video.
	RangeBytes int64
	// MaxConcurrency caps concurrently running local tasks. Zero means unbounded.
	MaxConcurrency int
}

// DefaultPrefetchSchedulerConfig returns the default configuration.
func DefaultPrefetchSchedulerConfig() PrefetchSchedulerConfig {
	return PrefetchSchedulerConfig{
		Mode:         PrefetchLocal,
		Lookahead:    3,
		InitialBatch: 3,
		Timeout:      30 * time.Second,
		RangeBytes:   1024 * 1024,
	}
}

type prefetchScheduler struct {
	cache   MediaCache
	warmer  MediaWarmer
	fetcher repository.MediaFetcher
	queue   repository.PrefetchQueue
	cfg     PrefetchSchedulerConfig
	now     func() time.Time

	mu sync.Mutex
	// inFlight maps a video id to the deadline of its outstanding task.
	inFlight map[string]time.Time

	tasks errgroup.Group
}

// NewPrefetchScheduler creates a PrefetchScheduler.
// queue may be nil in local mode.
func NewPrefetchScheduler(
	cache MediaCache,
	warmer MediaWarmer,
	fetcher repository.MediaFetcher,
	queue repository.PrefetchQueue,
	cfg PrefetchSchedulerConfig,
) PrefetchScheduler {
	return newPrefetchScheduler(cache, warmer, fetcher, queue, cfg, time.Now)
}

func newPrefetchScheduler(
	cache MediaCache,
	warmer MediaWarmer,
	fetcher repository.MediaFetcher,
	queue repository.PrefetchQueue,
	cfg PrefetchSchedulerConfig,
	now func() time.Time,
) *prefetchScheduler {
	if cfg.Mode == "" || (cfg.Mode == PrefetchQueue && queue == nil) {
		cfg.Mode = PrefetchLocal
	}
	s := &prefetchScheduler{
		cache:    cache,
		warmer:   warmer,
		fetcher:  fetcher,
		queue:    queue,
		cfg:      cfg,
		now:      now,
		inFlight: make(map[string]time.Time),
	}
	if cfg.MaxConcurrency > 0 {
		s.tasks.SetLimit(cfg.MaxConcurrency)
	}
	return s
}

// PrefetchWindow schedules the lookahead after activeIndex and returns how many tasks were started.
func (s *prefetchScheduler) PrefetchWindow(ctx context.Context, list []model.VideoDescriptor, activeIndex int) int {
	enqueued := 0
	for i := activeIndex + 1; i < activeIndex+s.cfg.Lookahead && i < len(list); i++ {
		if i < 0 {
			continue
		}
		task, ok := s.claim(ctx, list[i])
		if !ok {
			continue
		}
		if s.dispatch(ctx, task) {
			enqueued++
		}
	}
	return enqueued
}

// PrefetchVideo schedules a single video unless it is cached or already in flight.
func (s *prefetchScheduler) PrefetchVideo(ctx context.Context, video model.VideoDescriptor) bool {
	task, ok := s.claim(ctx, video)
	if !ok {
		return false
	}
	return s.dispatch(ctx, task)
}

// PrefetchInitialBatch warms the first videos of a freshly loaded list in parallel.
func (s *prefetchScheduler) PrefetchInitialBatch(ctx context.Context, list []model.VideoDescriptor, count int) {
	if count <= 0 {
		count = s.cfg.InitialBatch
	}
	count = min(count, len(list))

	var g errgroup.Group
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}

	for _, v := range list[:count] {
		task, ok := s.claim(ctx, v)
		if !ok {
			continue
		}
		if s.cfg.Mode == PrefetchQueue {
			s.dispatch(ctx, task)
			continue
		}
		metrics.PrefetchTasksTotal.WithLabelValues(string(s.cfg.Mode), metrics.PrefetchStarted).Inc()
		g.Go(func() error {
			s.run(ctx, task)
			return nil
		})
	}

	_ = g.Wait()
}

// QueueDepth returns the number of videos currently in flight.
func (s *prefetchScheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	return len(s.inFlight)
}

// Wait blocks until local prefetch goroutines finish.
func (s *prefetchScheduler) Wait() {
	_ = s.tasks.Wait()
}

// claim reserves the video's in-flight slot and returns its task.
// It reports false for unplayable, in-flight or cached videos.
func (s *prefetchScheduler) claim(ctx context.Context, v model.VideoDescriptor) (model.PrefetchTask, bool) {
	if !v.HasPlayableSource() {
		return model.PrefetchTask{}, false
	}

	if !s.reserve(v.ID) {
		metrics.PrefetchTasksTotal.WithLabelValues(string(s.cfg.Mode), metrics.PrefetchSkipped).Inc()
		// Queue mode holds the slot until the deadline unless a worker already delivered the blob.
		if s.cfg.Mode == PrefetchQueue && s.cache.Contains(ctx, sourceLocator(v)) {
			s.release(v.ID)
		}
		return model.PrefetchTask{}, false
	}

	if s.cache.Contains(ctx, sourceLocator(v)) {
		s.release(v.ID)
		metrics.PrefetchTasksTotal.WithLabelValues(string(s.cfg.Mode), metrics.PrefetchCached).Inc()
		return model.PrefetchTask{}, false
	}

	return newPrefetchTask(v, s.fetcher.PrefetchURL(v), s.cfg.RangeBytes, s.now().Add(s.cfg.Timeout)), true
}

// dispatch starts a claimed task. Returns false if it could not be started.
func (s *prefetchScheduler) dispatch(ctx context.Context, task model.PrefetchTask) bool {
	mode := string(s.cfg.Mode)

	if s.cfg.Mode == PrefetchQueue {
		task.State = model.PrefetchInFlight
		if err := s.queue.PublishPrefetchTask(ctx, task); err != nil {
			s.release(task.VideoID)
			metrics.PrefetchTasksTotal.WithLabelValues(mode, metrics.PrefetchFailed).Inc()
			slog.Warn("failed to publish prefetch task",
				"video_id", task.VideoID,
				"error", err,
			)
			return false
		}
		metrics.PrefetchTasksTotal.WithLabelValues(mode, metrics.PrefetchStarted).Inc()
		return true
	}

	started := s.tasks.TryGo(func() error {
		s.run(ctx, task)
		return nil
	})
	if !started {
		s.release(task.VideoID)
		metrics.PrefetchTasksTotal.WithLabelValues(mode, metrics.PrefetchSaturated).Inc()
		return false
	}
	metrics.PrefetchTasksTotal.WithLabelValues(mode, metrics.PrefetchStarted).Inc()
	return true
}

// run executes a local task. Tasks outlive the request that scheduled them
// and are bounded only by their own timeout.
func (s *prefetchScheduler) run(ctx context.Context, task model.PrefetchTask) {
	defer s.release(task.VideoID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	if err := s.warmer.Warm(ctx, task); err != nil {
		metrics.PrefetchTasksTotal.WithLabelValues(string(s.cfg.Mode), metrics.PrefetchFailed).Inc()
		slog.Debug("prefetch task dropped",
			"video_id", task.VideoID,
			"error", err,
		)
		return
	}
	metrics.PrefetchTasksTotal.WithLabelValues(string(s.cfg.Mode), metrics.PrefetchCompleted).Inc()
}

func (s *prefetchScheduler) reserve(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	if _, ok := s.inFlight[id]; ok {
		return false
	}
	s.inFlight[id] = s.now().Add(s.cfg.Timeout)
	metrics.PrefetchInFlight.Set(float64(len(s.inFlight)))
	return true
}

func (s *prefetchScheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, id)
	metrics.PrefetchInFlight.Set(float64(len(s.inFlight)))
}

// reapLocked drops queue-mode slots whose deadline has passed.
// Local slots are released by their task.
func (s *prefetchScheduler) reapLocked() {
	if s.cfg.Mode != PrefetchQueue {
		return
	}
	now := s.now()
	for id, deadline := range s.inFlight {
		if now.After(deadline) {
			delete(s.inFlight, id)
		}
	}
	metrics.PrefetchInFlight.Set(float64(len(s.inFlight)))
}
