package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// ErrEmptyMedia is returned when a source answers with no bytes.
var ErrEmptyMedia = errors.New("media source returned no data")

// sourceLocator is the locator a video's cache entry is keyed by.
func sourceLocator(v model.VideoDescriptor) string {
	if v.URL != "" {
		return v.URL
	}
	return v.CDNURL
}

// newPrefetchTask builds a queued task for a video.
func newPrefetchTask(v model.VideoDescriptor, fetchURL string, rangeBytes int64, deadline time.Time) model.PrefetchTask {
	return model.PrefetchTask{
		MessageID:  uuid.NewString(),
		VideoID:    v.ID,
		Locator:    sourceLocator(v),
		FetchURL:   fetchURL,
		RangeBytes: rangeBytes,
		State:      model.PrefetchQueued,
		Deadline:   deadline,
	}
}

// MediaWarmer performs the fetch-and-store step of a prefetch task.
// It is shared by the local scheduler and the remote worker.
type MediaWarmer interface {
	// Warm fetches the task's partial range unless the cache already has it.
	Warm(ctx context.Context, task model.PrefetchTask) error
}

type mediaWarmer struct {
	cache   MediaCache
	fetcher repository.MediaFetcher
}

// NewMediaWarmer creates a MediaWarmer writing into cache.
func NewMediaWarmer(cache MediaCache, fetcher repository.MediaFetcher) MediaWarmer {
	return &mediaWarmer{
		cache:   cache,
		fetcher: fetcher,
	}
}

// Warm fetches the task range and stores it. Videos already cached are skipped.
func (w *mediaWarmer) Warm(ctx context.Context, task model.PrefetchTask) error {
	if w.cache.Contains(ctx, task.Locator) {
		return nil
	}

	data, err := w.fetcher.FetchRange(ctx, task.FetchURL, task.RangeBytes)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", task.VideoID, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("fetch %s: %w", task.VideoID, ErrEmptyMedia)
	}

	w.cache.Put(ctx, task.Locator, data)
	return nil
}
