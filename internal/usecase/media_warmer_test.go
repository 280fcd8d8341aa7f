package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

func TestMediaWarmer_Warm(t *testing.T) {
	video := testVideos(1)[0]
	fetchErr := errors.New("connection reset")

	tests := []struct {
		name       string
		precached  bool
		fetchFn    func(ctx context.Context, url string, n int64) ([]byte, error)
		wantErr    error
		wantFetch  int
		wantCached bool
	}{
		{
			name:       "fetches and stores on miss",
			wantFetch:  1,
			wantCached: true,
		},
		{
			name:       "skips fetch when cached",
			precached:  true,
			wantFetch:  0,
			wantCached: true,
		},
		{
			name: "fetch error is returned",
			fetchFn: func(context.Context, string, int64) ([]byte, error) {
				return nil, fetchErr
			},
			wantErr:   fetchErr,
			wantFetch: 1,
		},
		{
			name: "empty body is an error",
			fetchFn: func(context.Context, string, int64) ([]byte, error) {
				return nil, nil
			},
			wantErr:   ErrEmptyMedia,
			wantFetch: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := newMediaCache(newMockBlobStore(), DefaultMediaCacheConfig(), time.Now)
			if tt.precached {
				cache.Put(ctx, video.URL, []byte("cached"))
			}
			fetcher := &mockMediaFetcher{fetchRangeFn: tt.fetchFn}
			warmer := NewMediaWarmer(cache, fetcher)

			task := newPrefetchTask(video, fetcher.PrefetchURL(video), 1024, time.Now().Add(time.Minute))
			err := warmer.Warm(ctx, task)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Warm() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Warm() unexpected error: %v", err)
			}

			if got := len(fetcher.fetchedURLs()); got != tt.wantFetch {
				t.Errorf("fetches = %d, want %d", got, tt.wantFetch)
			}
			if got := cache.Contains(ctx, video.URL); got != tt.wantCached {
				t.Errorf("Contains() = %v, want %v", got, tt.wantCached)
			}
		})
	}
}

func TestNewPrefetchTask(t *testing.T) {
	deadline := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)

	t.Run("locator prefers primary url", func(t *testing.T) {
		v := model.VideoDescriptor{ID: "a", URL: "https://x/video/1", CDNURL: "https://cdn/1.mp4"}
		task := newPrefetchTask(v, "thin:https://cdn/1.mp4", 512, deadline)

		if task.Locator != v.URL {
			t.Errorf("Locator = %q, want %q", task.Locator, v.URL)
		}
		if task.FetchURL != "thin:https://cdn/1.mp4" {
			t.Errorf("FetchURL = %q", task.FetchURL)
		}
		if task.MessageID == "" {
			t.Error("MessageID is empty")
		}
		if task.State != model.PrefetchQueued {
			t.Errorf("State = %q, want %q", task.State, model.PrefetchQueued)
		}
		if !task.Deadline.Equal(deadline) || task.RangeBytes != 512 {
			t.Errorf("Deadline/RangeBytes = %v/%d", task.Deadline, task.RangeBytes)
		}
	})

	t.Run("locator falls back to cdn url", func(t *testing.T) {
		v := model.VideoDescriptor{ID: "b", CDNURL: "https://cdn/2.mp4"}
		task := newPrefetchTask(v, "thin:https://cdn/2.mp4", 512, deadline)
		if task.Locator != v.CDNURL {
			t.Errorf("Locator = %q, want %q", task.Locator, v.CDNURL)
		}
	})
}
