package repository

import (
	"context"

	"github.com/hszk-dev/purestream/internal/domain/model"
)

// FeedRequest describes a request to the primary feed endpoint.
type FeedRequest struct {
	// Fast asks for a small initial batch.
	Fast bool
	// Cursor continues a previous page when the backend supports it.
	Cursor string
	// SkipCache asks both the backend and any request cache for fresh content.
	SkipCache bool
}

// Kind returns the request cache kind for this request.
func (r FeedRequest) Kind() model.FeedKind {
	if r.Fast {
		return model.FeedKindFast
	}
	return model.FeedKindFull
}

// FeedBackend fetches video descriptors from the backend.
// Authentication is handled by the backend; unauthenticated calls return ErrUnauthenticated.
type FeedBackend interface {
	// Feed returns a batch of the primary (for-you) feed.
	Feed(ctx context.Context, req FeedRequest) ([]model.VideoDescriptor, error)

	// UserVideos returns up to limit recent videos of an author.
	UserVideos(ctx context.Context, username string, limit int) ([]model.VideoDescriptor, error)

	// Search returns one page of search results and the continuation cursor.
	Search(ctx context.Context, query string, limit int, cursor string) (*model.FeedPage, error)
}

// MediaFetcher resolves source locators and fetches media bytes.
type MediaFetcher interface {
	// SourceURL returns the URL a player should load for the given tier.
	// Returns "" when the tier is not available for the video.
	SourceURL(video model.VideoDescriptor, tier model.SourceTier) string

	// PrefetchURL returns the URL a prefetch task fetches its partial range from.
	PrefetchURL(video model.VideoDescriptor) string

	// FetchRange fetches at most n bytes from the start of the resource at url.
	FetchRange(ctx context.Context, url string, n int64) ([]byte, error)
}

// FollowingSource provides the list of followed authors.
// Managing the list is outside this module.
type FollowingSource interface {
	Following(ctx context.Context) ([]string, error)
}
