package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// Merge returns the items of page whose identifier is not in seen, in page order
// and without duplicates. seen is updated with every returned identifier.
func Merge(seen map[string]struct{}, page []model.VideoDescriptor) []model.VideoDescriptor {
	fresh := lo.Filter(page, func(v model.VideoDescriptor, _ int) bool {
		_, ok := seen[v.ID]
		return !ok
	})
	fresh = lo.UniqBy(fresh, func(v model.VideoDescriptor) string { return v.ID })
	for _, v := range fresh {
		seen[v.ID] = struct{}{}
	}
	return fresh
}

// SeenSet builds an identifier set from a list.
func SeenSet(videos []model.VideoDescriptor) map[string]struct{} {
	seen := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		seen[v.ID] = struct{}{}
	}
	return seen
}

// ErrNoFollowing is returned when a following feed is requested for an empty follow list.
var ErrNoFollowing = errors.New("no followed accounts")

// FeedLoader fetches descriptor batches from the backend.
type FeedLoader interface {
	// LoadInitial performs the fast then full load. onProgress receives the fast
	// batch as soon as it arrives. The returned list is the deduplicated union.
	LoadInitial(ctx context.Context, onProgress func([]model.VideoDescriptor)) ([]model.VideoDescriptor, error)

	// LoadMore fetches a fresh batch bypassing every cache and returns the items
	// whose identifier is not in exclude.
	LoadMore(ctx context.Context, exclude map[string]struct{}) ([]model.VideoDescriptor, error)

	// Search returns one page of results for query continuing from cursor.
	Search(ctx context.Context, query, cursor string) (*model.FeedPage, error)

	// LoadFollowing fetches recent videos of each author and merges them in follow order.
	LoadFollowing(ctx context.Context, usernames []string) ([]model.VideoDescriptor, error)
}

// FeedLoaderConfig holds configuration for FeedLoader.
type FeedLoaderConfig struct {
	SearchLimit     int
	UserVideosLimit int
	// SearchMinPage is the page size under which search results are considered exhausted.
	SearchMinPage int
}

// DefaultFeedLoaderConfig returns the default configuration.
func DefaultFeedLoaderConfig() FeedLoaderConfig {
	return FeedLoaderConfig{
		SearchLimit:     12,
		UserVideosLimit: 10,
		SearchMinPage:   5,
	}
}

type feedLoader struct {
	backend repository.FeedBackend
	cfg     FeedLoaderConfig
}

// NewFeedLoader creates a FeedLoader. backend is usually wrapped with NewCachedFeedBackend.
func NewFeedLoader(backend repository.FeedBackend, cfg FeedLoaderConfig) FeedLoader {
	return &feedLoader{
		backend: backend,
		cfg:     cfg,
	}
}

// LoadInitial requests the fast batch, reports it through onProgress, then merges
// the full batch behind it. Either batch alone is enough to succeed.
func (l *feedLoader) LoadInitial(ctx context.Context, onProgress func([]model.VideoDescriptor)) ([]model.VideoDescriptor, error) {
	seen := make(map[string]struct{})
	var list []model.VideoDescriptor

	fast, fastErr := l.backend.Feed(ctx, repository.FeedRequest{Fast: true})
	if fastErr != nil {
		slog.Warn("fast feed load failed, waiting for full load",
			"error", fastErr,
		)
	} else {
		list = Merge(seen, fast)
		if onProgress != nil {
			onProgress(list)
		}
	}

	full, err := l.backend.Feed(ctx, repository.FeedRequest{})
	if err != nil {
		if fastErr != nil {
			return nil, fmt.Errorf("load feed: %w", err)
		}
		slog.Warn("full feed load failed, keeping fast batch",
			"error", err,
		)
		return list, nil
	}

	return append(list, Merge(seen, full)...), nil
}

// LoadMore bypasses the request cache and drops videos already in exclude.
func (l *feedLoader) LoadMore(ctx context.Context, exclude map[string]struct{}) ([]model.VideoDescriptor, error) {
	videos, err := l.backend.Feed(ctx, repository.FeedRequest{SkipCache: true})
	if err != nil {
		return nil, fmt.Errorf("load more: %w", err)
	}

	seen := make(map[string]struct{}, len(exclude))
	for id := range exclude {
		seen[id] = struct{}{}
	}
	return Merge(seen, videos), nil
}

// Search fetches one page of results for query starting at cursor.
func (l *feedLoader) Search(ctx context.Context, query, cursor string) (*model.FeedPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, model.ErrEmptyQuery
	}

	page, err := l.backend.Search(ctx, query, l.cfg.SearchLimit, cursor)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	return &model.FeedPage{
		Items:   Merge(make(map[string]struct{}), page.Items),
		Cursor:  page.Cursor,
		HasMore: page.HasMore && len(page.Items) >= l.cfg.SearchMinPage,
	}, nil
}

// LoadFollowing loads every author concurrently and merges their videos.
// It fails only when every author fails.
func (l *feedLoader) LoadFollowing(ctx context.Context, usernames []string) ([]model.VideoDescriptor, error) {
	usernames = lo.Uniq(lo.Compact(usernames))
	if len(usernames) == 0 {
		return nil, ErrNoFollowing
	}

	results := make([][]model.VideoDescriptor, len(usernames))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	for i, name := range usernames {
		g.Go(func() error {
			videos, err := l.backend.UserVideos(ctx, name, l.cfg.UserVideosLimit)
			if err != nil {
				slog.Warn("failed to load followed author",
					"username", name,
					"error", err,
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = videos
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == len(usernames) {
		return nil, fmt.Errorf("load following: %w", errors.Join(errs...))
	}

	seen := make(map[string]struct{})
	var list []model.VideoDescriptor
	for _, videos := range results {
		list = append(list, Merge(seen, videos)...)
	}
	return list, nil
}
