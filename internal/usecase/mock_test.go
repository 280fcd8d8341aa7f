package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// mockBlobStore provides a configurable mock for BlobStore backed by a map.
type mockBlobStore struct {
	mu       sync.Mutex
	data     map[string]*model.CacheEntry
	getFn    func(ctx context.Context, key string) (*model.CacheEntry, error)
	statFn   func(ctx context.Context, key string) (model.CacheEntryInfo, error)
	putFn    func(ctx context.Context, entry *model.CacheEntry) error
	deleteFn func(ctx context.Context, key string) error
	listFn   func(ctx context.Context) ([]model.CacheEntryInfo, error)

	getCount atomic.Int32
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{data: make(map[string]*model.CacheEntry)}
}

func (m *mockBlobStore) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	m.getCount.Add(1)
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[key]
	if !ok {
		return nil, repository.ErrBlobNotFound
	}
	return entry, nil
}

func (m *mockBlobStore) Stat(ctx context.Context, key string) (model.CacheEntryInfo, error) {
	if m.statFn != nil {
		return m.statFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[key]
	if !ok {
		return model.CacheEntryInfo{}, repository.ErrBlobNotFound
	}
	return entry.Info(), nil
}

func (m *mockBlobStore) Put(ctx context.Context, entry *model.CacheEntry) error {
	if m.putFn != nil {
		return m.putFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[entry.Key] = entry
	return nil
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockBlobStore) List(ctx context.Context) ([]model.CacheEntryInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]model.CacheEntryInfo, 0, len(m.data))
	for _, e := range m.data {
		infos = append(infos, e.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (m *mockBlobStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mockFeedBackend provides a configurable mock for FeedBackend.
type mockFeedBackend struct {
	feedFn       func(ctx context.Context, req repository.FeedRequest) ([]model.VideoDescriptor, error)
	userVideosFn func(ctx context.Context, username string, limit int) ([]model.VideoDescriptor, error)
	searchFn     func(ctx context.Context, query string, limit int, cursor string) (*model.FeedPage, error)

	feedCount   atomic.Int32
	userCount   atomic.Int32
	searchCount atomic.Int32
}

func (m *mockFeedBackend) Feed(ctx context.Context, req repository.FeedRequest) ([]model.VideoDescriptor, error) {
	m.feedCount.Add(1)
	if m.feedFn != nil {
		return m.feedFn(ctx, req)
	}
	return nil, nil
}

func (m *mockFeedBackend) UserVideos(ctx context.Context, username string, limit int) ([]model.VideoDescriptor, error) {
	m.userCount.Add(1)
	if m.userVideosFn != nil {
		return m.userVideosFn(ctx, username, limit)
	}
	return nil, nil
}

func (m *mockFeedBackend) Search(ctx context.Context, query string, limit int, cursor string) (*model.FeedPage, error) {
	m.searchCount.Add(1)
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit, cursor)
	}
	return &model.FeedPage{}, nil
}

// mockMediaFetcher provides a configurable mock for MediaFetcher.
// By default thin URLs are "thin:<cdn_url>" and primary URLs are "primary:<url>".
type mockMediaFetcher struct {
	sourceURLFn  func(video model.VideoDescriptor, tier model.SourceTier) string
	fetchRangeFn func(ctx context.Context, url string, n int64) ([]byte, error)

	mu      sync.Mutex
	fetched []string
}

func (m *mockMediaFetcher) SourceURL(video model.VideoDescriptor, tier model.SourceTier) string {
	if m.sourceURLFn != nil {
		return m.sourceURLFn(video, tier)
	}
	switch {
	case tier == model.TierThin && video.CDNURL != "":
		return "thin:" + video.CDNURL
	case tier == model.TierPrimary && video.URL != "":
		return "primary:" + video.URL
	}
	return ""
}

func (m *mockMediaFetcher) PrefetchURL(video model.VideoDescriptor) string {
	if url := m.SourceURL(video, model.TierThin); url != "" {
		return url
	}
	return m.SourceURL(video, model.TierPrimary)
}

func (m *mockMediaFetcher) FetchRange(ctx context.Context, url string, n int64) ([]byte, error) {
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	m.mu.Unlock()
	if m.fetchRangeFn != nil {
		return m.fetchRangeFn(ctx, url, n)
	}
	return []byte("data:" + url), nil
}

func (m *mockMediaFetcher) fetchedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

// hostCall records one MediaHost command.
type hostCall struct {
	op      string
	videoID string
	source  model.MediaSource
	pos     time.Duration
	muted   bool
}

// mockMediaHost records commands and lets tests script Play.
type mockMediaHost struct {
	mu     sync.Mutex
	calls  []hostCall
	loadFn func(ctx context.Context, videoID string, src model.MediaSource) error
	playFn func(ctx context.Context, videoID string) error
}

func (m *mockMediaHost) record(c hostCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockMediaHost) Load(ctx context.Context, videoID string, src model.MediaSource) error {
	m.record(hostCall{op: "load", videoID: videoID, source: src})
	if m.loadFn != nil {
		return m.loadFn(ctx, videoID, src)
	}
	return nil
}

func (m *mockMediaHost) Play(ctx context.Context, videoID string) error {
	m.record(hostCall{op: "play", videoID: videoID})
	if m.playFn != nil {
		return m.playFn(ctx, videoID)
	}
	return nil
}

func (m *mockMediaHost) Pause(_ context.Context, videoID string) error {
	m.record(hostCall{op: "pause", videoID: videoID})
	return nil
}

func (m *mockMediaHost) Seek(_ context.Context, videoID string, position time.Duration) error {
	m.record(hostCall{op: "seek", videoID: videoID, pos: position})
	return nil
}

func (m *mockMediaHost) SetMuted(_ context.Context, videoID string, muted bool) error {
	m.record(hostCall{op: "mute", videoID: videoID, muted: muted})
	return nil
}

// callsFor returns the recorded calls with operation op.
func (m *mockMediaHost) callsFor(op string) []hostCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []hostCall
	for _, c := range m.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// mockPrefetchQueue provides a configurable mock for PrefetchQueue.
type mockPrefetchQueue struct {
	mu        sync.Mutex
	published []model.PrefetchTask
	publishFn func(ctx context.Context, task model.PrefetchTask) error
}

func (m *mockPrefetchQueue) PublishPrefetchTask(ctx context.Context, task model.PrefetchTask) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, task)
	return nil
}

func (m *mockPrefetchQueue) ConsumePrefetchTasks(_ context.Context, _ func(model.PrefetchTask) error) error {
	return nil
}

func (m *mockPrefetchQueue) Close() error {
	return nil
}

func (m *mockPrefetchQueue) publishedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.published))
	for i, t := range m.published {
		ids[i] = t.VideoID
	}
	return ids
}

// mockFeedCache provides a configurable mock for FeedCache backed by a map.
type mockFeedCache struct {
	mu    sync.Mutex
	data  map[string]*model.FeedPage
	getFn func(ctx context.Context, key string) (*model.FeedPage, error)
	setFn func(ctx context.Context, key string, page *model.FeedPage, ttl time.Duration) error
}

func newMockFeedCache() *mockFeedCache {
	return &mockFeedCache{data: make(map[string]*model.FeedPage)}
}

func (m *mockFeedCache) Get(ctx context.Context, key string) (*model.FeedPage, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mockFeedCache) Set(ctx context.Context, key string, page *model.FeedPage, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, page, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = page
	return nil
}

func (m *mockFeedCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// mockPrefetchScheduler records scheduling calls.
type mockPrefetchScheduler struct {
	mu           sync.Mutex
	windows      []int
	batches      int
	prefetched   []string
	prefetchedFn func(video model.VideoDescriptor) bool
}

func (m *mockPrefetchScheduler) PrefetchWindow(_ context.Context, _ []model.VideoDescriptor, activeIndex int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, activeIndex)
	return 0
}

func (m *mockPrefetchScheduler) PrefetchInitialBatch(_ context.Context, _ []model.VideoDescriptor, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
}

func (m *mockPrefetchScheduler) PrefetchVideo(_ context.Context, video model.VideoDescriptor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefetched = append(m.prefetched, video.ID)
	if m.prefetchedFn != nil {
		return m.prefetchedFn(video)
	}
	return true
}

func (m *mockPrefetchScheduler) QueueDepth() int { return 0 }

func (m *mockPrefetchScheduler) Wait() {}

// fakeTimer is a manually fired debounce timer.
type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeClock hands out fakeTimers and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) afterFunc(_ time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that has not been stopped.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

// testVideos builds n playable descriptors with ids v0..v(n-1).
func testVideos(n int) []model.VideoDescriptor {
	videos := make([]model.VideoDescriptor, n)
	for i := range n {
		id := "v" + strconv.Itoa(i)
		videos[i] = model.VideoDescriptor{
			ID:     id,
			URL:    "https://cdn.example.com/@author/video/" + strconv.Itoa(7000+i),
			Author: "author",
		}
	}
	return videos
}
