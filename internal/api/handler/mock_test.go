package handler

import (
	"context"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/infrastructure/mediahost"
	"github.com/hszk-dev/purestream/internal/usecase"
)

type mockTabController struct {
	loadInitialFn func(ctx context.Context) (usecase.TabSnapshot, error)
	scrollFn      func(ctx context.Context, offset, vh float64) (usecase.TabSnapshot, error)
	selectFn      func(ctx context.Context, tab model.Tab, index int) (usecase.TabSnapshot, error)
	loadMoreFn    func(ctx context.Context, tab model.Tab) (int, error)
	searchFn      func(ctx context.Context, query string) (usecase.TabSnapshot, error)
	switchTabFn   func(ctx context.Context, tab model.Tab) (usecase.TabSnapshot, error)
	swipeFn       func(ctx context.Context, dx, dy float64) (usecase.TabSnapshot, bool, error)
	keyFn         func(ctx context.Context, key string, focused bool) (usecase.TabSnapshot, bool, error)
	snapshotFn    func(tab model.Tab) usecase.TabSnapshot

	current   model.Tab
	dismissed int
}

var _ usecase.TabController = (*mockTabController)(nil)

func (m *mockTabController) LoadInitial(ctx context.Context) (usecase.TabSnapshot, error) {
	if m.loadInitialFn != nil {
		return m.loadInitialFn(ctx)
	}
	return usecase.TabSnapshot{}, nil
}

func (m *mockTabController) Scroll(ctx context.Context, offset, vh float64) (usecase.TabSnapshot, error) {
	if m.scrollFn != nil {
		return m.scrollFn(ctx, offset, vh)
	}
	return usecase.TabSnapshot{}, nil
}

func (m *mockTabController) Select(ctx context.Context, tab model.Tab, index int) (usecase.TabSnapshot, error) {
	if m.selectFn != nil {
		return m.selectFn(ctx, tab, index)
	}
	return usecase.TabSnapshot{}, nil
}

func (m *mockTabController) LoadMore(ctx context.Context, tab model.Tab) (int, error) {
	if m.loadMoreFn != nil {
		return m.loadMoreFn(ctx, tab)
	}
	return 0, nil
}

func (m *mockTabController) Search(ctx context.Context, query string) (usecase.TabSnapshot, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return usecase.TabSnapshot{}, nil
}

func (m *mockTabController) SwitchTab(ctx context.Context, tab model.Tab) (usecase.TabSnapshot, error) {
	if m.switchTabFn != nil {
		return m.switchTabFn(ctx, tab)
	}
	return usecase.TabSnapshot{Tab: tab, Current: true}, nil
}

func (m *mockTabController) Swipe(ctx context.Context, dx, dy float64) (usecase.TabSnapshot, bool, error) {
	if m.swipeFn != nil {
		return m.swipeFn(ctx, dx, dy)
	}
	return usecase.TabSnapshot{}, false, nil
}

func (m *mockTabController) Key(ctx context.Context, key string, focused bool) (usecase.TabSnapshot, bool, error) {
	if m.keyFn != nil {
		return m.keyFn(ctx, key, focused)
	}
	return usecase.TabSnapshot{}, false, nil
}

func (m *mockTabController) Snapshot(tab model.Tab) usecase.TabSnapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn(tab)
	}
	return usecase.TabSnapshot{Tab: tab}
}

func (m *mockTabController) Current() model.Tab {
	if m.current == "" {
		return model.TabForYou
	}
	return m.current
}

func (m *mockTabController) DismissBanner() { m.dismissed++ }
func (m *mockTabController) Wait()          {}
func (m *mockTabController) Close()         {}

type mockPlaybackController struct {
	handleEventFn func(ctx context.Context, ev model.MediaEvent) error
	toggleFn      func(ctx context.Context) error
	seekFn        func(ctx context.Context, fraction float64) error

	state  *model.PlaybackState
	muted  bool
	taps   []model.TapEvent
	events []model.MediaEvent
}

var _ usecase.PlaybackController = (*mockPlaybackController)(nil)

func (m *mockPlaybackController) Activate(_ context.Context, v model.VideoDescriptor) (model.PlaybackState, error) {
	m.state = &model.PlaybackState{VideoID: v.ID, Status: model.PlaybackLoading}
	return *m.state, nil
}

func (m *mockPlaybackController) Deactivate(context.Context, string) {}

func (m *mockPlaybackController) HandleEvent(ctx context.Context, ev model.MediaEvent) error {
	m.events = append(m.events, ev)
	if m.handleEventFn != nil {
		return m.handleEventFn(ctx, ev)
	}
	return nil
}

func (m *mockPlaybackController) Tap(_ context.Context, ev model.TapEvent) {
	m.taps = append(m.taps, ev)
}

func (m *mockPlaybackController) Toggle(ctx context.Context) error {
	if m.toggleFn != nil {
		return m.toggleFn(ctx)
	}
	return nil
}

func (m *mockPlaybackController) Seek(ctx context.Context, fraction float64) error {
	if m.seekFn != nil {
		return m.seekFn(ctx, fraction)
	}
	return nil
}

func (m *mockPlaybackController) SetMuted(_ context.Context, muted bool) { m.muted = muted }
func (m *mockPlaybackController) Muted() bool                            { return m.muted }

func (m *mockPlaybackController) State() (model.PlaybackState, bool) {
	if m.state == nil {
		return model.PlaybackState{}, false
	}
	return *m.state, true
}

func (m *mockPlaybackController) Subscribe(func(model.Outcome)) func() {
	return func() {}
}

type mockMediaCache struct {
	stats   model.CacheStats
	clearFn func(ctx context.Context) error
	cleared int
}

var _ usecase.MediaCache = (*mockMediaCache)(nil)

func (m *mockMediaCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (m *mockMediaCache) Contains(context.Context, string) bool      { return false }
func (m *mockMediaCache) Put(context.Context, string, []byte)        {}
func (m *mockMediaCache) Stats(context.Context) model.CacheStats     { return m.stats }
func (m *mockMediaCache) PurgeExpired(context.Context) int           { return 0 }

func (m *mockMediaCache) Clear(ctx context.Context) error {
	m.cleared++
	if m.clearFn != nil {
		return m.clearFn(ctx)
	}
	return nil
}

type mockPrefetchScheduler struct {
	depth int
}

var _ usecase.PrefetchScheduler = (*mockPrefetchScheduler)(nil)

func (m *mockPrefetchScheduler) PrefetchWindow(context.Context, []model.VideoDescriptor, int) int {
	return 0
}
func (m *mockPrefetchScheduler) PrefetchInitialBatch(context.Context, []model.VideoDescriptor, int) {}
func (m *mockPrefetchScheduler) PrefetchVideo(context.Context, model.VideoDescriptor) bool {
	return false
}
func (m *mockPrefetchScheduler) QueueDepth() int { return m.depth }
func (m *mockPrefetchScheduler) Wait()           {}

type mockHostInspector map[string]mediahost.ElementState

func (m mockHostInspector) Snapshot(id string) (mediahost.ElementState, bool) {
	el, ok := m[id]
	return el, ok
}
