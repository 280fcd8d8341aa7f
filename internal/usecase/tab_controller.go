package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// Navigation keys understood by TabController.Key.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// ErrInvalidViewport is returned when a scroll reports a non-positive viewport height.
var ErrInvalidViewport = errors.New("viewport height must be positive")

// TabSnapshot is a read-only copy of one tab's list state.
type TabSnapshot struct {
	Tab         model.Tab
	Current     bool
	Videos      []model.VideoDescriptor
	ActiveIndex int
	Loaded      bool
	Exhausted   bool
	Fetching    bool
	Query       string
	Banner      string
}

// TabController maps scroll positions to the active video and coordinates
// the for-you, following and search lists.
type TabController interface {
	// LoadInitial loads the for-you feed. It returns once the fast batch is
	// available; the full batch is merged in the background.
	LoadInitial(ctx context.Context) (TabSnapshot, error)

	// Scroll converts a scroll offset of the current tab to its active index.
	Scroll(ctx context.Context, offset, viewportHeight float64) (TabSnapshot, error)

	// Select activates index of tab directly.
	Select(ctx context.Context, tab model.Tab, index int) (TabSnapshot, error)

	// LoadMore fetches the next page of tab and returns how many new videos were appended.
	LoadMore(ctx context.Context, tab model.Tab) (int, error)

	// Search replaces the search list with the first page for query and switches to it.
	Search(ctx context.Context, query string) (TabSnapshot, error)

	// SwitchTab makes tab current. The other tabs keep their lists and positions.
	SwitchTab(ctx context.Context, tab model.Tab) (TabSnapshot, error)

	// Swipe switches one tab for a horizontal swipe. ok is false when the gesture is not a tab swipe.
	Swipe(ctx context.Context, dx, dy float64) (snap TabSnapshot, ok bool, err error)

	// Key switches one tab for an arrow key. Keys are ignored while a text input has focus.
	Key(ctx context.Context, key string, inputFocused bool) (snap TabSnapshot, ok bool, err error)

	// Snapshot returns the state of tab.
	Snapshot(tab model.Tab) TabSnapshot

	// Current returns the current tab.
	Current() model.Tab

	// DismissBanner clears the user-visible error banner.
	DismissBanner()

	// Wait blocks until background loads and paginations have settled.
	Wait()

	// Close detaches the controller from playback outcomes.
	Close()
}

// TabControllerConfig holds configuration for TabController.
type TabControllerConfig struct {
	// PaginationThreshold is the fraction of the list that must be reached before loading more.
	PaginationThreshold float64
	// SwipeThreshold is the minimum horizontal travel of a tab swipe.
	SwipeThreshold float64
}

// DefaultTabControllerConfig returns the default configuration.
func DefaultTabControllerConfig() TabControllerConfig {
	return TabControllerConfig{
		PaginationThreshold: 0.6,
		SwipeThreshold:      50,
	}
}

type tabState struct {
	videos      []model.VideoDescriptor
	seen        map[string]struct{}
	activeIndex int
	loaded      bool
	exhausted   bool
	fetching    bool
	// deferred marks a pagination postponed until the active video is ready.
	deferred bool
	cursor   string
	query    string
	// generation changes whenever the list is replaced. Pages fetched for an
	// older generation are discarded.
	generation uint64
}

func newTabState() *tabState {
	return &tabState{seen: make(map[string]struct{})}
}

func (s *tabState) reset(videos []model.VideoDescriptor) {
	s.seen = make(map[string]struct{})
	s.videos = Merge(s.seen, videos)
	s.activeIndex = 0
	s.loaded = true
	s.exhausted = false
	s.fetching = false
	s.deferred = false
	s.generation++
}

type tabController struct {
	loader    FeedLoader
	scheduler PrefetchScheduler
	playback  PlaybackController
	following repository.FollowingSource
	cfg       TabControllerConfig

	mu      sync.Mutex
	tabs    map[model.Tab]*tabState
	current model.Tab
	banner  string

	wg          sync.WaitGroup
	unsubscribe func()
}

// NewTabController creates a TabController. following may be nil.
func NewTabController(
	loader FeedLoader,
	scheduler PrefetchScheduler,
	playback PlaybackController,
	following repository.FollowingSource,
	cfg TabControllerConfig,
) TabController {
	c := &tabController{
		loader:    loader,
		scheduler: scheduler,
		playback:  playback,
		following: following,
		cfg:       cfg,
		tabs:      make(map[model.Tab]*tabState),
		current:   model.TabForYou,
	}
	for _, t := range model.Tabs() {
		c.tabs[t] = newTabState()
	}
	c.unsubscribe = playback.Subscribe(c.onOutcome)
	return c
}

// onOutcome resumes a deferred pagination once the active video is ready.
func (c *tabController) onOutcome(out model.Outcome) {
	if out.Kind != model.OutcomeReady {
		return
	}

	c.mu.Lock()
	tab := c.current
	st := c.tabs[tab]
	if !st.deferred || len(st.videos) == 0 || st.videos[st.activeIndex].ID != out.VideoID {
		c.mu.Unlock()
		return
	}
	st.deferred = false
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.maybePaginate(context.Background(), tab)
	}()
}

type initialResult struct {
	videos []model.VideoDescriptor
	err    error
}

// LoadInitial loads the for-you list, activates its first video and warms the initial batch.
func (c *tabController) LoadInitial(ctx context.Context) (TabSnapshot, error) {
	bg := context.WithoutCancel(ctx)
	progress := make(chan []model.VideoDescriptor, 1)
	done := make(chan initialResult, 1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		videos, err := c.loader.LoadInitial(bg, func(fast []model.VideoDescriptor) {
			progress <- fast
		})
		done <- initialResult{videos: videos, err: err}
	}()

	select {
	case fast := <-progress:
		c.applyInitial(ctx, fast)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.finishInitial(bg, <-done)
		}()
	case res := <-done:
		if res.err != nil {
			c.setBanner(res.err)
			return c.Snapshot(model.TabForYou), fmt.Errorf("load initial feed: %w", res.err)
		}
		c.applyInitial(ctx, res.videos)
	case <-ctx.Done():
		return c.Snapshot(model.TabForYou), ctx.Err()
	}

	return c.Snapshot(model.TabForYou), nil
}

func (c *tabController) applyInitial(ctx context.Context, videos []model.VideoDescriptor) {
	c.mu.Lock()
	st := c.tabs[model.TabForYou]
	st.reset(videos)
	list := slices.Clone(st.videos)
	isCurrent := c.current == model.TabForYou
	c.mu.Unlock()

	if isCurrent && len(list) > 0 {
		c.activate(ctx, list[0])
	}

	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.scheduler.PrefetchInitialBatch(bg, list, 0)
	}()
}

// finishInitial merges the full batch behind the fast one.
func (c *tabController) finishInitial(ctx context.Context, res initialResult) {
	if res.err != nil {
		slog.Warn("full feed load failed", "error", res.err)
		return
	}

	c.mu.Lock()
	st := c.tabs[model.TabForYou]
	st.videos = append(st.videos, Merge(st.seen, res.videos)...)
	list := slices.Clone(st.videos)
	idx := st.activeIndex
	c.mu.Unlock()

	c.scheduler.PrefetchWindow(ctx, list, idx)
}

// Scroll rounds offset to the nearest slot of the current tab and selects it.
func (c *tabController) Scroll(ctx context.Context, offset, viewportHeight float64) (TabSnapshot, error) {
	if viewportHeight <= 0 {
		return TabSnapshot{}, ErrInvalidViewport
	}

	c.mu.Lock()
	tab := c.current
	st := c.tabs[tab]
	if len(st.videos) == 0 {
		c.mu.Unlock()
		return c.Snapshot(tab), nil
	}
	idx := lo.Clamp(int(math.Round(offset/viewportHeight)), 0, len(st.videos)-1)
	c.mu.Unlock()

	return c.Select(ctx, tab, idx)
}

// Select activates index, refreshes the prefetch window and paginates past the threshold.
func (c *tabController) Select(ctx context.Context, tab model.Tab, index int) (TabSnapshot, error) {
	c.mu.Lock()
	st, ok := c.tabs[tab]
	if !ok {
		c.mu.Unlock()
		return TabSnapshot{}, model.ErrUnknownTab
	}
	if index < 0 || index >= len(st.videos) {
		c.mu.Unlock()
		return TabSnapshot{}, model.ErrIndexOutOfRange
	}
	changed := st.activeIndex != index
	st.activeIndex = index
	video := st.videos[index]
	list := slices.Clone(st.videos)
	isCurrent := c.current == tab
	c.mu.Unlock()

	if isCurrent {
		state, active := c.playback.State()
		if changed || !active || state.VideoID != video.ID {
			c.activate(ctx, video)
		}
	}
	c.scheduler.PrefetchWindow(ctx, list, index)
	c.maybePaginate(ctx, tab)

	return c.Snapshot(tab), nil
}

func (c *tabController) activate(ctx context.Context, video model.VideoDescriptor) {
	if _, err := c.playback.Activate(ctx, video); err != nil {
		slog.Warn("failed to activate video",
			"video_id", video.ID,
			"error", err,
		)
	}
}

// maybePaginate starts a background load once the active index crosses the threshold.
func (c *tabController) maybePaginate(ctx context.Context, tab model.Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.tabs[tab]
	if st.fetching || st.exhausted || !st.loaded || len(st.videos) == 0 {
		return
	}
	if float64(st.activeIndex+1)/float64(len(st.videos)) < c.cfg.PaginationThreshold {
		return
	}
	if tab == c.current {
		if state, ok := c.playback.State(); ok && state.Status == model.PlaybackLoading {
			st.deferred = true
			return
		}
	}

	st.fetching = true
	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.fetchMore(bg, tab); err != nil {
			slog.Warn("load more failed",
				"tab", tab,
				"error", err,
			)
		}
	}()
}

// LoadMore fetches the next page unless a fetch is running or the list is exhausted.
func (c *tabController) LoadMore(ctx context.Context, tab model.Tab) (int, error) {
	c.mu.Lock()
	st, ok := c.tabs[tab]
	if !ok {
		c.mu.Unlock()
		return 0, model.ErrUnknownTab
	}
	if st.fetching || st.exhausted {
		c.mu.Unlock()
		return 0, nil
	}
	st.fetching = true
	c.mu.Unlock()

	return c.fetchMore(ctx, tab)
}

// fetchMore loads the next page of tab. The caller has set fetching.
func (c *tabController) fetchMore(ctx context.Context, tab model.Tab) (int, error) {
	c.mu.Lock()
	st := c.tabs[tab]
	exclude := SeenSet(st.videos)
	query, cursor := st.query, st.cursor
	gen := st.generation
	c.mu.Unlock()

	var (
		page *model.FeedPage
		err  error
	)
	switch tab {
	case model.TabForYou:
		var videos []model.VideoDescriptor
		videos, err = c.loader.LoadMore(ctx, exclude)
		page = &model.FeedPage{Items: videos, HasMore: true}
	case model.TabSearch:
		if query == "" || cursor == "" {
			page = &model.FeedPage{}
			break
		}
		page, err = c.loader.Search(ctx, query, cursor)
	case model.TabFollowing:
		// Following lists are fetched once and have no continuation.
		page = &model.FeedPage{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if st.generation != gen {
		slog.Debug("discarding page for replaced list",
			"tab", tab,
			"query", query,
		)
		return 0, nil
	}
	st.fetching = false
	if err != nil {
		return 0, err
	}

	fresh := Merge(st.seen, page.Items)
	st.videos = append(st.videos, fresh...)
	st.loaded = true
	if tab == model.TabSearch {
		st.cursor = page.Cursor
	}
	if len(fresh) == 0 || !page.HasMore {
		st.exhausted = true
	}

	slog.Debug("pagination appended videos",
		"tab", tab,
		"new", len(fresh),
		"total", len(st.videos),
	)
	return len(fresh), nil
}

// Search replaces the search list with the first page for query and makes it current.
func (c *tabController) Search(ctx context.Context, query string) (TabSnapshot, error) {
	page, err := c.loader.Search(ctx, query, "")
	if err != nil {
		if !errors.Is(err, model.ErrEmptyQuery) {
			c.setBanner(err)
		}
		return c.Snapshot(model.TabSearch), err
	}

	c.mu.Lock()
	st := c.tabs[model.TabSearch]
	st.reset(page.Items)
	st.query = query
	st.cursor = page.Cursor
	st.exhausted = !page.HasMore
	c.current = model.TabSearch
	c.banner = ""
	list := slices.Clone(st.videos)
	c.mu.Unlock()

	if len(list) > 0 {
		c.activate(ctx, list[0])
		c.scheduler.PrefetchWindow(ctx, list, 0)
	}
	return c.Snapshot(model.TabSearch), nil
}

// SwitchTab makes tab current and resumes its active video. The following list
// is loaded on first use.
func (c *tabController) SwitchTab(ctx context.Context, tab model.Tab) (TabSnapshot, error) {
	c.mu.Lock()
	st, ok := c.tabs[tab]
	if !ok {
		c.mu.Unlock()
		return TabSnapshot{}, model.ErrUnknownTab
	}
	if tab == c.current {
		c.mu.Unlock()
		return c.Snapshot(tab), nil
	}
	c.current = tab
	needsLoad := tab == model.TabFollowing && !st.loaded && !st.fetching
	if needsLoad {
		st.fetching = true
	}
	c.mu.Unlock()

	if needsLoad {
		if err := c.loadFollowing(ctx); err != nil {
			c.setBanner(err)
			return c.Snapshot(tab), err
		}
	}

	c.mu.Lock()
	var (
		video    model.VideoDescriptor
		hasVideo = len(st.videos) > 0
	)
	if hasVideo {
		video = st.videos[st.activeIndex]
	}
	list := slices.Clone(st.videos)
	idx := st.activeIndex
	c.mu.Unlock()

	if hasVideo {
		c.activate(ctx, video)
		c.scheduler.PrefetchWindow(ctx, list, idx)
	} else if state, active := c.playback.State(); active {
		c.playback.Deactivate(ctx, state.VideoID)
	}

	return c.Snapshot(tab), nil
}

func (c *tabController) loadFollowing(ctx context.Context) error {
	var usernames []string
	if c.following != nil {
		names, err := c.following.Following(ctx)
		if err != nil {
			c.finishFollowing(nil)
			return fmt.Errorf("list following: %w", err)
		}
		usernames = names
	}

	videos, err := c.loader.LoadFollowing(ctx, usernames)
	if err != nil && !errors.Is(err, ErrNoFollowing) {
		c.finishFollowing(nil)
		return err
	}

	c.finishFollowing(videos)
	c.mu.Lock()
	st := c.tabs[model.TabFollowing]
	st.loaded = true
	st.exhausted = true
	c.mu.Unlock()
	return nil
}

func (c *tabController) finishFollowing(videos []model.VideoDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.tabs[model.TabFollowing]
	st.fetching = false
	if videos != nil {
		st.reset(videos)
	}
}

// Swipe switches tabs for a mostly horizontal gesture past the threshold.
func (c *tabController) Swipe(ctx context.Context, dx, dy float64) (TabSnapshot, bool, error) {
	if math.Abs(dx) < c.cfg.SwipeThreshold || math.Abs(dx) <= math.Abs(dy) {
		return TabSnapshot{}, false, nil
	}

	target := c.Current().Prev()
	if dx < 0 {
		target = c.Current().Next()
	}
	snap, err := c.SwitchTab(ctx, target)
	return snap, true, err
}

// Key switches tabs for ArrowLeft and ArrowRight.
func (c *tabController) Key(ctx context.Context, key string, inputFocused bool) (TabSnapshot, bool, error) {
	if inputFocused {
		return TabSnapshot{}, false, nil
	}

	var target model.Tab
	switch key {
	case KeyArrowRight:
		target = c.Current().Next()
	case KeyArrowLeft:
		target = c.Current().Prev()
	default:
		return TabSnapshot{}, false, nil
	}
	snap, err := c.SwitchTab(ctx, target)
	return snap, true, err
}

// Snapshot copies the state of tab.
func (c *tabController) Snapshot(tab model.Tab) TabSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.tabs[tab]
	if !ok {
		return TabSnapshot{Tab: tab}
	}
	return TabSnapshot{
		Tab:         tab,
		Current:     tab == c.current,
		Videos:      slices.Clone(st.videos),
		ActiveIndex: st.activeIndex,
		Loaded:      st.loaded,
		Exhausted:   st.exhausted,
		Fetching:    st.fetching,
		Query:       st.query,
		Banner:      c.banner,
	}
}

// Current returns the current tab.
func (c *tabController) Current() model.Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *tabController) setBanner(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = err.Error()
}

// DismissBanner clears the error banner.
func (c *tabController) DismissBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = ""
}

// Wait blocks until background loads finish.
func (c *tabController) Wait() {
	c.wg.Wait()
}

// Close unsubscribes from playback outcomes.
func (c *tabController) Close() {
	c.unsubscribe()
}
