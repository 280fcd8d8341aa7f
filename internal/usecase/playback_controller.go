package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/infrastructure/metrics"
)

const (
	reasonAutoplayRejected = "autoplay_rejected"
	reasonNoSource         = "no_playable_source"
)

// ErrNoActiveVideo is returned by controls issued while no video is active.
var ErrNoActiveVideo = errors.New("no active video")

// PlaybackController drives the player of the active video.
// Outcomes are delivered to subscribers outside of the controller's lock.
type PlaybackController interface {
	// Activate makes video the active one: the previous video is paused, position
	// resets to 0, the global mute flag is applied and autoplay is attempted once the host reports ready.
	Activate(ctx context.Context, video model.VideoDescriptor) (model.PlaybackState, error)

	// Deactivate forces a video to paused.
	Deactivate(ctx context.Context, videoID string)

	// HandleEvent applies a media host event. Events for videos other than the active one are ignored.
	HandleEvent(ctx context.Context, ev model.MediaEvent) error

	// Tap feeds a tap on the player surface into the gesture debounce.
	Tap(ctx context.Context, ev model.TapEvent)

	// Toggle flips between playing and paused.
	Toggle(ctx context.Context) error

	// Seek moves playback to fraction (0..1) of the duration.
	Seek(ctx context.Context, fraction float64) error

	// SetMuted updates the global mute flag and applies it to the active video.
	SetMuted(ctx context.Context, muted bool)

	// Muted returns the global mute flag.
	Muted() bool

	// State returns the active video's state. ok is false when no video is active.
	State() (state model.PlaybackState, ok bool)

	// Subscribe registers fn for outcomes and returns a function removing it.
	Subscribe(fn func(model.Outcome)) (unsubscribe func())
}

// PlaybackControllerConfig holds configuration for PlaybackController.
type PlaybackControllerConfig struct {
	// TapWindow is the debounce separating a single tap from a multi-tap.
	TapWindow time.Duration
	// StartMuted is the initial global mute flag.
	StartMuted bool
}

// DefaultPlaybackControllerConfig returns the default configuration.
func DefaultPlaybackControllerConfig() PlaybackControllerConfig {
	return PlaybackControllerConfig{
		TapWindow:  250 * time.Millisecond,
		StartMuted: true,
	}
}

// stopper is the part of *time.Timer the debounce needs.
type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

type pendingTap struct {
	event model.TapEvent
	seq   uint64
	timer stopper
}

type playbackController struct {
	host      repository.MediaHost
	fetcher   repository.MediaFetcher
	cache     MediaCache
	scheduler PrefetchScheduler
	cfg       PlaybackControllerConfig
	after     afterFunc

	mu      sync.Mutex
	active  *model.VideoDescriptor
	state   model.PlaybackState
	muted   bool
	pending *pendingTap
	tapSeq  uint64

	subMu   sync.Mutex
	subs    map[uint64]func(model.Outcome)
	nextSub uint64
}

// NewPlaybackController creates a PlaybackController.
// scheduler may be nil, in which case cache misses are not warmed.
func NewPlaybackController(
	host repository.MediaHost,
	fetcher repository.MediaFetcher,
	cache MediaCache,
	scheduler PrefetchScheduler,
	cfg PlaybackControllerConfig,
) PlaybackController {
	return newPlaybackController(host, fetcher, cache, scheduler, cfg, realAfterFunc)
}

func newPlaybackController(
	host repository.MediaHost,
	fetcher repository.MediaFetcher,
	cache MediaCache,
	scheduler PrefetchScheduler,
	cfg PlaybackControllerConfig,
	after afterFunc,
) *playbackController {
	return &playbackController{
		host:      host,
		fetcher:   fetcher,
		cache:     cache,
		scheduler: scheduler,
		cfg:       cfg,
		after:     after,
		muted:     cfg.StartMuted,
		subs:      make(map[uint64]func(model.Outcome)),
	}
}

// Activate makes video the single active element. The source, including any
// cached prefix, is resolved before the controller lock is taken so storage
// reads never delay taps or media events.
func (c *playbackController) Activate(ctx context.Context, video model.VideoDescriptor) (model.PlaybackState, error) {
	src, ok := c.resolveSource(ctx, video)

	c.mu.Lock()

	if c.active != nil && c.active.ID != video.ID {
		c.pauseHost(ctx, c.active.ID)
	}
	c.cancelPendingLocked()

	c.active = &video
	c.state = model.PlaybackState{
		VideoID: video.ID,
		Status:  model.PlaybackLoading,
		Muted:   c.muted,
	}

	if !ok {
		c.state.Fail(reasonNoSource)
		metrics.PlaybackErrorsTotal.WithLabelValues(string(c.state.Tier)).Inc()
		out := c.outcomeLocked(model.OutcomeErrored)
		state := c.state
		c.mu.Unlock()

		c.emit(out)
		return state, fmt.Errorf("activate %s: %s", video.ID, reasonNoSource)
	}
	c.state.Tier = src.Tier
	c.state.FromCache = src.FromCache()

	var outcomes []model.Outcome
	if err := c.host.Load(ctx, video.ID, src); err != nil {
		slog.Warn("media host failed to load source",
			"video_id", video.ID,
			"tier", src.Tier,
			"error", err,
		)
		outcomes = c.sourceFailedLocked(ctx, err.Error())
	} else {
		if err := c.host.SetMuted(ctx, video.ID, c.muted); err != nil {
			slog.Warn("media host failed to apply mute", "video_id", video.ID, "error", err)
		}
		if err := c.host.Seek(ctx, video.ID, 0); err != nil {
			slog.Warn("media host failed to rewind", "video_id", video.ID, "error", err)
		}
	}

	state := c.state
	c.mu.Unlock()

	c.emit(outcomes...)
	return state, nil
}

// resolveSource picks the cheapest available tier and attaches the cached prefix when present.
// On a cache miss the video is handed to the scheduler so the next activation hits.
func (c *playbackController) resolveSource(ctx context.Context, video model.VideoDescriptor) (model.MediaSource, bool) {
	tier := model.TierThin
	url := c.fetcher.SourceURL(video, model.TierThin)
	if url == "" {
		tier = model.TierPrimary
		url = c.fetcher.SourceURL(video, model.TierPrimary)
	}
	if url == "" {
		return model.MediaSource{}, false
	}

	src := model.MediaSource{Tier: tier, URL: url}
	origin := metrics.OriginNetwork
	if data, ok := c.cache.Get(ctx, sourceLocator(video)); ok {
		src.Data = data
		origin = metrics.OriginCache
	} else if c.scheduler != nil {
		c.scheduler.PrefetchVideo(ctx, video)
	}
	metrics.PlaybackSourcesTotal.WithLabelValues(string(tier), origin).Inc()

	return src, true
}

// Deactivate pauses videoID and records a paused outcome when it is the active video.
func (c *playbackController) Deactivate(ctx context.Context, videoID string) {
	c.mu.Lock()

	c.pauseHost(ctx, videoID)
	if c.active == nil || c.active.ID != videoID || c.state.IsTerminal() {
		c.mu.Unlock()
		return
	}
	c.cancelPendingLocked()
	c.state.Status = model.PlaybackPaused
	out := c.outcomeLocked(model.OutcomePaused)
	c.mu.Unlock()

	c.emit(out)
}

// HandleEvent applies a media element event to the active video. Events for
// other videos are ignored.
func (c *playbackController) HandleEvent(ctx context.Context, ev model.MediaEvent) error {
	if !ev.Kind.IsValid() {
		return fmt.Errorf("unknown media event %q", ev.Kind)
	}

	c.mu.Lock()
	if c.active == nil || ev.VideoID != c.state.VideoID || c.state.IsTerminal() {
		c.mu.Unlock()
		return nil
	}

	var outcomes []model.Outcome
	if ev.Duration > 0 {
		c.state.Duration = ev.Duration
	}

	switch ev.Kind {
	case model.EventReady:
		if c.state.TransitionTo(model.PlaybackReady) == nil {
			outcomes = append(outcomes, c.outcomeLocked(model.OutcomeReady))
			outcomes = append(outcomes, c.playLocked(ctx)...)
		}
	case model.EventPlaying, model.EventResumed:
		if c.state.Status != model.PlaybackPlaying && c.state.TransitionTo(model.PlaybackPlaying) == nil {
			outcomes = append(outcomes, c.outcomeLocked(model.OutcomePlaying))
		}
	case model.EventWaiting:
		if c.state.TransitionTo(model.PlaybackBuffering) == nil {
			outcomes = append(outcomes, c.outcomeLocked(model.OutcomeBuffering))
		}
	case model.EventTimeUpdate:
		c.state.Position = ev.Position
	case model.EventError:
		outcomes = c.sourceFailedLocked(ctx, ev.Reason)
	case model.EventEnded:
		c.state.Position = 0
		if err := c.host.Seek(ctx, ev.VideoID, 0); err != nil {
			slog.Warn("media host failed to loop", "video_id", ev.VideoID, "error", err)
		}
		if err := c.host.Play(ctx, ev.VideoID); err != nil {
			slog.Debug("loop playback not resumed", "video_id", ev.VideoID, "error", err)
		}
	}

	c.mu.Unlock()

	c.emit(outcomes...)
	return nil
}

// sourceFailedLocked falls back from the thin tier to the primary tier once.
// Any other failure is terminal.
func (c *playbackController) sourceFailedLocked(ctx context.Context, reason string) []model.Outcome {
	if reason == "" {
		reason = "media_error"
	}

	if c.state.Tier == model.TierThin && !c.state.FellBack {
		url := c.fetcher.SourceURL(*c.active, model.TierPrimary)
		if url != "" && c.state.Reload(model.TierPrimary) == nil {
			metrics.PlaybackFallbacksTotal.Inc()
			slog.Info("thin source failed, falling back to primary",
				"video_id", c.state.VideoID,
				"reason", reason,
			)
			err := c.host.Load(ctx, c.state.VideoID, model.MediaSource{Tier: model.TierPrimary, URL: url})
			if err == nil {
				return nil
			}
			reason = err.Error()
		}
	}

	c.state.Fail(reason)
	metrics.PlaybackErrorsTotal.WithLabelValues(string(c.state.Tier)).Inc()
	slog.Warn("playback failed",
		"video_id", c.state.VideoID,
		"tier", c.state.Tier,
		"reason", reason,
	)
	return []model.Outcome{c.outcomeLocked(model.OutcomeErrored)}
}

// playLocked asks the host to play. A policy rejection leaves the video paused.
func (c *playbackController) playLocked(ctx context.Context) []model.Outcome {
	err := c.host.Play(ctx, c.state.VideoID)
	switch {
	case err == nil:
		if c.state.TransitionTo(model.PlaybackPlaying) != nil {
			return nil
		}
		c.state.Reason = ""
		return []model.Outcome{c.outcomeLocked(model.OutcomePlaying)}
	case errors.Is(err, model.ErrAutoplayRejected):
		if c.state.TransitionTo(model.PlaybackPaused) != nil {
			return nil
		}
		c.state.Reason = reasonAutoplayRejected
		return []model.Outcome{c.outcomeLocked(model.OutcomePaused)}
	default:
		return c.sourceFailedLocked(ctx, err.Error())
	}
}

// Toggle flips between playing and paused.
func (c *playbackController) Toggle(ctx context.Context) error {
	c.mu.Lock()
	outcomes, err := c.toggleLocked(ctx)
	c.mu.Unlock()

	c.emit(outcomes...)
	return err
}

func (c *playbackController) toggleLocked(ctx context.Context) ([]model.Outcome, error) {
	if c.active == nil {
		return nil, ErrNoActiveVideo
	}

	switch c.state.Status {
	case model.PlaybackPlaying, model.PlaybackBuffering:
		c.pauseHost(ctx, c.state.VideoID)
		c.state.Status = model.PlaybackPaused
		c.state.Reason = ""
		return []model.Outcome{c.outcomeLocked(model.OutcomePaused)}, nil
	case model.PlaybackPaused, model.PlaybackReady:
		return c.playLocked(ctx), nil
	default:
		return nil, fmt.Errorf("toggle from %s: %w", c.state.Status, model.ErrInvalidTransition)
	}
}

// Tap classifies a tap. A multi-tap likes at once; a single tap toggles after the debounce window.
func (c *playbackController) Tap(ctx context.Context, ev model.TapEvent) {
	ctx = context.WithoutCancel(ctx)

	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return
	}

	events := []model.TapEvent{ev}
	if c.pending != nil {
		events = []model.TapEvent{c.pending.event, ev}
	}
	gestures := model.ClassifyTaps(events, c.cfg.TapWindow)
	last := gestures[len(gestures)-1]

	var outcomes []model.Outcome
	// Two gestures means the pending tap stood alone and its toggle commits now.
	if len(gestures) == 2 {
		c.cancelPendingLocked()
		committed, err := c.toggleLocked(ctx)
		if err != nil {
			slog.Debug("tap toggle ignored", "video_id", c.state.VideoID, "error", err)
		}
		outcomes = append(outcomes, committed...)
	}

	if last.Kind == model.GestureMultiTap {
		c.cancelPendingLocked()
		outcomes = append(outcomes, c.likeLocked(last))
	} else {
		c.tapSeq++
		seq := c.tapSeq
		c.pending = &pendingTap{
			event: ev,
			seq:   seq,
			timer: c.after(c.cfg.TapWindow, func() { c.commitTap(ctx, seq) }),
		}
	}
	c.mu.Unlock()

	c.emit(outcomes...)
}

// commitTap runs when the debounce elapses without a second tap.
func (c *playbackController) commitTap(ctx context.Context, seq uint64) {
	c.mu.Lock()
	if c.pending == nil || c.pending.seq != seq {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	outcomes, err := c.toggleLocked(ctx)
	if err != nil {
		slog.Debug("tap toggle ignored", "video_id", c.state.VideoID, "error", err)
	}
	c.mu.Unlock()

	c.emit(outcomes...)
}

func (c *playbackController) likeLocked(g model.Gesture) model.Outcome {
	out := c.outcomeLocked(model.OutcomeLiked)
	out.Particle = &model.Particle{
		ID:      uuid.NewString(),
		VideoID: c.state.VideoID,
		X:       g.X,
		Y:       g.Y,
		At:      g.At,
	}
	return out
}

func (c *playbackController) cancelPendingLocked() {
	if c.pending == nil {
		return
	}
	c.pending.timer.Stop()
	c.pending = nil
}

// Seek moves the active video to fraction of its duration.
func (c *playbackController) Seek(ctx context.Context, fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return ErrNoActiveVideo
	}
	if c.state.Duration <= 0 {
		return nil
	}

	pos := time.Duration(lo.Clamp(fraction, 0, 1) * float64(c.state.Duration))
	if err := c.host.Seek(ctx, c.state.VideoID, pos); err != nil {
		return fmt.Errorf("seek %s: %w", c.state.VideoID, err)
	}
	c.state.Position = pos
	return nil
}

// SetMuted sets the global mute flag and applies it to the active video.
func (c *playbackController) SetMuted(ctx context.Context, muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.muted = muted
	if c.active == nil {
		return
	}
	c.state.Muted = muted
	if err := c.host.SetMuted(ctx, c.state.VideoID, muted); err != nil {
		slog.Warn("media host failed to apply mute", "video_id", c.state.VideoID, "error", err)
	}
}

// Muted returns the global mute flag.
func (c *playbackController) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// State returns the active video state. ok is false when nothing is active.
func (c *playbackController) State() (model.PlaybackState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.active != nil
}

// Subscribe registers fn for outcomes and returns its unsubscribe func.
func (c *playbackController) Subscribe(fn func(model.Outcome)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *playbackController) pauseHost(ctx context.Context, videoID string) {
	if err := c.host.Pause(ctx, videoID); err != nil {
		slog.Warn("media host failed to pause", "video_id", videoID, "error", err)
	}
}

func (c *playbackController) outcomeLocked(kind model.OutcomeKind) model.Outcome {
	out := model.Outcome{
		Kind:    kind,
		VideoID: c.state.VideoID,
		State:   c.state,
	}
	if kind == model.OutcomeErrored || kind == model.OutcomePaused {
		out.Reason = c.state.Reason
	}
	return out
}

func (c *playbackController) emit(outcomes ...model.Outcome) {
	if len(outcomes) == 0 {
		return
	}

	c.subMu.Lock()
	subs := make([]func(model.Outcome), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, out := range outcomes {
		for _, fn := range subs {
			fn(out)
		}
	}
}
