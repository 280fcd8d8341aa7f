package model

import (
	"errors"
	"time"
)

// PlaybackStatus represents the state of a video's player.
type PlaybackStatus string

const (
	PlaybackIdle      PlaybackStatus = "idle"
	PlaybackLoading   PlaybackStatus = "loading"
	PlaybackReady     PlaybackStatus = "ready"
	PlaybackPlaying   PlaybackStatus = "playing"
	PlaybackPaused    PlaybackStatus = "paused"
	PlaybackBuffering PlaybackStatus = "buffering"
	PlaybackErrored   PlaybackStatus = "errored"
)

// Valid status transitions:
// idle -> loading -> ready -> playing <-> paused
//                                 \-> buffering -> playing
// Any non-terminal status may move to errored.
// Activation and deactivation reset the status directly and are not listed here.
var validPlaybackTransitions = map[PlaybackStatus][]PlaybackStatus{
	PlaybackIdle:      {PlaybackLoading, PlaybackErrored},
	PlaybackLoading:   {PlaybackReady, PlaybackErrored},
	PlaybackReady:     {PlaybackPlaying, PlaybackPaused, PlaybackErrored},
	PlaybackPlaying:   {PlaybackPaused, PlaybackBuffering, PlaybackErrored},
	PlaybackPaused:    {PlaybackPlaying, PlaybackErrored},
	PlaybackBuffering: {PlaybackPlaying, PlaybackPaused, PlaybackErrored},
	PlaybackErrored:   {},
}

var (
	ErrInvalidTransition = errors.New("invalid playback transition")
	ErrAutoplayRejected  = errors.New("autoplay rejected by host policy")
)

func (s PlaybackStatus) IsValid() bool {
	_, ok := validPlaybackTransitions[s]
	return ok
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s PlaybackStatus) CanTransitionTo(next PlaybackStatus) bool {
	for _, status := range validPlaybackTransitions[s] {
		if status == next {
			return true
		}
	}
	return false
}

func (s PlaybackStatus) String() string {
	return string(s)
}

// SourceTier identifies which source a video is currently played from.
type SourceTier string

const (
	// TierThin is the lower-cost direct CDN stream.
	TierThin SourceTier = "thin"
	// TierPrimary is the heavier full-fidelity proxied stream.
	TierPrimary SourceTier = "primary"
)

// MediaSource is what the host is asked to load.
// Data holds the cached prefix of the stream when the cache had it.
type MediaSource struct {
	Tier SourceTier
	URL  string
	Data []byte
}

// FromCache reports whether the source is backed by a cached blob.
func (s MediaSource) FromCache() bool {
	return len(s.Data) > 0
}

// PlaybackState is the per-video player state.
type PlaybackState struct {
	VideoID   string
	Status    PlaybackStatus
	Position  time.Duration
	Duration  time.Duration
	Muted     bool
	Tier      SourceTier
	FellBack  bool
	FromCache bool
	Reason    string
}

// TransitionTo attempts to change the playback status.
func (p *PlaybackState) TransitionTo(next PlaybackStatus) error {
	if !next.IsValid() || !p.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	p.Status = next
	return nil
}

// Fail moves the state to errored from any status.
func (p *PlaybackState) Fail(reason string) {
	p.Status = PlaybackErrored
	p.Reason = reason
}

// IsTerminal reports whether no further transition is possible.
func (p *PlaybackState) IsTerminal() bool {
	return p.Status == PlaybackErrored
}

// Reload restarts loading on another source tier after a source failure.
// A video falls back at most once.
func (p *PlaybackState) Reload(tier SourceTier) error {
	if p.IsTerminal() || p.FellBack {
		return ErrInvalidTransition
	}
	p.Status = PlaybackLoading
	p.Tier = tier
	p.FellBack = true
	p.FromCache = false
	p.Position = 0
	return nil
}

// MediaEventKind is an event reported by the media host for a loaded video.
type MediaEventKind string

const (
	EventReady      MediaEventKind = "ready"
	EventPlaying    MediaEventKind = "playing"
	EventWaiting    MediaEventKind = "waiting"
	EventResumed    MediaEventKind = "resumed"
	EventTimeUpdate MediaEventKind = "time_update"
	EventError      MediaEventKind = "error"
	EventEnded      MediaEventKind = "ended"
)

var mediaEventKinds = map[MediaEventKind]struct{}{
	EventReady:      {},
	EventPlaying:    {},
	EventWaiting:    {},
	EventResumed:    {},
	EventTimeUpdate: {},
	EventError:      {},
	EventEnded:      {},
}

func (k MediaEventKind) IsValid() bool {
	_, ok := mediaEventKinds[k]
	return ok
}

// MediaEvent is a host event for one video.
type MediaEvent struct {
	VideoID  string
	Kind     MediaEventKind
	Position time.Duration
	Duration time.Duration
	Reason   string
}

// OutcomeKind tags a playback outcome delivered to subscribers.
type OutcomeKind string

const (
	OutcomeReady     OutcomeKind = "ready"
	OutcomePlaying   OutcomeKind = "playing"
	OutcomePaused    OutcomeKind = "paused"
	OutcomeBuffering OutcomeKind = "buffering"
	OutcomeErrored   OutcomeKind = "errored"
	OutcomeLiked     OutcomeKind = "liked"
)

// Outcome is a typed playback notification.
// Reason is set for errored outcomes, Particle for liked outcomes.
type Outcome struct {
	Kind     OutcomeKind
	VideoID  string
	Reason   string
	Particle *Particle
	State    PlaybackState
}
