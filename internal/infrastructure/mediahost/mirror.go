package mediahost

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
)

// DefaultRetain is the number of videos a Mirror keeps element state for.
const DefaultRetain = 64

// ErrNotLoaded is returned when a command targets a video with no loaded source.
var ErrNotLoaded = errors.New("media element not loaded")

// ElementState is the commanded state of one video's media element.
type ElementState struct {
	VideoID     string           `json:"video_id"`
	Tier        model.SourceTier `json:"tier"`
	URL         string           `json:"url"`
	Cached      bool             `json:"cached"`
	CachedBytes int              `json:"cached_bytes"`
	Loads       int              `json:"loads"`
	Playing     bool             `json:"playing"`
	Muted       bool             `json:"muted"`
	Position    time.Duration    `json:"position"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Mirror implements repository.MediaHost by recording commanded element state
// for a rendering surface to poll. It enforces the autoplay policy: unmuted
// playback is rejected until a user gesture has been recorded.
type Mirror struct {
	mu          sync.Mutex
	elements    map[string]*ElementState
	order       []string
	retain      int
	requireMute bool
	gestureSeen bool
	now         func() time.Time
}

var _ repository.MediaHost = (*Mirror)(nil)

// NewMirror creates a Mirror. requireMute enables the autoplay policy.
func NewMirror(requireMute bool) *Mirror {
	return newMirror(requireMute, DefaultRetain, time.Now)
}

func newMirror(requireMute bool, retain int, now func() time.Time) *Mirror {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &Mirror{
		elements:    make(map[string]*ElementState),
		retain:      retain,
		requireMute: requireMute,
		now:         now,
	}
}

// Load attaches src to the element of videoID, creating it if needed.
func (m *Mirror) Load(_ context.Context, videoID string, src model.MediaSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.elements[videoID]
	if !ok {
		el = &ElementState{VideoID: videoID}
		m.elements[videoID] = el
	}
	m.touchLocked(videoID)

	el.Tier = src.Tier
	el.URL = src.URL
	el.Cached = src.FromCache()
	el.CachedBytes = len(src.Data)
	el.Loads++
	el.Playing = false
	el.Position = 0
	el.UpdatedAt = m.now()
	return nil
}

// Play starts the element. Unmuted playback before any user gesture is rejected
// with model.ErrAutoplayRejected when the mirror requires muted autoplay.
func (m *Mirror) Play(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.elements[videoID]
	if !ok {
		return ErrNotLoaded
	}
	if m.requireMute && !el.Muted && !m.gestureSeen {
		return model.ErrAutoplayRejected
	}
	el.Playing = true
	el.UpdatedAt = m.now()
	return nil
}

// Pause stops the element of videoID.
func (m *Mirror) Pause(_ context.Context, videoID string) error {
	return m.update(videoID, func(el *ElementState) { el.Playing = false })
}

// Seek records the playback position of videoID.
func (m *Mirror) Seek(_ context.Context, videoID string, position time.Duration) error {
	return m.update(videoID, func(el *ElementState) { el.Position = position })
}

// SetMuted records the mute flag of videoID.
func (m *Mirror) SetMuted(_ context.Context, videoID string, muted bool) error {
	return m.update(videoID, func(el *ElementState) { el.Muted = muted })
}

// RecordGesture notes that the user interacted with the surface,
// lifting the autoplay restriction for the rest of the session.
func (m *Mirror) RecordGesture() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gestureSeen = true
}

// GestureSeen reports whether a user gesture has been recorded.
func (m *Mirror) GestureSeen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gestureSeen
}

// Snapshot returns a copy of the element state for a video.
func (m *Mirror) Snapshot(videoID string) (ElementState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.elements[videoID]
	if !ok {
		return ElementState{}, false
	}
	return *el, true
}

func (m *Mirror) update(videoID string, fn func(*ElementState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.elements[videoID]
	if !ok {
		return ErrNotLoaded
	}
	fn(el)
	el.UpdatedAt = m.now()
	return nil
}

// touchLocked moves videoID to the most recent position and drops the
// least recently loaded elements beyond the retain limit.
func (m *Mirror) touchLocked(videoID string) {
	if i := slices.Index(m.order, videoID); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	m.order = append(m.order, videoID)

	for len(m.order) > m.retain {
		delete(m.elements, m.order[0])
		m.order = m.order[1:]
	}
}
