package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/infrastructure/mediahost"
	"github.com/hszk-dev/purestream/internal/usecase"
)

// HostInspector exposes the commanded media element state.
type HostInspector interface {
	Snapshot(videoID string) (mediahost.ElementState, bool)
}

type TapRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Touches int     `json:"touches"`
}

type SeekRequest struct {
	Fraction float64 `json:"fraction"`
}

type MuteRequest struct {
	Muted bool `json:"muted"`
}

type MuteResponse struct {
	Muted bool `json:"muted"`
}

type MediaEventRequest struct {
	VideoID    string `json:"video_id"`
	Kind       string `json:"kind"`
	PositionMS int64  `json:"position_ms"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

type OutcomesResponse struct {
	Outcomes []OutcomeResponse `json:"outcomes"`
}

// PlaybackHandler exposes the playback controller and the media host mirror.
type PlaybackHandler struct {
	playback usecase.PlaybackController
	host     HostInspector
	outcomes *OutcomeLog
	now      func() time.Time
}

// NewPlaybackHandler creates a new PlaybackHandler. host may be nil.
func NewPlaybackHandler(playback usecase.PlaybackController, host HostInspector, outcomes *OutcomeLog) *PlaybackHandler {
	return &PlaybackHandler{playback: playback, host: host, outcomes: outcomes, now: time.Now}
}

// Get handles GET /v1/playback
func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, ok := h.playback.State()
	if !ok {
		handleError(w, usecase.ErrNoActiveVideo)
		return
	}
	JSON(w, http.StatusOK, toPlaybackResponse(state))
}

// Tap handles POST /v1/playback/tap. The tap is debounced, so the response
// only acknowledges it; the resulting toggle or like arrives as an outcome.
func (h *PlaybackHandler) Tap(w http.ResponseWriter, r *http.Request) {
	var req TapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Touches <= 0 {
		req.Touches = 1
	}

	h.playback.Tap(r.Context(), model.TapEvent{
		At:      h.now(),
		X:       req.X,
		Y:       req.Y,
		Touches: req.Touches,
	})
	w.WriteHeader(http.StatusAccepted)
}

// Toggle handles POST /v1/playback/toggle
func (h *PlaybackHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if err := h.playback.Toggle(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	h.Get(w, r)
}

// Seek handles POST /v1/playback/seek
func (h *PlaybackHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.playback.Seek(r.Context(), req.Fraction); err != nil {
		handleError(w, err)
		return
	}
	h.Get(w, r)
}

// Mute handles POST /v1/playback/mute
func (h *PlaybackHandler) Mute(w http.ResponseWriter, r *http.Request) {
	var req MuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.playback.SetMuted(r.Context(), req.Muted)
	JSON(w, http.StatusOK, MuteResponse{Muted: h.playback.Muted()})
}

// Event handles POST /v1/playback/events
func (h *PlaybackHandler) Event(w http.ResponseWriter, r *http.Request) {
	var req MediaEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	kind := model.MediaEventKind(req.Kind)
	if !kind.IsValid() {
		Error(w, http.StatusBadRequest, "invalid_event", "Unknown media event kind")
		return
	}
	if req.VideoID == "" {
		Error(w, http.StatusBadRequest, "invalid_event", "Video ID is required")
		return
	}

	err := h.playback.HandleEvent(r.Context(), model.MediaEvent{
		VideoID:  req.VideoID,
		Kind:     kind,
		Position: millis(req.PositionMS),
		Duration: millis(req.DurationMS),
		Reason:   req.Reason,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Host handles GET /v1/playback/host/{id}
func (h *PlaybackHandler) Host(w http.ResponseWriter, r *http.Request) {
	el, ok := h.host.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "element_not_found", "No media element is loaded for this video")
		return
	}
	JSON(w, http.StatusOK, el)
}

// Outcomes handles GET /v1/playback/outcomes
func (h *PlaybackHandler) Outcomes(w http.ResponseWriter, r *http.Request) {
	recent := h.outcomes.Recent()
	resp := OutcomesResponse{Outcomes: make([]OutcomeResponse, 0, len(recent))}
	for _, o := range recent {
		resp.Outcomes = append(resp.Outcomes, toOutcomeResponse(o))
	}
	JSON(w, http.StatusOK, resp)
}
