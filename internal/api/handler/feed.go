package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/usecase"
)

type SwitchTabRequest struct {
	Tab string `json:"tab"`
}

type ScrollRequest struct {
	Offset         float64 `json:"offset"`
	ViewportHeight float64 `json:"viewport_height"`
}

type SwipeRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type KeyRequest struct {
	Key          string `json:"key"`
	InputFocused bool   `json:"input_focused"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type LoadMoreResponse struct {
	Added int         `json:"added"`
	Tab   TabResponse `json:"tab"`
}

type NavigationResponse struct {
	Switched bool        `json:"switched"`
	Tab      TabResponse `json:"tab"`
}

// FeedHandler exposes the feed and tab controller.
type FeedHandler struct {
	tabs usecase.TabController
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(tabs usecase.TabController) *FeedHandler {
	return &FeedHandler{tabs: tabs}
}

// Load handles POST /v1/feed/load
func (h *FeedHandler) Load(w http.ResponseWriter, r *http.Request) {
	snap, err := h.tabs.LoadInitial(r.Context())
	if err != nil {
		h.respondWithBanner(w, model.TabForYou, err)
		return
	}
	JSON(w, http.StatusOK, toTabResponse(snap))
}

// Get handles GET /v1/tabs/{tab}
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	tab, err := model.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, toTabResponse(h.tabs.Snapshot(tab)))
}

// LoadMore handles POST /v1/tabs/{tab}/more
func (h *FeedHandler) LoadMore(w http.ResponseWriter, r *http.Request) {
	tab, err := model.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		handleError(w, err)
		return
	}

	added, err := h.tabs.LoadMore(r.Context(), tab)
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, LoadMoreResponse{
		Added: added,
		Tab:   toTabResponse(h.tabs.Snapshot(tab)),
	})
}

// Switch handles POST /v1/tabs/switch
func (h *FeedHandler) Switch(w http.ResponseWriter, r *http.Request) {
	var req SwitchTabRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tab, err := model.ParseTab(req.Tab)
	if err != nil {
		handleError(w, err)
		return
	}

	snap, err := h.tabs.SwitchTab(r.Context(), tab)
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, toTabResponse(snap))
}

// Scroll handles POST /v1/scroll
func (h *FeedHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.tabs.Scroll(r.Context(), req.Offset, req.ViewportHeight)
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, toTabResponse(snap))
}

// Swipe handles POST /v1/gestures/swipe
func (h *FeedHandler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, ok, err := h.tabs.Swipe(r.Context(), req.DX, req.DY)
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, NavigationResponse{Switched: ok, Tab: toTabResponse(snap)})
}

// Key handles POST /v1/keys
func (h *FeedHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, ok, err := h.tabs.Key(r.Context(), req.Key, req.InputFocused)
	if err != nil {
		handleError(w, err)
		return
	}
	JSON(w, http.StatusOK, NavigationResponse{Switched: ok, Tab: toTabResponse(snap)})
}

// Search handles POST /v1/search
func (h *FeedHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.tabs.Search(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, model.ErrEmptyQuery) {
			handleError(w, err)
			return
		}
		h.respondWithBanner(w, model.TabSearch, err)
		return
	}
	JSON(w, http.StatusOK, toTabResponse(snap))
}

// DismissBanner handles DELETE /v1/banner
func (h *FeedHandler) DismissBanner(w http.ResponseWriter, r *http.Request) {
	h.tabs.DismissBanner()
	w.WriteHeader(http.StatusNoContent)
}

// respondWithBanner writes the failure status with the tab state,
// whose banner field carries the user-visible message.
func (h *FeedHandler) respondWithBanner(w http.ResponseWriter, tab model.Tab, err error) {
	JSON(w, classifyError(err).status, toTabResponse(h.tabs.Snapshot(tab)))
}
