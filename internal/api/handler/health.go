package handler

import (
	"net/http"

	"github.com/hszk-dev/purestream/internal/usecase"
)

type HealthResponse struct {
	Status           string `json:"status"`
	CurrentTab       string `json:"current_tab"`
	PrefetchInFlight int    `json:"prefetch_in_flight"`
}

// HealthHandler reports liveness along with a few pipeline gauges.
type HealthHandler struct {
	tabs      usecase.TabController
	scheduler usecase.PrefetchScheduler
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(tabs usecase.TabController, scheduler usecase.PrefetchScheduler) *HealthHandler {
	return &HealthHandler{tabs: tabs, scheduler: scheduler}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		CurrentTab:       h.tabs.Current().String(),
		PrefetchInFlight: h.scheduler.QueueDepth(),
	})
}
