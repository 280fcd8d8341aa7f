package handler

import (
	"log/slog"
	"net/http"

	"github.com/hszk-dev/purestream/internal/usecase"
)

// CacheHandler exposes media cache maintenance.
type CacheHandler struct {
	cache usecase.MediaCache
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache usecase.MediaCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// Stats handles GET /v1/cache/stats
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// Clear handles DELETE /v1/cache
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		slog.Warn("failed to clear media cache", slog.String("error", err.Error()))
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
