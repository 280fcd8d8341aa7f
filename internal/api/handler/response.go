package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hszk-dev/purestream/internal/domain/model"
	"github.com/hszk-dev/purestream/internal/domain/repository"
	"github.com/hszk-dev/purestream/internal/usecase"
)

// JSON writes data as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// decodeJSON decodes the request body into v and writes a 400 response on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

type apiError struct {
	status  int
	code    string
	message string
}

func classifyError(err error) apiError {
	switch {
	case errors.Is(err, model.ErrUnknownTab):
		return apiError{http.StatusBadRequest, "unknown_tab", "Tab must be one of for_you, following, search"}
	case errors.Is(err, model.ErrIndexOutOfRange):
		return apiError{http.StatusBadRequest, "index_out_of_range", "Index is outside the tab's list"}
	case errors.Is(err, model.ErrEmptyQuery):
		return apiError{http.StatusBadRequest, "empty_query", "Search query cannot be empty"}
	case errors.Is(err, usecase.ErrInvalidViewport):
		return apiError{http.StatusBadRequest, "invalid_viewport", "Viewport height must be positive"}
	case errors.Is(err, repository.ErrUnauthenticated):
		return apiError{http.StatusUnauthorized, "unauthenticated", "Backend session is not authenticated"}
	case errors.Is(err, model.ErrInvalidTransition):
		return apiError{http.StatusConflict, "invalid_transition", "Playback cannot change to the requested state"}
	case errors.Is(err, usecase.ErrNoActiveVideo):
		return apiError{http.StatusConflict, "no_active_video", "No video is active"}
	case errors.Is(err, repository.ErrBackendUnavailable):
		return apiError{http.StatusBadGateway, "backend_unavailable", "Feed backend is unavailable"}
	default:
		return apiError{http.StatusInternalServerError, "internal_error", "An unexpected error occurred"}
	}
}

func handleError(w http.ResponseWriter, err error) {
	e := classifyError(err)
	Error(w, e.status, e.code, e.message)
}
