package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to decode log line %q: %v", line, err)
		}
		lines = append(lines, entry)
	}
	return lines
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		status     int
		wantLevel  string
		wantRoute  string
		wantStatus float64
	}{
		{name: "ok request", path: "/v1/tabs/for_you", status: http.StatusOK, wantLevel: "INFO", wantRoute: "/v1/tabs/{tab}", wantStatus: 200},
		{name: "server error", path: "/v1/tabs/for_you", status: http.StatusBadGateway, wantLevel: "WARN", wantRoute: "/v1/tabs/{tab}", wantStatus: 502},
		{name: "health probe", path: "/health", status: http.StatusOK, wantLevel: "DEBUG", wantRoute: "/health", wantStatus: 200},
		{name: "unmatched route", path: "/nope", status: http.StatusNotFound, wantLevel: "INFO", wantRoute: "unmatched", wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := chi.NewRouter()
			r.Use(chimw.RequestID)
			r.Use(RequestID)
			r.Use(Logger(newTestLogger(&buf)))

			respond := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(tt.status) }
			r.Get("/v1/tabs/{tab}", respond)
			r.Get("/health", respond)
			r.NotFound(respond)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			lines := decodeLogLines(t, &buf)
			if len(lines) != 1 {
				t.Fatalf("got %d log lines, want 1", len(lines))
			}
			entry := lines[0]
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["route"] != tt.wantRoute {
				t.Errorf("route = %v, want %s", entry["route"], tt.wantRoute)
			}
			if entry["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %v", entry["status"], tt.wantStatus)
			}
			if entry["request_id"] == "" {
				t.Error("request_id is empty")
			}
		})
	}
}

func TestLogger_ImplicitStatus(t *testing.T) {
	var buf bytes.Buffer
	h := Logger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("body"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	lines := decodeLogLines(t, &buf)
	if len(lines) != 1 || lines[0]["status"] != float64(200) {
		t.Errorf("log lines = %v, want one line with status 200", lines)
	}
}

func TestRecoverer(t *testing.T) {
	var buf bytes.Buffer
	h := Recoverer(newTestLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/playback/tap", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "internal_error" {
		t.Errorf("error = %q, want internal_error", body["error"])
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Error("panic was not logged")
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := chimw.RequestID(RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got == "" {
		t.Fatal("request id missing from context")
	}
	if rec.Header().Get("X-Request-Id") != got {
		t.Errorf("X-Request-Id = %q, want %q", rec.Header().Get("X-Request-Id"), got)
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordGesture() { c.n++ }

func TestUserGesture(t *testing.T) {
	rec := &countingRecorder{}
	h := UserGesture(rec)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/playback", nil))
	if rec.n != 0 {
		t.Fatalf("gestures after GET = %d, want 0", rec.n)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/playback/tap", nil))
	if rec.n != 1 {
		t.Errorf("gestures after POST = %d, want 1", rec.n)
	}
}

func TestRequestID_WithoutChi(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(got) != 36 {
		t.Errorf("request id = %q, want a UUID", got)
	}
	if rec.Header().Get("X-Request-Id") != got {
		t.Errorf("X-Request-Id = %q, want %q", rec.Header().Get("X-Request-Id"), got)
	}
}
