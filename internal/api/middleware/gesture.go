package middleware

import "net/http"

// GestureRecorder is told about user interaction before the request is handled.
type GestureRecorder interface {
	RecordGesture()
}

// UserGesture marks every request through it as a user gesture, so playback
// started while handling it is treated as user initiated.
func UserGesture(rec GestureRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				rec.RecordGesture()
			}
			next.ServeHTTP(w, r)
		})
	}
}
