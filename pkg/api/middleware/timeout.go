package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Timeout creates middleware that bounds each request's context. Handlers
// pass the context to long analytics runs, which stop at the deadline.
// Event stream requests are left unbounded.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d <= 0 || IsEventStream(r) {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsEventStream reports whether the client asked for a server-sent event
// stream
func IsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}
