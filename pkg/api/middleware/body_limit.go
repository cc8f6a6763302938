package middleware

import (
	"net/http"
)

// BodySizeLimit caps request bodies at maxBytes. Requests that declare a
// larger Content-Length are refused outright with 413; chunked bodies are
// cut off by http.MaxBytesReader and surface as a read error in the handler.
// Methods that carry no body pass through untouched.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
