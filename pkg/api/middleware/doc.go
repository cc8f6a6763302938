// Package middleware provides the HTTP middleware of the airnet API server.
//
// The middleware package is organized into separate files by concern:
//
//   - recovery.go: Panic recovery middleware
//   - logging.go: Request logging middleware
//   - cors.go: Cross-Origin Resource Sharing (CORS) middleware
//   - security_headers.go: Security headers middleware
//   - body_limit.go: Request body size limiting middleware
//   - request_id.go: Request ID generation and tracking middleware
//   - timeout.go: Per-request deadline middleware
//   - metrics.go: HTTP metrics collection middleware
//   - respond.go: JSON error bodies for requests refused by middleware
//
// All middleware follows the standard pattern: func(http.Handler) http.Handler
// This allows easy chaining: handler = middleware1(middleware2(handler))
//
// Metrics labels requests by their ServeMux pattern, which the mux records
// on the request it is handed, so Metrics must wrap the mux directly:
//
//	handler := middleware.Metrics(registry)(mux)
//	handler = middleware.Timeout(30 * time.Second)(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.PanicRecovery(logger)(handler)
package middleware
