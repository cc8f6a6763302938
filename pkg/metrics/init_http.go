package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Betweenness and Louvain requests on a full OpenFlights network run for
// seconds, lookups for microseconds; the buckets span both up to the
// request timeout.
var apiLatencyBuckets = []float64{0.0005, 0.002, 0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_api_requests_total",
			Help: "API requests by method, matched route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airnet_api_request_duration_seconds",
			Help:    "API latency by method, matched route pattern and status",
			Buckets: apiLatencyBuckets,
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_api_requests_in_flight",
			Help: "API requests being served, open event streams included",
		},
	)

	// Community listings carry every member airport and dominate the top end
	r.HTTPResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airnet_api_response_size_bytes",
			Help:    "API response body size by method and matched route pattern",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"method", "route"},
	)
}
