package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAnalyticsMetrics() {
	r.AnalyticsRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_analytics_runs_total",
			Help: "Total number of analytics runs",
		},
		[]string{"algorithm", "status"},
	)

	r.AnalyticsDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airnet_analytics_duration_seconds",
			Help:    "Analytics run duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"algorithm"},
	)

	r.AnalyticsAirportsScanned = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airnet_analytics_airports_scanned",
			Help:    "Number of airports in the projection an analytics run worked on",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"algorithm"},
	)

	r.SlowAnalytics = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_slow_analytics_total",
			Help: "Total number of slow analytics runs (>5s)",
		},
		[]string{"algorithm"},
	)
}

func (r *Registry) initPersistenceMetrics() {
	r.PersistenceOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_persistence_operations_total",
			Help: "Total number of persistence operations",
		},
		[]string{"backend", "operation", "status"},
	)

	r.PersistenceDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "airnet_persistence_duration_seconds",
			Help:    "Persistence operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"backend", "operation"},
	)
}
