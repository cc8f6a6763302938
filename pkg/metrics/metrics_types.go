package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Network Metrics
	NetworkAirportsTotal         prometheus.Gauge
	NetworkInactiveAirportsTotal prometheus.Gauge
	NetworkRoutesTotal           prometheus.Gauge
	NetworkAirlinesTotal         prometheus.Gauge
	MutationsTotal               *prometheus.CounterVec

	// Change Feed Metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventsDroppedTotal   *prometheus.CounterVec
	EventSubscribers     *prometheus.GaugeVec

	// Analytics Metrics
	AnalyticsRunsTotal       *prometheus.CounterVec
	AnalyticsDuration        *prometheus.HistogramVec
	AnalyticsAirportsScanned *prometheus.HistogramVec
	SlowAnalytics            *prometheus.CounterVec

	// Persistence Metrics
	PersistenceOperationsTotal *prometheus.CounterVec
	PersistenceDuration        *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	HeapInuseBytes   prometheus.Gauge
	GCCycles         prometheus.Gauge
	AnalyticsWorkers prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initNetworkMetrics()
	r.initEventMetrics()
	r.initAnalyticsMetrics()
	r.initPersistenceMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
