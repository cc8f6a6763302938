package metrics

import (
	"runtime"
	"time"
)

const slowAnalyticsThreshold = 5 * time.Second

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, route string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, route).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordMutation counts a graph mutation. status is "success" or "error".
func (r *Registry) RecordMutation(operation, status string) {
	r.MutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordEvent counts one change feed delivery attempt
func (r *Registry) RecordEvent(topic string, delivered bool) {
	if delivered {
		r.EventsPublishedTotal.WithLabelValues(topic).Inc()
		return
	}
	r.EventsDroppedTotal.WithLabelValues(topic).Inc()
}

// AddEventSubscribers adjusts the open subscription gauge for topic
func (r *Registry) AddEventSubscribers(topic string, delta int) {
	r.EventSubscribers.WithLabelValues(topic).Add(float64(delta))
}

// SetNetworkSize updates the network size gauges
func (r *Registry) SetNetworkSize(airports, inactive, routes, airlines int) {
	r.NetworkAirportsTotal.Set(float64(airports))
	r.NetworkInactiveAirportsTotal.Set(float64(inactive))
	r.NetworkRoutesTotal.Set(float64(routes))
	r.NetworkAirlinesTotal.Set(float64(airlines))
}

// RecordAnalytics records one run of a graph algorithm
func (r *Registry) RecordAnalytics(algorithm, status string, duration time.Duration, airports int) {
	r.AnalyticsRunsTotal.WithLabelValues(algorithm, status).Inc()
	r.AnalyticsDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	r.AnalyticsAirportsScanned.WithLabelValues(algorithm).Observe(float64(airports))

	if duration > slowAnalyticsThreshold {
		r.SlowAnalytics.WithLabelValues(algorithm).Inc()
	}
}

// RecordPersistence records a load, persist or snapshot call against a backend
func (r *Registry) RecordPersistence(backend, operation, status string, duration time.Duration) {
	r.PersistenceOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	r.PersistenceDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// UpdateSystemMetrics refreshes the process gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.HeapInuseBytes.Set(float64(m.HeapInuse))
	r.GCCycles.Set(float64(m.NumGC))
}

// SetAnalyticsWorkers records the fan-out of centrality runs
func (r *Registry) SetAnalyticsWorkers(n int) {
	r.AnalyticsWorkers.Set(float64(n))
}

// Status returns the status label for an error
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
