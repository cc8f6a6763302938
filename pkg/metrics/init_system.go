package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_uptime_seconds",
			Help: "Seconds since airnet-server started",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_goroutines",
			Help: "Goroutines, including analytics workers and event stream writers",
		},
	)

	// The network and the projections built for analytics live on the heap
	r.HeapInuseBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_heap_inuse_bytes",
			Help: "Heap bytes in use by the in-memory network and its projections",
		},
	)

	r.GCCycles = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_gc_cycles",
			Help: "Completed garbage collection cycles; bursts follow large projections",
		},
	)

	r.AnalyticsWorkers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_analytics_workers",
			Help: "Worker goroutines each centrality run fans out to",
		},
	)
}
