package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNetworkMetrics() {
	r.NetworkAirportsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_network_airports_total",
			Help: "Total number of airports in the route network",
		},
	)

	r.NetworkInactiveAirportsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_network_inactive_airports_total",
			Help: "Number of airports marked inactive",
		},
	)

	r.NetworkRoutesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_network_routes_total",
			Help: "Total number of routes in the route network",
		},
	)

	r.NetworkAirlinesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "airnet_network_airlines_total",
			Help: "Total number of airlines",
		},
	)

	r.MutationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_network_mutations_total",
			Help: "Total number of graph mutations by operation and outcome",
		},
		[]string{"operation", "status"},
	)
}

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_events_published_total",
			Help: "Change feed events delivered to subscribers, by topic",
		},
		[]string{"topic"},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "airnet_events_dropped_total",
			Help: "Change feed events dropped because a subscriber fell behind",
		},
		[]string{"topic"},
	)

	r.EventSubscribers = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "airnet_event_subscribers",
			Help: "Open change feed subscriptions, by topic",
		},
		[]string{"topic"},
	)
}
