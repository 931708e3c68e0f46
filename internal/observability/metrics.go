// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reconciliation metrics
	EventsApplied   *prometheus.CounterVec
	ItemsApplied    prometheus.Counter
	ItemsDropped    prometheus.Counter
	TokensEvicted   prometheus.Counter
	SnapshotsLoaded prometheus.Counter

	// Transport metrics
	FetchErrors         prometheus.Counter
	StaleFetchesDropped prometheus.Counter
	UnknownEvents       prometheus.Counter

	// State metrics
	TokenCount  prometheus.Gauge
	UpdateCount prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_screener"
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "events_applied_total",
			Help:      "Total number of events applied, by event kind",
		}, []string{"kind"}),
		ItemsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "items_applied_total",
			Help:      "Total number of per-item mutations applied to the store",
		}),
		ItemsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "items_dropped_total",
			Help:      "Total number of malformed or unknown-address items dropped",
		}),
		TokensEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "tokens_evicted_total",
			Help:      "Total number of records evicted by the FIFO bound",
		}),
		SnapshotsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "snapshots_loaded_total",
			Help:      "Total number of full snapshot replacements",
		}),
		FetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed bulk fetches",
		}),
		StaleFetchesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "stale_fetches_dropped_total",
			Help:      "Total number of bulk fetch responses discarded as stale",
		}),
		UnknownEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "unknown_events_total",
			Help:      "Total number of channel events with unrecognized names",
		}),
		TokenCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "token_count",
			Help:      "Number of token records currently held",
		}),
		UpdateCount: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "updates_total",
			Help:      "Total number of applied update events since start",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
