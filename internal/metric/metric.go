// Package metric exposes Prometheus instrumentation for the telemetry
// pipeline. Failure modes the pipeline deliberately swallows (dropped
// readings, skipped broadcasts, per-scope rollup errors) surface here as
// counters so they stay observable.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sensorhub"

// Drop reasons used as label values on ReadingsDropped.
const (
	DropReasonCapacity    = "capacity"
	DropReasonPersistence = "persistence"
)

// Metrics holds all pipeline-level collectors.
type Metrics struct {
	ReadingsReceived  prometheus.Counter
	ReadingsPersisted prometheus.Counter
	ReadingsDropped   *prometheus.CounterVec

	BroadcastsSent    *prometheus.CounterVec
	BroadcastsSkipped prometheus.Counter
	ConnectionsActive prometheus.Gauge

	RollupRuns        prometheus.Counter
	RollupScopeErrors *prometheus.CounterVec
}

// New creates the pipeline collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_received_total",
			Help:      "Total readings accepted at the ingestion endpoint",
		}),
		ReadingsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_persisted_total",
			Help:      "Total readings written to the persistence sink",
		}),
		ReadingsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_dropped_total",
			Help:      "Total readings dropped from the persistence path",
		}, []string{"reason"}),
		BroadcastsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_sent_total",
			Help:      "Total messages delivered to live connections",
		}, []string{"scope"}),
		BroadcastsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_skipped_total",
			Help:      "Total per-connection sends skipped (closed or stalled client)",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "connections_active",
			Help:      "Currently registered live connections",
		}),
		RollupRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "runs_total",
			Help:      "Total hourly KPI rollup executions",
		}),
		RollupScopeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rollup",
			Name:      "scope_errors_total",
			Help:      "Per-scope rollup failures that were skipped",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		m.ReadingsReceived,
		m.ReadingsPersisted,
		m.ReadingsDropped,
		m.BroadcastsSent,
		m.BroadcastsSkipped,
		m.ConnectionsActive,
		m.RollupRuns,
		m.RollupScopeErrors,
	)
	return m
}

// Handler returns the scrape endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
