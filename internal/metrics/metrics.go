// Package metrics exposes Prometheus collectors for the engine and
// client packages, following the teacher's pattern of registering
// collectors against a package-level registry and serving them over
// an HTTP handler from the demo binary.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector groups the counters and gauges this repository emits.
// There is deliberately one instance per process rather than a global:
// engine.WithMetrics takes a *Collector so tests can use a private
// registry instead of colliding on the default one.
type Collector struct {
	QueueDepth       prometheus.Gauge
	EventsProcessed  *prometheus.CounterVec
	MetricsPublished prometheus.Counter
	CommandsReceived *prometheus.CounterVec
	CommandLatency   prometheus.Histogram
	RebirthsTriggered *prometheus.CounterVec
	DevicesRegistered prometheus.Gauge
}

// New registers a fresh set of collectors against reg. Pass
// prometheus.DefaultRegisterer in production, or
// prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Number of items currently queued for the engine's event loop.",
		}),
		EventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "events_processed_total",
			Help:      "Queue items processed, partitioned by item kind.",
		}, []string{"kind"}),
		MetricsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "metrics_published_total",
			Help:      "Sparkplug-B messages published by the engine (births, deaths and data).",
		}),
		CommandsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "commands_received_total",
			Help:      "NCMD/DCMD command metrics applied to a node or device endpoint, partitioned by outcome.",
		}, []string{"outcome"}),
		CommandLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "command_dispatch_seconds",
			Help:      "Time spent dispatching one command metric: decoding, name resolution and applying it.",
			Buckets:   prometheus.DefBuckets,
		}),
		RebirthsTriggered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "rebirths_triggered_total",
			Help:      "NBIRTH/DBIRTH rebirths triggered, partitioned by scope.",
		}, []string{"scope"}),
		DevicesRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "icpw",
			Subsystem: "engine",
			Name:      "devices_registered",
			Help:      "Number of devices currently registered on this node.",
		}),
	}
}
