package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the upstream fetches and the
// aggregate caches.
type Metrics struct {
	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: source={windborne,nws}, outcome={success,transport,timeout,status,decode,circuit_open,rate_limited}
	UpstreamDuration *prometheus.HistogramVec // labels: source

	// Aggregate metrics.
	CacheLookups      *prometheus.CounterVec // labels: cache={history,storms}, result={hit,miss}
	InvalidElements   prometheus.Counter
	BalloonsTracked   prometheus.Gauge
	AlertsCollected   prometheus.Gauge
	SnapshotsMerged   prometheus.Gauge
	AggregateFailures *prometheus.CounterVec // labels: aggregate={history}, reason={no_data,internal}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.InvalidElements,
		m.BalloonsTracked,
		m.AlertsCollected,
		m.SnapshotsMerged,
		m.AggregateFailures,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hurricane_hunter",
			Name:      "upstream_requests_total",
			Help:      "Upstream requests by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hurricane_hunter",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hurricane_hunter",
			Name:      "cache_lookups_total",
			Help:      "Aggregate cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		InvalidElements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hurricane_hunter",
			Name:      "snapshot_invalid_elements_total",
			Help:      "Balloon snapshot elements dropped during validation.",
		}),
		BalloonsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_hunter",
			Name:      "balloons_tracked",
			Help:      "Balloons in the most recent trajectory aggregate.",
		}),
		AlertsCollected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_hunter",
			Name:      "alerts_collected",
			Help:      "Alerts in the most recent storm collection.",
		}),
		SnapshotsMerged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hurricane_hunter",
			Name:      "snapshots_merged",
			Help:      "Hour snapshots that contributed to the most recent trajectory aggregate.",
		}),
		AggregateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hurricane_hunter",
			Name:      "aggregate_failures_total",
			Help:      "Aggregate computations that produced no result.",
		}, []string{"aggregate", "reason"}),
	}
}
