package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard runtime.
type Metrics struct {
	Aggregations       *prometheus.CounterVec
	AggregationLatency prometheus.Histogram
	ModuleFetchFailed  *prometheus.CounterVec
	ModuleFetchLatency *prometheus.HistogramVec
	ActiveSubscribers  prometheus.Gauge
	PublishesCoalesced prometheus.Counter
	SnapshotsDelivered prometheus.Counter
	SnapshotsDropped   prometheus.Counter
}

// New creates all metrics and registers them on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a private
// registry so instances do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "repairradar_aggregations_total",
			Help: "Total number of dashboard aggregation passes, labeled by trigger",
		}, []string{"trigger"}),
		AggregationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "repairradar_aggregation_latency_seconds",
			Help:    "Latency of full dashboard aggregation passes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ModuleFetchFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "repairradar_module_fetch_failures_total",
			Help: "Total number of per-module summary fetch failures, labeled by module and reason",
		}, []string{"module", "reason"}),
		ModuleFetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repairradar_module_fetch_latency_seconds",
			Help:    "Latency of per-module summary fetches in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"module"}),
		ActiveSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "repairradar_dashboard_subscribers",
			Help: "Current number of live dashboard subscribers across all tenants",
		}),
		PublishesCoalesced: f.NewCounter(prometheus.CounterOpts{
			Name: "repairradar_publishes_coalesced_total",
			Help: "Total number of publish calls absorbed into an already pending recomputation",
		}),
		SnapshotsDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "repairradar_snapshots_delivered_total",
			Help: "Total number of snapshots delivered to subscribers",
		}),
		SnapshotsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "repairradar_snapshots_dropped_total",
			Help: "Total number of snapshots dropped because a subscriber was behind",
		}),
	}
}

func (m *Metrics) IncrementAggregations(trigger string) {
	m.Aggregations.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ObserveAggregationLatency(d time.Duration) {
	m.AggregationLatency.Observe(d.Seconds())
}

func (m *Metrics) IncrementModuleFetchFailed(module, reason string) {
	m.ModuleFetchFailed.WithLabelValues(module, reason).Inc()
}

func (m *Metrics) ObserveModuleFetchLatency(module string, d time.Duration) {
	m.ModuleFetchLatency.WithLabelValues(module).Observe(d.Seconds())
}

func (m *Metrics) IncrementActiveSubscribers() { m.ActiveSubscribers.Inc() }
func (m *Metrics) DecrementActiveSubscribers() { m.ActiveSubscribers.Dec() }
func (m *Metrics) IncrementPublishesCoalesced() { m.PublishesCoalesced.Inc() }
func (m *Metrics) IncrementSnapshotsDelivered() { m.SnapshotsDelivered.Inc() }
func (m *Metrics) IncrementSnapshotsDropped()   { m.SnapshotsDropped.Inc() }
