package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for bedrock-sentinel.
type Metrics struct {
	registry                 *prometheus.Registry
	cycleDurationSeconds     prometheus.Histogram
	changesTotal             *prometheus.CounterVec
	fetchErrorsTotal         prometheus.Counter
	storeErrorsTotal         prometheus.Counter
	lastSuccessfulCycleGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bedrock_sentinel_cycle_duration_seconds",
			Help:    "Duration of reconciliation cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		changesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bedrock_sentinel_changes_total",
			Help: "Total release changes detected by channel.",
		}, []string{"channel"}),
		fetchErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bedrock_sentinel_fetch_errors_total",
			Help: "Total upstream fetch failures.",
		}),
		storeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bedrock_sentinel_store_errors_total",
			Help: "Total state store read/write failures.",
		}),
		lastSuccessfulCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bedrock_sentinel_last_successful_cycle_timestamp",
			Help: "Unix timestamp of the last successful cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.changesTotal,
		m.fetchErrorsTotal,
		m.storeErrorsTotal,
		m.lastSuccessfulCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the duration of a completed cycle.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// IncChangesTotal increments the change counter for the given channel.
func (m *Metrics) IncChangesTotal(channel string) {
	if m == nil {
		return
	}
	m.changesTotal.WithLabelValues(channel).Inc()
}

// IncFetchErrors increments the upstream fetch error counter.
func (m *Metrics) IncFetchErrors() {
	if m == nil {
		return
	}
	m.fetchErrorsTotal.Inc()
}

// IncStoreErrors increments the state store error counter.
func (m *Metrics) IncStoreErrors() {
	if m == nil {
		return
	}
	m.storeErrorsTotal.Inc()
}

// SetLastSuccessfulCycleTimestamp sets the last successful cycle time.
func (m *Metrics) SetLastSuccessfulCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulCycleGauge.Set(float64(t.Unix()))
}
