// Package metrics holds the Prometheus collectors shared by the reader components.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	AggregateRoundTrips *prometheus.CounterVec
	AggregateDuration   *prometheus.HistogramVec
	CallOutcomes        *prometheus.CounterVec
	MetadataFetches     *prometheus.CounterVec
	MetadataQueueDepth  prometheus.Gauge
	ReadsTotal          *prometheus.CounterVec
}

// NewMetrics creates the collectors under namespace and registers them with reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		AggregateRoundTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_round_trips_total",
			Help:      "Aggregated eth_call round trips by network and result.",
		}, []string{"network", "result"}),
		AggregateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_duration_seconds",
			Help:      "Latency of aggregated eth_call round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"network"}),
		CallOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_outcomes_total",
			Help:      "Decoded per-call outcomes by network and status.",
		}, []string{"network", "status"}),
		MetadataFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_fetches_total",
			Help:      "Metadata fetch attempts by result.",
		}, []string{"result"}),
		MetadataQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "metadata_queue_depth",
			Help:      "Entries waiting in the metadata queue.",
		}),
		ReadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Network reads by network and result.",
		}, []string{"network", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.AggregateRoundTrips,
			m.AggregateDuration,
			m.CallOutcomes,
			m.MetadataFetches,
			m.MetadataQueueDepth,
			m.ReadsTotal,
		)
	}
	return m
}

func (m *Metrics) ObserveAggregate(network, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.AggregateRoundTrips.WithLabelValues(network, result).Inc()
	m.AggregateDuration.WithLabelValues(network).Observe(took.Seconds())
}

func (m *Metrics) ObserveCall(network, status string) {
	if m == nil {
		return
	}
	m.CallOutcomes.WithLabelValues(network, status).Inc()
}

func (m *Metrics) ObserveMetadataFetch(result string) {
	if m == nil {
		return
	}
	m.MetadataFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.MetadataQueueDepth.Set(float64(n))
}

func (m *Metrics) ObserveRead(network, result string) {
	if m == nil {
		return
	}
	m.ReadsTotal.WithLabelValues(network, result).Inc()
}
