package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "chain_reader")

	m.ObserveAggregate("ethereum", "ok", 10*time.Millisecond)
	m.ObserveAggregate("ethereum", "ok", 20*time.Millisecond)
	m.ObserveCall("ethereum", "reverted")
	m.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AggregateRoundTrips.WithLabelValues("ethereum", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallOutcomes.WithLabelValues("ethereum", "reverted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MetadataQueueDepth))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAggregate("x", "ok", time.Second)
		m.ObserveCall("x", "ok")
		m.ObserveMetadataFetch("ok")
		m.SetQueueDepth(1)
		m.ObserveRead("x", "ok")
	})
}
