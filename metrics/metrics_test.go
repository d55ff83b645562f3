package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledMetricsAreNoop(t *testing.T) {
	Enable(false)
	assert.IsType(t, nop{}, GetCounter(MetricDecisionsCounter, nil))
	assert.IsType(t, nop{}, GetGauge(MetricDecisionsInFlightGauge, nil))
	assert.IsType(t, nop{}, GetObserver(MetricConfirmDurationObserver, nil))
}

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	labels := Labels{"verdict": "forward"}
	m.Counter(MetricDecisionsCounter, labels).Inc()
	m.Counter(MetricDecisionsCounter, labels).Add(2)
	assert.NotContains(t, labels, "host")

	vec := m.counters[MetricDecisionsCounter]
	assert.Equal(t, float64(3), testutil.ToFloat64(vec.With(prometheus.Labels{"host": m.host, "verdict": "forward"})))

	m.Gauge(MetricOperatorsGauge, nil).Set(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.gauges[MetricOperatorsGauge]))

	assert.Nil(t, m.Counter("unknown", nil))
	assert.Nil(t, m.Gauge("unknown", nil))
	assert.Nil(t, m.Observer("unknown", nil))

	n, err := testutil.GatherAndCount(reg, string(MetricDecisionsCounter))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
