package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

type promMetrics struct {
	host       string
	gauges     map[MetricName]*prometheus.GaugeVec
	counters   map[MetricName]*prometheus.CounterVec
	histograms map[MetricName]*prometheus.HistogramVec
}

func NewMetrics() Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *promMetrics {
	host, _ := os.Hostname()
	m := &promMetrics{
		host: host,
		gauges: map[MetricName]*prometheus.GaugeVec{
			MetricDecisionsInFlightGauge: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: string(MetricDecisionsInFlightGauge),
					Help: "Current number of flows being evaluated or confirmed",
				},
				[]string{"host"}),
			MetricOperatorsGauge: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: string(MetricOperatorsGauge),
					Help: "Current number of connected operator consoles",
				},
				[]string{"host"}),
		},
		counters: map[MetricName]*prometheus.CounterVec{
			MetricDecisionsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricDecisionsCounter),
					Help: "Total number of flow decisions",
				},
				[]string{"host", "verdict"}),
			MetricCacheHitsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricCacheHitsCounter),
					Help: "Total number of decisions served from the decision cache",
				},
				[]string{"host"}),
			MetricConfirmErrorsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricConfirmErrorsCounter),
					Help: "Total number of failed confirmations",
				},
				[]string{"host", "confirmer"}),
			MetricStoreErrorsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricStoreErrorsCounter),
					Help: "Total number of flow store write failures",
				},
				[]string{"host", "store"}),
			MetricIntakeFlowsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricIntakeFlowsCounter),
					Help: "Total number of flows received",
				},
				[]string{"host", "source"}),
			MetricRecorderRecordsCounter: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: string(MetricRecorderRecordsCounter),
					Help: "Total number of audit records",
				},
				[]string{"host", "recorder"}),
		},
		histograms: map[MetricName]*prometheus.HistogramVec{
			MetricConfirmDurationObserver: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name: string(MetricConfirmDurationObserver),
					Help: "Distribution of confirmation latencies",
					Buckets: []float64{
						.01, .05, .1, .5, 1, 2.5, 5, 10, 15, 30, 60, 120, 300,
					},
				},
				[]string{"host", "confirmer"}),
			MetricEvaluatorDurationObserver: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name: string(MetricEvaluatorDurationObserver),
					Help: "Distribution of evaluator latencies",
					Buckets: []float64{
						.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5,
					},
				},
				[]string{"host", "evaluator"}),
		},
	}
	for k := range m.gauges {
		reg.MustRegister(m.gauges[k])
	}
	for k := range m.counters {
		reg.MustRegister(m.counters[k])
	}
	for k := range m.histograms {
		reg.MustRegister(m.histograms[k])
	}

	return m
}

func (m *promMetrics) labels(labels Labels) prometheus.Labels {
	lbs := prometheus.Labels{}
	for k, v := range labels {
		lbs[k] = v
	}
	lbs["host"] = m.host
	return lbs
}

func (m *promMetrics) Gauge(name MetricName, labels Labels) Gauge {
	v, ok := m.gauges[name]
	if !ok {
		return nil
	}
	return v.With(m.labels(labels))
}

func (m *promMetrics) Counter(name MetricName, labels Labels) Counter {
	v, ok := m.counters[name]
	if !ok {
		return nil
	}
	return v.With(m.labels(labels))
}

func (m *promMetrics) Observer(name MetricName, labels Labels) Observer {
	v, ok := m.histograms[name]
	if !ok {
		return nil
	}
	return v.With(m.labels(labels))
}
