package metrics

import (
	"sync"
	"sync/atomic"
)

type MetricName string

type Labels map[string]string

type Gauge interface {
	Inc()
	Dec()
	Add(float64)
	Set(float64)
}

type Counter interface {
	Inc()
	Add(float64)
}

type Observer interface {
	Observe(float64)
}

type Metrics interface {
	Counter(name MetricName, labels Labels) Counter
	Gauge(name MetricName, labels Labels) Gauge
	Observer(name MetricName, labels Labels) Observer
}

const (
	// Total flow decisions. Labels: host, verdict.
	MetricDecisionsCounter MetricName = "fwdask_decisions_total"
	// Total decisions answered from the decision cache. Labels: host.
	MetricCacheHitsCounter MetricName = "fwdask_decision_cache_hits_total"
	// Number of decisions currently waiting on evaluation or confirmation. Labels: host.
	MetricDecisionsInFlightGauge MetricName = "fwdask_decisions_in_flight"
	// Total failed confirmations. Labels: host, confirmer.
	MetricConfirmErrorsCounter MetricName = "fwdask_confirm_errors_total"
	// Confirmation duration histogram. Labels: host, confirmer.
	MetricConfirmDurationObserver MetricName = "fwdask_confirm_duration_seconds"
	// Total flow store write failures. Labels: host, store.
	MetricStoreErrorsCounter MetricName = "fwdask_store_errors_total"
	// Evaluator duration histogram. Labels: host, evaluator.
	MetricEvaluatorDurationObserver MetricName = "fwdask_evaluator_duration_seconds"
	// Total flows received by intake. Labels: host, source.
	MetricIntakeFlowsCounter MetricName = "fwdask_intake_flows_total"
	// Number of connected operator consoles. Labels: host.
	MetricOperatorsGauge MetricName = "fwdask_operators"
	// Total audit records written. Labels: host, recorder.
	MetricRecorderRecordsCounter MetricName = "fwdask_recorder_records_total"
)

var (
	defaultMetrics Metrics
	initOnce       sync.Once
	enabled        atomic.Bool
)

// Enable switches the Get* helpers between the prometheus registry and noop metrics.
// The prometheus collectors are registered on first enable.
func Enable(b bool) {
	if b {
		initOnce.Do(func() {
			defaultMetrics = NewMetrics()
		})
	}
	enabled.Store(b)
}

func IsEnabled() bool {
	return enabled.Load()
}

func GetCounter(name MetricName, labels Labels) Counter {
	if IsEnabled() {
		if c := defaultMetrics.Counter(name, labels); c != nil {
			return c
		}
	}
	return noop.Counter(name, labels)
}

func GetGauge(name MetricName, labels Labels) Gauge {
	if IsEnabled() {
		if g := defaultMetrics.Gauge(name, labels); g != nil {
			return g
		}
	}
	return noop.Gauge(name, labels)
}

func GetObserver(name MetricName, labels Labels) Observer {
	if IsEnabled() {
		if o := defaultMetrics.Observer(name, labels); o != nil {
			return o
		}
	}
	return noop.Observer(name, labels)
}
