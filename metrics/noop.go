package metrics

// nop discards every sample. It serves as Metrics, Gauge, Counter and Observer at once.
type nop struct{}

var noop nop

func Noop() Metrics {
	return noop
}

func (nop) Counter(MetricName, Labels) Counter   { return noop }
func (nop) Gauge(MetricName, Labels) Gauge       { return noop }
func (nop) Observer(MetricName, Labels) Observer { return noop }

func (nop) Inc()            {}
func (nop) Dec()            {}
func (nop) Add(float64)     {}
func (nop) Set(float64)     {}
func (nop) Observe(float64) {}
