package repository

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executions. A nil *Metrics records nothing.
type Metrics struct {
	Executions *prometheus.CounterVec
	Retries    *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the execution metrics and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonq",
			Subsystem: "repository",
			Name:      "executions_total",
			Help:      "Statements executed by operation and outcome.",
		}, []string{"op", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonq",
			Subsystem: "repository",
			Name:      "retries_total",
			Help:      "Transient failures that were retried.",
		}, []string{"op"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jsonq",
			Subsystem: "repository",
			Name:      "execution_seconds",
			Help:      "Time spent executing, retries and waits included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Executions, m.Retries, m.Duration)
	}
	return m
}

func (m *Metrics) retried(op string) {
	if m != nil {
		m.Retries.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Executions.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
