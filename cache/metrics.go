package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics counts cache lookups by result. A nil *Metrics records nothing.
type Metrics struct {
	Requests *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonq",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests)
	}
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
}
