package querycache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache lookups, fetches and evictions. A nil *Metrics records nothing.
type Metrics struct {
	lookups   *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	evictions prometheus.Counter
}

// NewMetrics creates the cache collectors and registers them with reg when it is non-nil.
// One Metrics may be shared by many caches.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "querycache",
			Name:      "lookups_total",
			Help:      "Cache lookups by key and result (hit, stale, miss, disabled).",
		}, []string{"key", "result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "querycache",
			Name:      "fetches_total",
			Help:      "Remote fetches by key and outcome (success, error).",
		}, []string{"key", "outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "querycache",
			Name:      "evictions_total",
			Help:      "Entries evicted after their gc window expired.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.fetches, m.evictions)
	}
	return m
}

func (m *Metrics) lookup(key, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(key, result).Inc()
}

func (m *Metrics) fetch(key string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(key, outcome).Inc()
}

func (m *Metrics) evicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(float64(n))
}
