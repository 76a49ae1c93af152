package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is an optional Prometheus collector for a Manager. A nil *Metrics
// is valid and every method on it is a no-op, so callers that don't care
// about observability never need a nil check of their own.
type Metrics struct {
	registrations *prometheus.CounterVec
	getRootTotal  *prometheus.CounterVec
	registeredSet prometheus.Gauge
}

// NewMetrics registers the manager's Prometheus series against registry.
// Pass prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctree",
			Subsystem: "manager",
			Name:      "registrations_total",
			Help:      "Count of RegisterGlobal/RegisterTarget calls, by scope.",
		}, []string{"scope"}),
		getRootTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proctree",
			Subsystem: "manager",
			Name:      "get_root_total",
			Help:      "Count of GetRoot calls, by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		registeredSet: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "proctree",
			Subsystem: "manager",
			Name:      "registered_process_types",
			Help:      "Number of distinct process types with at least one registered root.",
		}),
	}
}

func (m *Metrics) recordRegistration(scope string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(scope).Inc()
}

func (m *Metrics) recordGetRoot(outcome string) {
	if m == nil {
		return
	}
	m.getRootTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) setRegisteredProcessTypes(n int) {
	if m == nil {
		return
	}
	m.registeredSet.Set(float64(n))
}
