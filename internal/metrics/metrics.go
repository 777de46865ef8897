// Package metrics exposes prometheus counters for board activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

type Metrics struct {
	registry *prometheus.Registry

	mutations           *prometheus.CounterVec
	renders             prometheus.Counter
	persistenceFailures *prometheus.CounterVec
	cards               prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dtnboard_mutations_total",
			Help: "Board interactions handled, by operation and whether they changed the board.",
		}, []string{"op", "applied"}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dtnboard_renders_total",
			Help: "Full rebuilds of the board view.",
		}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dtnboard_persistence_failures_total",
			Help: "Loads that fell back to the default board and saves that were dropped.",
		}, []string{"op"}),
		cards: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dtnboard_cards",
			Help: "Cards currently on the board.",
		}),
	}
	m.registry.MustRegister(m.mutations, m.renders, m.persistenceFailures, m.cards)
	return m
}

// Mutation records an interaction. Nil receivers are ignored so callers
// can run without metrics.
func (m *Metrics) Mutation(op string, applied bool) {
	if m == nil {
		return
	}
	a := "false"
	if applied {
		a = "true"
	}
	m.mutations.WithLabelValues(op, a).Inc()
}

func (m *Metrics) Rendered(cards int) {
	if m == nil {
		return
	}
	m.renders.Inc()
	m.cards.Set(float64(cards))
}

func (m *Metrics) PersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}

// Failures returns the persistence failure count for op.
func (m *Metrics) Failures(op string) float64 {
	if m == nil {
		return 0
	}
	var pb dto.Metric
	if err := m.persistenceFailures.WithLabelValues(op).Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
