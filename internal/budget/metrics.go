package budget

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics for the Budget Tracker. A nil
// *Metrics is valid and every method on it is a no-op, so callers that
// don't enable metrics can pass nil without branching.
type Metrics struct {
	registry *prometheus.Registry

	totalDollars   *prometheus.GaugeVec
	totalTokens    *prometheus.GaugeVec
	budgetExceeded *prometheus.CounterVec
}

// NewMetrics builds a Metrics with its own registry and registers all
// series. Pass the returned registry's Handler (via Registry()) to an
// HTTP mux, or merge it into a larger registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.totalDollars = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hexboard_board_total_dollars",
		Help: "Cumulative dollar spend for a board.",
	}, []string{"board_id"})

	m.totalTokens = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hexboard_board_total_tokens",
		Help: "Cumulative token usage for a board.",
	}, []string{"board_id"})

	m.budgetExceeded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexboard_budget_exceeded_total",
		Help: "Number of times a board has crossed a budget limit.",
	}, []string{"board_id"})

	m.registry.MustRegister(m.totalDollars, m.totalTokens, m.budgetExceeded)
	return m
}

// Registry returns the metrics' own Prometheus registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) setUsage(boardID string, dollars float64, tokens uint64) {
	if m == nil {
		return
	}
	m.totalDollars.WithLabelValues(boardID).Set(dollars)
	m.totalTokens.WithLabelValues(boardID).Set(float64(tokens))
}

func (m *Metrics) incExceeded(boardID string) {
	if m == nil {
		return
	}
	m.budgetExceeded.WithLabelValues(boardID).Inc()
}
