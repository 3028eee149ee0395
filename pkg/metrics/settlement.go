package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts settlement attempts by outcome.
type SettlementMetrics struct {
	outcomes *prometheus.CounterVec
}

// Settlement outcome labels.
const (
	SettlementOutcomeSettled   = "settled"
	SettlementOutcomeNoBids    = "no_bids"
	SettlementOutcomeNoop      = "noop"
	SettlementOutcomeFailed    = "failed"
	SettlementOutcomeInvariant = "invariant_violation"
)

// NewSettlementMetrics registers settlement counters on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_attempts_total",
		Help: "Settlement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &SettlementMetrics{outcomes: outcomes}
}

// IncOutcome increments the counter for the given settlement outcome.
func (s *SettlementMetrics) IncOutcome(outcome string) {
	if s == nil || s.outcomes == nil {
		return
	}
	s.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
