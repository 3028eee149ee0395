package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSweepJobMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepJobMetrics(reg)

	m.IncSuccess("settlement-sweep")
	m.IncSuccess("settlement-sweep")
	m.IncFailure("settlement-sweep")
	m.ObserveDuration("settlement-sweep", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("settlement-sweep")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("settlement-sweep")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestSweepJobMetricsNilSafe(t *testing.T) {
	var m *SweepJobMetrics
	m.IncSuccess("x")
	m.IncFailure("x")
	m.ObserveDuration("x", time.Second)

	empty := NewSweepJobMetrics(nil)
	empty.IncSuccess("x")
}

func TestSweepJobMetricsNormalizesEmptyLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepJobMetrics(reg)
	m.IncFailure("")
	if got := testutil.ToFloat64(m.failure.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty job label to map to unknown, got %v", got)
	}
}

func TestSettlementMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.IncOutcome(SettlementOutcomeSettled)
	m.IncOutcome(SettlementOutcomeSettled)
	m.IncOutcome(SettlementOutcomeInvariant)

	if got := testutil.ToFloat64(m.outcomes.WithLabelValues(SettlementOutcomeSettled)); got != 2 {
		t.Fatalf("expected 2 settled outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues(SettlementOutcomeInvariant)); got != 1 {
		t.Fatalf("expected 1 invariant outcome, got %v", got)
	}
}
