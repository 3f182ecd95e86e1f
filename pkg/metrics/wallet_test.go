package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementMetricsCountsOutcomes(t *testing.T) {
	m := NewSettlementMetrics(prometheus.NewRegistry())
	m.IncOutcome("processing")
	m.IncOutcome("processing")
	m.IncOutcome("")
	m.ObserveProviderCall("transfer", nil, 10*time.Millisecond)
	m.ObserveProviderCall("transfer", errors.New("boom"), 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("processing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("unknown")))
	assert.InDelta(t, 0.005, histogramSum(t, m.provider.WithLabelValues("transfer", "error")), 1e-9)
	assert.InDelta(t, 0.010, histogramSum(t, m.provider.WithLabelValues("transfer", "ok")), 1e-9)
}

func TestWebhookMetricsCountsEvents(t *testing.T) {
	m := NewWebhookMetrics(prometheus.NewRegistry())
	m.IncEvent("transfer.paid", "applied")
	m.IncEvent("transfer.paid", "applied")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("transfer.paid", "applied")))
}

func TestLedgerMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.SetDrift("w-1", 2.5)
	m.SetDrift("w-2", -1)
	m.SetDriftedWallets(2)
	m.SetStuckPayouts(3)
	m.AddExported(10)
	m.AddExported(5)

	assert.Equal(t, 2.5, testutil.ToFloat64(m.drift.WithLabelValues("w-1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.drifted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.stuck))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.exported))

	m.ClearDrift("w-2")
	count, err := testutil.GatherAndCount(reg, "wallet_ledger_drift")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		var s *SettlementMetrics
		s.IncOutcome("noop")
		s.ObserveProviderCall("payout", nil, time.Second)

		var w *WebhookMetrics
		w.IncEvent("payout.paid", "ok")

		var l *LedgerMetrics
		l.SetDrift("wallet", 1)
		l.ClearDrift("wallet")
		l.SetDriftedWallets(1)
		l.SetStuckPayouts(2)
		l.AddExported(3)
	})
}
