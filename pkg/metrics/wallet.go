package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SettlementMetrics tracks settlement outcomes and payout provider latency.
type SettlementMetrics struct {
	outcomes *prometheus.CounterVec
	provider *prometheus.HistogramVec
}

func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	f := promauto.With(reg)
	return &SettlementMetrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "payout_settlement_outcomes_total",
			Help: "Settlement step results by outcome.",
		}, []string{"outcome"}),
		provider: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payout_provider_call_seconds",
			Help:    "Latency of payout provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "result"}),
	}
}

func (m *SettlementMetrics) IncOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SettlementMetrics) ObserveProviderCall(operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.provider.WithLabelValues(normalizeLabel(operation), resultLabel(err, "ok", "error")).Observe(took.Seconds())
}

// WebhookMetrics counts provider callbacks.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	return &WebhookMetrics{events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "payout_webhook_events_total",
		Help: "Provider webhook events by type and result.",
	}, []string{"type", "result"})}
}

func (m *WebhookMetrics) IncEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// LedgerMetrics exposes reconciliation and export state.
type LedgerMetrics struct {
	drift    *prometheus.GaugeVec
	drifted  prometheus.Gauge
	stuck    prometheus.Gauge
	exported prometheus.Counter
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	f := promauto.With(reg)
	return &LedgerMetrics{
		drift: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wallet_ledger_drift",
			Help: "Projected minus replayed balance for wallets that drifted.",
		}, []string{"wallet_id"}),
		drifted: f.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_ledger_drifted_wallets",
			Help: "Wallets whose projection disagreed with the ledger in the last run.",
		}),
		stuck: f.NewGauge(prometheus.GaugeOpts{
			Name: "payouts_stuck",
			Help: "Approved or funded payouts older than the stuck threshold.",
		}),
		exported: f.NewCounter(prometheus.CounterOpts{
			Name: "wallet_ledger_exported_rows_total",
			Help: "Ledger entries exported to the warehouse.",
		}),
	}
}

func (m *LedgerMetrics) SetDrift(walletID string, drift float64) {
	if m != nil {
		m.drift.WithLabelValues(walletID).Set(drift)
	}
}

// ClearDrift drops the series of a wallet that reconciled cleanly.
func (m *LedgerMetrics) ClearDrift(walletID string) {
	if m != nil {
		m.drift.DeleteLabelValues(walletID)
	}
}

func (m *LedgerMetrics) SetDriftedWallets(count int) {
	if m != nil {
		m.drifted.Set(float64(count))
	}
}

func (m *LedgerMetrics) SetStuckPayouts(count int) {
	if m != nil {
		m.stuck.Set(float64(count))
	}
}

func (m *LedgerMetrics) AddExported(count int) {
	if m != nil {
		m.exported.Add(float64(count))
	}
}
