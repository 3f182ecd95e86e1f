package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outbox publish results.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts relay outcomes per event type.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	return &OutboxMetrics{outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the relay, by event type and result.",
	}, []string{"event_type", "result"})}
}

func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(eventType), result).Inc()
}
