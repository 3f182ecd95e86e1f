package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsCountsByEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Inc("payout_approved", OutboxPublished)
	m.Inc("payout_approved", OutboxPublished)
	m.Inc("payout_paid", OutboxRetried)

	expected := `
# HELP outbox_events_total Outbox rows handled by the relay, by event type and result.
# TYPE outbox_events_total counter
outbox_events_total{event_type="payout_approved",result="published"} 2
outbox_events_total{event_type="payout_paid",result="retried"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "outbox_events_total"))
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	assert.NotPanics(t, func() { m.Inc("payout_paid", OutboxDeadLettered) })
	NewOutboxMetrics(nil).Inc("payout_paid", OutboxDeadLettered)
}
