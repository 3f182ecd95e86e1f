package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// histogramSum reads the running sum of one histogram series.
func histogramSum(t *testing.T, obs prometheus.Observer) float64 {
	t.Helper()
	metric, ok := obs.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	return out.GetHistogram().GetSampleSum()
}

func TestCronJobMetricsRecordsRunsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1767225600, 0) }
	const job = "ledger-reconcile"

	m.Observe(job, 250*time.Millisecond, nil)
	m.Observe(job, 100*time.Millisecond, errors.New("boom"))
	m.Observe(job, 100*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "failure")))
	assert.InDelta(t, 0.45, histogramSum(t, m.duration.WithLabelValues(job)), 1e-9)
	assert.Equal(t, 1767225600.0, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)))

	count, err := testutil.GatherAndCount(reg, "cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCronJobMetricsLabelsBlankJob(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.Observe("", time.Second, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() { m.Observe("job", time.Second, nil) })
}
