package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CronJobMetrics records per-job run outcomes for the cron worker.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics builds the cron metrics. A nil registerer yields working
// but unregistered collectors.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	f := promauto.With(reg)
	return &CronJobMetrics{
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of a cron job run.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120},
		}, []string{"job"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by result.",
		}, []string{"job", "result"}),
		lastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time a job last finished without error.",
		}, []string{"job"}),
		now: time.Now,
	}
}

// Observe records one run of job.
func (c *CronJobMetrics) Observe(job string, took time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(took.Seconds())
	c.runs.WithLabelValues(job, resultLabel(err, "success", "failure")).Inc()
	if err == nil {
		c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
	}
}

func resultLabel(err error, ok, failed string) string {
	if err != nil {
		return failed
	}
	return ok
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
