package metrics

import (
	"time"

	"github.com/jeajar/scruffy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics tracks retention job runs.
//
// Metrics:
//   - scruffy_jobs_runs_total: finished runs by job type and outcome
//   - scruffy_jobs_run_duration_seconds: run duration by job type
//   - scruffy_jobs_triggers_skipped_total: triggers dropped while a run was in flight
//   - scruffy_jobs_items_total: evaluated requests by job type and result
type JobMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	skippedTotal *prometheus.CounterVec
	itemsTotal   *prometheus.CounterVec
}

// NewJobMetrics creates and registers job metrics with the provided registry.
func NewJobMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *JobMetrics {
	jm := &JobMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "jobs",
				Name:      "runs_total",
				Help:      "Total number of finished job runs",
			},
			[]string{"job_type", "outcome"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "jobs",
				Name:      "run_duration_seconds",
				Help:      "Job run duration in seconds",
				Buckets:   cfg.JobDurationBuckets,
			},
			[]string{"job_type"},
		),

		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "jobs",
				Name:      "triggers_skipped_total",
				Help:      "Total number of triggers skipped because a run was already in flight",
			},
			[]string{"job_type"},
		),

		itemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "jobs",
				Name:      "items_total",
				Help:      "Total number of requests evaluated by result",
			},
			[]string{"job_type", "result"},
		),
	}

	registry.MustRegister(
		jm.runsTotal,
		jm.runDuration,
		jm.skippedTotal,
		jm.itemsTotal,
	)

	return jm
}

// RecordRun records a finished run.
func (jm *JobMetrics) RecordRun(jobType, outcome string, duration time.Duration) {
	jm.runsTotal.WithLabelValues(jobType, outcome).Inc()
	jm.runDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// RecordSkipped records a skipped trigger.
func (jm *JobMetrics) RecordSkipped(jobType string) {
	jm.skippedTotal.WithLabelValues(jobType).Inc()
}

// RecordItem records one evaluated request.
func (jm *JobMetrics) RecordItem(jobType, result string) {
	jm.itemsTotal.WithLabelValues(jobType, result).Inc()
}
