package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunMetrics holds the per-job run instruments.
type RunMetrics struct {
	Runs         *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	FilesWritten *prometheus.CounterVec
	LastSuccess  *prometheus.GaugeVec
}

// NewRunMetrics registers the run instruments with reg.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	factory := promauto.With(reg)

	return &RunMetrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pipedata",
				Subsystem: "job",
				Name:      "runs_total",
				Help:      "Total number of job runs by status",
			},
			[]string{"job", "status"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pipedata",
				Subsystem: "job",
				Name:      "run_duration_seconds",
				Help:      "Time spent running a job",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"job"},
		),

		FilesWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pipedata",
				Subsystem: "job",
				Name:      "files_written_total",
				Help:      "Total number of output files written",
			},
			[]string{"job"},
		),

		LastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pipedata",
				Subsystem: "job",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
			[]string{"job"},
		),
	}
}

// Observe records one finished run.
func (m *RunMetrics) Observe(job, status string, duration time.Duration, files int, finished time.Time) {
	m.Runs.WithLabelValues(job, status).Inc()
	m.RunDuration.WithLabelValues(job).Observe(duration.Seconds())
	m.FilesWritten.WithLabelValues(job).Add(float64(files))
	if status == StatusSuccess {
		m.LastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
	}
}

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)
