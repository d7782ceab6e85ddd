package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rollout metrics
	RolloutStep = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shepherd_rollout_step_percentage",
			Help: "Current canary traffic percentage",
		},
	)

	RolloutRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shepherd_rollout_retries_total",
			Help: "Total number of step rollbacks during canary rollouts",
		},
	)

	ChecksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shepherd_checks_failed_total",
			Help: "Total number of failed health probes by check type",
		},
		[]string{"check"},
	)

	ChecksRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shepherd_checks_run_total",
			Help: "Total number of health probes run by check type",
		},
		[]string{"check"},
	)

	// Rollback metrics
	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shepherd_rollbacks_total",
			Help: "Total number of rollback operations by type and status",
		},
		[]string{"type", "status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shepherd_rollback_stage_duration_seconds",
			Help:    "Rollback stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Backup metrics
	BackupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shepherd_backups_total",
			Help: "Total number of backups created by trigger",
		},
		[]string{"trigger"},
	)

	BackupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shepherd_backup_duration_seconds",
			Help:    "Backup creation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RolloutStep,
		RolloutRetries,
		ChecksFailed,
		ChecksRun,
		RollbacksTotal,
		StageDuration,
		BackupsTotal,
		BackupDuration,
	)
}

// Handler returns the HTTP handler for the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
