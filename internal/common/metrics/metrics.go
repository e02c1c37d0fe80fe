// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Queue pipeline
var (
	QueueItemsClaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_items_claimed_total",
			Help: "Queue records claimed by a processing run",
		},
	)

	QueueItemsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_sent_total",
			Help: "Queue records delivered",
		},
		[]string{"channel"},
	)

	QueueItemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_items_failed_total",
			Help: "Queue records whose delivery failed",
		},
		[]string{"channel"},
	)

	QueueItemsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_items_skipped_total",
			Help: "Queue records skipped because of an unresolved recipient placeholder",
		},
	)

	QueueRecordsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_records_created_total",
			Help: "Queue records written by generate",
		},
		[]string{"outcome"},
	)
)
