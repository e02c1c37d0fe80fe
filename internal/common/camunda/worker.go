// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/metrics"
	"notification-queue/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler must return an error (required by Zeebe client)
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// WorkerOptions are the per task type activation settings.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

func NewWorker(
	client zbc.Client,
	taskType string,
	opts WorkerOptions,
	handler JobHandler,
	obs *observability.Observability,
	logger *zap.Logger,
) *CamundaWorker {
	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, obs, logger)).
		MaxJobsActive(opts.MaxJobsActive)
	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}

	return &CamundaWorker{
		worker:   builder.Open(),
		logger:   logger,
		taskType: taskType,
	}
}

// instrument wraps handler with job metrics. The handler has already failed or
// completed the job when it returns.
func instrument(taskType string, handler JobHandler, obs *observability.Observability, logger *zap.Logger) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		status := "success"
		if err := handler.Handle(client, job); err != nil {
			status = "failed"
			code := errors.Normalize(err).Code
			metrics.WorkerJobsFailed.WithLabelValues(taskType, string(code)).Inc()
			logger.Error("Handler returned error",
				zap.Error(err),
				zap.Int64("jobKey", job.Key),
				zap.String("taskType", taskType),
			)
		} else {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		obs.RecordJobProcessed(context.Background(), taskType, status)
		obs.RecordJobDuration(context.Background(), taskType, elapsed, status)
	}
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", zap.String("taskType", w.taskType))
}

func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}
