// internal/workers/queue/queue-reprocess/handler.go
package queuereprocess

import (
	"context"
	"fmt"

	"notification-queue/internal/common/camunda"
	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/logger"
	"notification-queue/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "queue.reprocess"

type Handler struct {
	config      *Config
	reprocessor Reprocessor
	schema      map[string]interface{}
	errors      *errors.ErrorHandler
	logger      logger.Logger
}

type HandlerOptions struct {
	Config      *Config
	Reprocessor Reprocessor
	Logger      logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Reprocessor == nil {
		return nil, fmt.Errorf("%s: reprocessor is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config:      cfg,
		reprocessor: opts.Reprocessor,
		schema:      registry.MustInputSchema(TaskType),
		errors:      errors.NewErrorHandler(log),
		logger:      log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, h.schema, &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return err
	}
	return camunda.CompleteJob(ctx, client, job, output)
}

// Execute re-renders the record. Unlike the HTTP endpoint, an unknown id is a
// QUEUE_RECORD_NOT_FOUND error so the process can branch on it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	rec, err := h.reprocessor.Reprocess(ctx, *input)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("reprocess", err)
	}
	if rec == nil {
		return nil, errors.NewQueueRecordNotFoundError(input.ID)
	}

	h.logger.Info("Queue record reprocessed", map[string]interface{}{
		logger.FieldQueueEmailID: rec.ID,
		"cancel":                 rec.Cancel,
	})
	return &Output{ID: rec.ID, Cancel: rec.Cancel, CancelReason: rec.CancelReason}, nil
}
