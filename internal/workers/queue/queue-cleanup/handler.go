// internal/workers/queue/queue-cleanup/handler.go
package queuecleanup

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

const TaskType = "queue.cleanup"

type Handler struct {
	config  *Config
	cleaner Cleaner
	schema  map[string]interface{}
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

type HandlerOptions struct {
	Config  *Config
	Cleaner Cleaner
	Logger  logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Cleaner == nil {
		return nil, fmt.Errorf("%s: cleaner is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config:  cfg,
		cleaner: opts.Cleaner,
		schema:  registry.MustInputSchema(TaskType),
		errors:  errors.NewErrorHandler(log),
		logger:  log,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	n, err := h.cleaner.Cleanup(ctx, *input)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("cleanup", err)
	}
	h.logger.Info("Stale queue records removed", map[string]interface{}{
		logger.FieldKey: input.Key,
		"deleted":       n,
	})
	return &Output{Deleted: n}, nil
}
