// internal/workers/queue/queue-process/handler.go
package queueprocess

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

const TaskType = "queue.process"

type Handler struct {
	config *Config
	runner Runner
	schema map[string]interface{}
	errors *errors.ErrorHandler
	logger logger.Logger
}

type HandlerOptions struct {
	Config *Config
	Runner Runner
	Logger logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("%s: runner is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config: cfg,
		runner: opts.Runner,
		schema: registry.MustInputSchema(TaskType),
		errors: errors.NewErrorHandler(log),
		logger: log,
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

// Execute runs one delivery batch. Only a failed claim fails the job.
func (h *Handler) Execute(ctx context.Context, _ *Input) (*Output, error) {
	return h.runner.Run(ctx)
}
