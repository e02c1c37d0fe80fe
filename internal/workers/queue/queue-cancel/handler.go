// internal/workers/queue/queue-cancel/handler.go
package queuecancel

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

const TaskType = "queue.cancel"

type Handler struct {
	config    *Config
	canceller Canceller
	schema    map[string]interface{}
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Canceller Canceller
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Canceller == nil {
		return nil, fmt.Errorf("%s: canceller is required", TaskType)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config:    cfg,
		canceller: opts.Canceller,
		schema:    registry.MustInputSchema(TaskType),
		errors:    errors.NewErrorHandler(log),
		logger:    log,
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

// Execute cancels, or with remove deletes, the matching pending records. A
// request naming neither a unique key nor an email touches nothing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	n, err := h.canceller.Cancel(ctx, *input)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("cancel", err)
	}
	return &Output{Affected: n}, nil
}
