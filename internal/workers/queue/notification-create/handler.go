// internal/workers/queue/notification-create/handler.go
package notificationcreate

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

const TaskType = "notification.create"

type Handler struct {
	config  *Config
	creator Creator
	schema  map[string]interface{}
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

type HandlerOptions struct {
	Config  *Config
	Creator Creator
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
	if opts.Creator == nil {
		return nil, fmt.Errorf("%s: creator is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config:  cfg,
		creator: opts.Creator,
		schema:  registry.MustInputSchema(TaskType),
		errors:  errors.NewErrorHandler(log),
		logger:  log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Debug("Processing notification batch", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

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

// Execute stores the batch. Entry failures are counted in the output and
// never fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.creator.CreateNotifications(ctx, *input)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("create notifications", err)
	}

	h.logger.Info("Notification batch stored", map[string]interface{}{
		"entries": len(input.NotificationList),
		"created": res.Created,
		"reused":  res.Reused,
		"failed":  res.Failed,
	})
	return &Output{Created: res.Created, Reused: res.Reused, Failed: res.Failed, IDs: res.IDs}, nil
}
