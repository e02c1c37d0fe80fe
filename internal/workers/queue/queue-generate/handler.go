// internal/workers/queue/queue-generate/handler.go
package queuegenerate

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

const TaskType = "queue.generate"

type Handler struct {
	config    *Config
	generator Generator
	schema    map[string]interface{}
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Generator Generator
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
	if opts.Generator == nil {
		return nil, fmt.Errorf("%s: generator is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{logger.FieldTaskType: TaskType})

	return &Handler{
		config:    cfg,
		generator: opts.Generator,
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

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return err
	}
	return nil
}

// Execute expands the event. Partial store failures are logged and the job
// still completes; it fails only when nothing could be written.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.WithFields(map[string]interface{}{
		logger.FieldKey:       input.Key,
		logger.FieldPartnerID: input.PartnerID,
	})

	res, err := h.generator.Generate(ctx, *input)
	if err != nil && (res == nil || !res.Written()) {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	if err != nil {
		log.Warn("Some queue records could not be stored", map[string]interface{}{
			"failed": res.Failed,
			"error":  err.Error(),
		})
	}

	log.Info("Queue records generated", map[string]interface{}{
		"recordsCreated": res.RecordsCreated,
		"errorRecords":   res.ErrorRecords,
		"skipped":        res.Skipped,
		"superseded":     res.Superseded,
	})
	return &Output{
		RecordsCreated: res.RecordsCreated,
		ErrorRecords:   res.ErrorRecords,
		Skipped:        res.Skipped,
	}, nil
}
