// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

var completeRetry = &RetryConfig{MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}

// DecodeVariables checks the job variables against schema and decodes them
// into v. Any failure is an INVALID_REQUEST error.
func DecodeVariables(job entities.Job, schema map[string]interface{}, v interface{}) error {
	raw := strings.TrimSpace(job.GetVariables())
	if raw == "" {
		raw = "{}"
	}

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &variables); err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("parse job variables: %v", err))
	}
	if variables == nil {
		variables = map[string]interface{}{}
	}

	if res := validation.ValidateInput(variables, schema); !res.Valid {
		return errors.NewInvalidRequestError(res.Error())
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errors.NewInvalidRequestError(fmt.Sprintf("decode job variables: %v", err))
	}
	return nil
}

// CompleteJob completes job with output as its variables. Transient gateway
// failures are retried so a finished delivery run is not handed out again.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command for job %d: %w", job.GetKey(), err)
	}
	err = retry(ctx, completeRetry, 0, "complete job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("complete job %d: %w", job.GetKey(), err)
	}
	return nil
}
