// internal/workers/queue/queue-process/models.go
package queueprocess

import (
	"context"

	"notification-queue/internal/delivery"
)

// Input is empty; the batch size and concurrency come from configuration.
type Input struct{}

type Output = delivery.RunResult

// Runner is satisfied by *delivery.Processor.
type Runner interface {
	Run(ctx context.Context) (*delivery.RunResult, error)
}
