// internal/workers/queue/queue-cancel/models.go
package queuecancel

import (
	"context"

	"notification-queue/internal/lifecycle"
)

type Input = lifecycle.CancelRequest

type Output struct {
	Affected int64 `json:"affected"`
}

type Canceller interface {
	Cancel(ctx context.Context, req lifecycle.CancelRequest) (int64, error)
}
