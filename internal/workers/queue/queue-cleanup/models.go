// internal/workers/queue/queue-cleanup/models.go
package queuecleanup

import (
	"context"

	"notification-queue/internal/lifecycle"
)

type Input = lifecycle.CleanupRequest

type Output struct {
	Deleted int64 `json:"deleted"`
}

type Cleaner interface {
	Cleanup(ctx context.Context, req lifecycle.CleanupRequest) (int64, error)
}
