// internal/workers/queue/queue-reprocess/models.go
package queuereprocess

import (
	"context"

	"notification-queue/internal/lifecycle"
	"notification-queue/internal/models"
)

type Input = lifecycle.ReprocessRequest

type Output struct {
	ID           string  `json:"id"`
	Cancel       bool    `json:"cancel"`
	CancelReason *string `json:"cancelReason"`
}

type Reprocessor interface {
	Reprocess(ctx context.Context, req lifecycle.ReprocessRequest) (*models.QueueEmail, error)
}
