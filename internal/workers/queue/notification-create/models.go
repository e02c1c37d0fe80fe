// internal/workers/queue/notification-create/models.go
package notificationcreate

import (
	"context"

	"notification-queue/internal/dispatch"
	"notification-queue/internal/models"
)

type Input = models.NotificationBatch

type Output struct {
	Created int      `json:"created"`
	Reused  int      `json:"reused"`
	Failed  int      `json:"failed"`
	IDs     []string `json:"notificationIds"`
}

type Creator interface {
	CreateNotifications(ctx context.Context, batch models.NotificationBatch) (*dispatch.CreateResult, error)
}
