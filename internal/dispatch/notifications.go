// internal/dispatch/notifications.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/models"
	"notification-queue/internal/notifications"
	"notification-queue/internal/queue"

	"golang.org/x/sync/errgroup"
)

type CreateResult struct {
	Created    int   `json:"created"`
	Reused     int   `json:"reused"`
	Failed     int   `json:"failed"`
	Superseded int64 `json:"superseded"`
	// IDs holds the stored or reused notification id of each list item, in
	// order. Failed items have an empty id.
	IDs []string `json:"ids"`
}

// CreateNotifications stores each notification entry and expands it into queue
// records. A batch unique key first cancels pending records sharing it. Entries
// flagged unique reuse an existing notification with the same key and unique
// key instead of creating a new one. Entry failures are logged and counted.
func (p *Planner) CreateNotifications(ctx context.Context, batch models.NotificationBatch) (*CreateResult, error) {
	res := &CreateResult{IDs: make([]string, len(batch.NotificationList))}
	if len(batch.NotificationList) == 0 {
		return res, nil
	}

	if batch.UniqueKey != "" {
		n, err := p.queue.CancelMatching(ctx, queue.Match{UniqueKey: batch.UniqueKey, Since: p.WindowStart()})
		if err != nil {
			return nil, fmt.Errorf("supersede unique key %q: %w", batch.UniqueKey, err)
		}
		res.Superseded = n
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i := range batch.NotificationList {
		i, item := i, batch.NotificationList[i]
		g.Go(func() error {
			id, reused, err := p.createOne(gctx, item)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				p.logger.Error("after create error", map[string]interface{}{
					logger.FieldKey:       item.Key,
					logger.FieldPartnerID: item.PartnerID,
					"error":               err.Error(),
				})
			case reused:
				res.Reused++
				res.IDs[i] = id
			default:
				res.Created++
				res.IDs[i] = id
			}
			return nil
		})
	}
	_ = g.Wait()

	return res, nil
}

func (p *Planner) createOne(ctx context.Context, item models.Notification) (string, bool, error) {
	if item.Unique && item.UniqueKey != nil && *item.UniqueKey != "" {
		existing, err := p.notifications.FindUnique(ctx, item.Key, *item.UniqueKey)
		if err == nil {
			return existing.ID, true, nil
		}
		if !errors.Is(err, notifications.ErrNotFound) {
			return "", false, err
		}
	}

	if err := p.notifications.Create(ctx, &item); err != nil {
		return "", false, err
	}

	_, err := p.expand(ctx, GenerateRequest{
		NotificationID: item.ID,
		PartnerID:      item.PartnerID,
		Key:            item.Key,
		Date:           item.Date,
		Data:           item.Data,
		UniqueKey:      item.UniqueKey,
		AttachmentData: item.AttachmentData,
	})
	if err != nil {
		return item.ID, false, fmt.Errorf("generate for notification %s: %w", item.ID, err)
	}
	return item.ID, false, nil
}
