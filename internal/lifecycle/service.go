// internal/lifecycle/service.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/dispatch"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"
	"notification-queue/internal/templates"
)

// Service runs the operations that move queue records between states outside
// of delivery: cancel, cleanup, read receipts and reprocessing.
type Service struct {
	queue        queue.Store
	templates    templates.Store
	renderer     dispatch.Renderer
	windowMonths int
	logger       logger.Logger
	now          func() time.Time
}

func NewService(windowMonths int, q queue.Store, tpl templates.Store, r dispatch.Renderer, log logger.Logger) *Service {
	if windowMonths <= 0 {
		windowMonths = 2
	}
	return &Service{
		queue:        q,
		templates:    tpl,
		renderer:     r,
		windowMonths: windowMonths,
		logger:       log,
		now:          time.Now,
	}
}

func (s *Service) since(date *time.Time) time.Time {
	if date != nil {
		return *date
	}
	return s.now().AddDate(0, -s.windowMonths, 0)
}

// Cancel cancels, or with Remove deletes, the pending records matching the
// request. A request without key, or without both uniqueKey and email, is
// ignored.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (int64, error) {
	if !req.Identified() {
		s.logger.Warn("Ignoring cancel request without key and uniqueKey or email", map[string]interface{}{
			logger.FieldKey: req.Key,
			"uniqueKey":     req.UniqueKey,
			"email":         req.Email,
		})
		return 0, nil
	}

	m := queue.Match{
		Key:       req.Key,
		UniqueKey: req.UniqueKey,
		Email:     req.Email,
		Since:     s.since(req.Date),
	}

	var (
		n   int64
		err error
	)
	if req.Remove {
		n, err = s.queue.DeleteMatching(ctx, m)
	} else {
		n, err = s.queue.CancelMatching(ctx, m)
	}
	if err != nil {
		return 0, fmt.Errorf("cancel %q: %w", req.Key, err)
	}

	s.logger.Info("Queue records cancelled", map[string]interface{}{
		logger.FieldKey: req.Key,
		"uniqueKey":     req.UniqueKey,
		"removed":       bool(req.Remove),
		"affected":      n,
	})
	return n, nil
}

// Cleanup deletes cancelled, unsent records.
func (s *Service) Cleanup(ctx context.Context, req CleanupRequest) (int64, error) {
	n, err := s.queue.Cleanup(ctx, req.Key, s.since(req.Date))
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	s.logger.Info("Cancelled queue records deleted", map[string]interface{}{
		logger.FieldKey: req.Key,
		"deleted":       n,
	})
	return n, nil
}

// Read records a read receipt. Unknown ids are ignored.
func (s *Service) Read(ctx context.Context, id, userAgent string) (bool, error) {
	if id == "" {
		return false, nil
	}
	entry := models.NewHistoryEntry(models.ActionRead, map[string]interface{}{"userAgent": userAgent})
	found, err := s.queue.MarkRead(ctx, id, entry)
	if err != nil {
		return false, fmt.Errorf("mark read %s: %w", id, err)
	}
	if !found {
		s.logger.Debug("Read receipt for unknown record", map[string]interface{}{logger.FieldQueueEmailID: id})
	}
	return found, nil
}

// Reprocess re-renders a record from its stored data with the template that
// governs it now. A successful render re-enables the record. A failed render
// only records the failure reason. Unknown ids return nil, nil and a record
// without a governing template is returned unchanged.
func (s *Service) Reprocess(ctx context.Context, req ReprocessRequest) (*models.QueueEmail, error) {
	if req.ID == "" {
		return nil, nil
	}

	rec, err := s.queue.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load queue record %s: %w", req.ID, err)
	}

	log := s.logger.WithFields(map[string]interface{}{
		logger.FieldQueueEmailID: rec.ID,
		logger.FieldKey:          rec.Key,
		logger.FieldPartnerID:    rec.PartnerID,
	})

	tmpl, err := templates.Governing(ctx, s.templates, rec.Key, rec.Channel, rec.PartnerID)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			log.Warn("No template governs record, nothing to reprocess", nil)
			return rec, nil
		}
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	entry := models.HistoryEntry{Action: models.ActionReprocess, Date: s.now().UTC()}
	if req.History != nil {
		entry = *req.History
		if entry.Action == "" {
			entry.Action = models.ActionReprocess
		}
		if entry.Date.IsZero() {
			entry.Date = s.now().UTC()
		}
	}

	data := rec.Data
	if data == nil {
		data = map[string]interface{}{}
	}

	update := queue.Rerender{Entry: entry}
	rendered, err := s.renderer.Render(ctx, data, nil, *tmpl)
	if err != nil {
		log.Error("Reprocess render failed", map[string]interface{}{"error": err.Error()})
		update.FailureReason = err.Error()
	} else {
		fields := rendered.Fields
		update.Fields = &fields
		update.Emails = dispatch.SplitRecipients(fields.To)
	}

	updated, err := s.queue.ApplyRerender(ctx, rec.ID, update)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("apply rerender %s: %w", rec.ID, err)
	}

	log.Info("Queue record reprocessed", map[string]interface{}{
		"cancel":       updated.Cancel,
		"renderFailed": update.Fields == nil,
	})
	return updated, nil
}
