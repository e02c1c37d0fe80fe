// internal/dispatch/planner.go
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/common/metrics"
	"notification-queue/internal/models"
	"notification-queue/internal/notifications"
	"notification-queue/internal/queue"
	"notification-queue/internal/render"
	"notification-queue/internal/templates"

	"github.com/hashicorp/go-multierror"
)

// errorMarker replaces every rendered field of a record whose template failed.
const errorMarker = "error"

// Renderer expands a template against event data.
type Renderer interface {
	Render(ctx context.Context, data map[string]interface{}, date *time.Time, tmpl models.NotificationTemplate) (*render.Result, error)
}

type Config struct {
	// CancelWindowMonths bounds how far back unique-key supersession reaches.
	CancelWindowMonths int
	// Concurrency bounds parallel notification entries in CreateNotifications.
	Concurrency int
}

// GenerateRequest is one notification event to expand into queue records.
type GenerateRequest struct {
	NotificationID string                 `json:"notificationId"`
	PartnerID      string                 `json:"partnerId"`
	Key            string                 `json:"key" validate:"required"`
	Date           *time.Time             `json:"date"`
	Data           map[string]interface{} `json:"data"`
	UniqueKey      *string                `json:"uniqueKey,omitempty"`
	AttachmentData *models.AttachmentData `json:"attachmentData,omitempty"`
}

type GenerateResult struct {
	RecordsCreated int   `json:"recordsCreated"`
	ErrorRecords   int   `json:"errorRecords"`
	Skipped        int   `json:"skipped"`
	Superseded     int64 `json:"superseded"`
	// Failed counts records that could not be written at all.
	Failed int `json:"failed"`
}

// Written reports whether any record reached the store.
func (r *GenerateResult) Written() bool {
	return r.RecordsCreated+r.ErrorRecords > 0
}

// Planner expands notification events into queue records.
type Planner struct {
	templates     templates.Store
	queue         queue.Store
	notifications notifications.Store
	renderer      Renderer
	cfg           Config
	logger        logger.Logger
	now           func() time.Time
}

func NewPlanner(cfg Config, tpl templates.Store, q queue.Store, n notifications.Store, r Renderer, log logger.Logger) *Planner {
	if cfg.CancelWindowMonths <= 0 {
		cfg.CancelWindowMonths = 2
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Planner{
		templates:     tpl,
		queue:         q,
		notifications: n,
		renderer:      r,
		cfg:           cfg,
		logger:        log,
		now:           time.Now,
	}
}

// WindowStart is the lower date bound of supersession, cancel and cleanup.
func (p *Planner) WindowStart() time.Time {
	return p.now().AddDate(0, -p.cfg.CancelWindowMonths, 0)
}

// Generate supersedes pending records sharing the request's unique key, then
// creates one record per resolved template. Render failures become cancelled
// error records. The returned error aggregates records that could not be stored.
func (p *Planner) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var superseded int64
	if req.UniqueKey != nil && *req.UniqueKey != "" {
		n, err := p.queue.CancelMatching(ctx, queue.Match{UniqueKey: *req.UniqueKey, Since: p.WindowStart()})
		if err != nil {
			return nil, fmt.Errorf("supersede unique key %q: %w", *req.UniqueKey, err)
		}
		superseded = n
	}

	res, err := p.expand(ctx, req)
	if res != nil {
		res.Superseded = superseded
	}
	return res, err
}

func (p *Planner) expand(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	mapping, err := templates.Resolve(ctx, p.templates, req.Key, req.PartnerID)
	if err != nil {
		return nil, err
	}

	data := req.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	attachments := req.AttachmentData
	if attachments.IsEmpty() {
		attachments = nil
	}

	res := &GenerateResult{}
	var storeErrs *multierror.Error

	for _, tmpl := range mapping.Templates() {
		log := p.logger.WithFields(map[string]interface{}{
			logger.FieldPartnerID: req.PartnerID,
			logger.FieldKey:       req.Key,
			"name":                tmpl.Name,
			"channel":             string(tmpl.Channel.Normalize()),
		})

		rec := &models.QueueEmail{
			NotificationID: req.NotificationID,
			PartnerID:      req.PartnerID,
			Key:            req.Key,
			Channel:        tmpl.Channel.Normalize(),
			Date:           req.Date,
			UniqueKey:      req.UniqueKey,
			Data:           data,
			AttachmentData: attachments,
			History:        models.History{},
		}

		outcome := "created"
		rendered, err := p.renderer.Render(ctx, data, req.Date, tmpl)
		if err != nil {
			log.Error("queue generation error", map[string]interface{}{"error": err.Error()})
			markFailed(rec, tmpl.Name, err)
			outcome = "error"
		} else {
			rec.ApplyRendered(rendered.Fields)
			rec.Cancel = rendered.Cancel
			rec.Emails = SplitRecipients(rendered.Fields.To)
			if rendered.Fields.To == "" {
				log.Debug("template has no recipient, skipping", nil)
				res.Skipped++
				metrics.QueueRecordsCreated.WithLabelValues("skipped").Inc()
				continue
			}
		}

		if err := p.queue.Create(ctx, rec); err != nil {
			log.Error("failed to store queue record", map[string]interface{}{"error": err.Error()})
			storeErrs = multierror.Append(storeErrs, fmt.Errorf("template %q: %w", tmpl.Name, err))
			res.Failed++
			continue
		}

		if outcome == "error" {
			res.ErrorRecords++
		} else {
			res.RecordsCreated++
		}
		metrics.QueueRecordsCreated.WithLabelValues(outcome).Inc()
	}

	return res, storeErrs.ErrorOrNil()
}

func markFailed(rec *models.QueueEmail, name string, cause error) {
	rec.ApplyRendered(models.RenderedFields{
		Name:    name,
		From:    errorMarker,
		ReplyTo: errorMarker,
		To:      errorMarker,
		CC:      errorMarker,
		BCC:     errorMarker,
		Subject: errorMarker,
		Body:    errorMarker,
	})
	rec.Emails = []string{}
	rec.Cancel = true
	reason := cause.Error()
	rec.CancelReason = &reason
}

// SplitRecipients splits a comma separated recipient list, dropping blanks.
func SplitRecipients(to string) []string {
	out := []string{}
	for _, part := range strings.Split(to, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
