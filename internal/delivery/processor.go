// internal/delivery/processor.go
package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/logger"
	"notification-queue/internal/common/metrics"
	"notification-queue/internal/common/observability"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"

	"github.com/google/uuid"
	"github.com/jaytaylor/html2text"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize          = 50
	DefaultPlaceholderPattern = "@contactid"

	// forwardSkip disables email delivery while still marking records sent.
	forwardSkip = "false"

	releasedReason = "No deliverable recipient"

	// settleTimeout bounds the store write that clears a claim once the run
	// context is gone.
	settleTimeout = 10 * time.Second
)

type Config struct {
	BatchSize   int
	Concurrency int
	// BaseURL prefixes the read tracking pixel.
	BaseURL            string
	PlaceholderPattern string
	ForwardTo          string
}

// TransportPool resolves the email transport for a sender address.
type TransportPool interface {
	For(ctx context.Context, from string) (Transport, error)
}

type MessageSender interface {
	Send(ctx context.Context, msg InAppMessage) (map[string]interface{}, error)
}

type AttachmentResolver interface {
	Resolve(ctx context.Context, data *models.AttachmentData) (*Resolved, error)
}

type RunResult struct {
	ProcessingID string `json:"processingId"`
	Claimed      int    `json:"claimed"`
	Sent         int    `json:"sent"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	Deferred     int    `json:"deferred"`
}

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped  = "skipped"
	outcomeDeferred = "deferred"
)

// Processor claims due queue records and delivers them.
type Processor struct {
	cfg       Config
	queue     queue.Store
	transport TransportPool
	inApp     MessageSender
	resolver  AttachmentResolver
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

func NewProcessor(cfg Config, q queue.Store, pool TransportPool, inApp MessageSender, resolver AttachmentResolver, obs *observability.Observability, log logger.Logger) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PlaceholderPattern == "" {
		cfg.PlaceholderPattern = DefaultPlaceholderPattern
	}
	return &Processor{
		cfg:       cfg,
		queue:     q,
		transport: pool,
		inApp:     inApp,
		resolver:  resolver,
		obs:       obs,
		logger:    log,
		now:       time.Now,
	}
}

// Run claims one batch of due records and delivers each of them. Item
// failures are recorded on the item and never fail the run.
func (p *Processor) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{ProcessingID: uuid.NewString()}
	log := p.logger.WithFields(map[string]interface{}{logger.FieldProcessingID: res.ProcessingID})

	entry := models.NewHistoryEntry(models.ActionStartProcessing, map[string]interface{}{"cronJobId": res.ProcessingID})
	items, err := p.queue.Claim(ctx, p.cfg.BatchSize, p.now(), entry)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("claim", err)
	}
	res.Claimed = len(items)
	metrics.QueueItemsClaimed.Add(float64(len(items)))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := range items {
		item := items[i]
		g.Go(func() error {
			outcome := p.processItem(gctx, res.ProcessingID, item)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSent:
				res.Sent++
			case outcomeSkipped:
				res.Skipped++
			case outcomeDeferred:
				res.Deferred++
			default:
				res.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	p.obs.RecordBatchRun(ctx, time.Since(start), map[string]int{
		outcomeSent:     res.Sent,
		outcomeFailed:   res.Failed,
		outcomeSkipped:  res.Skipped,
		outcomeDeferred: res.Deferred,
	})
	log.Info("Queue processing finished", map[string]interface{}{
		"claimed":  res.Claimed,
		"success":  res.Sent,
		"failed":   res.Failed,
		"skipped":  res.Skipped,
		"deferred": res.Deferred,
		"duration": time.Since(start).String(),
	})
	return res, nil
}

func (p *Processor) processItem(ctx context.Context, processingID string, item models.QueueEmail) (outcome string) {
	log := p.logger.WithFields(map[string]interface{}{
		logger.FieldQueueEmailID: item.ID,
		logger.FieldTo:           item.To,
		logger.FieldKey:          item.Key,
		logger.FieldProcessingID: processingID,
	})
	channel := string(item.Channel.Normalize())

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing queue record", map[string]interface{}{"panic": fmt.Sprint(r)})
			outcome = p.fail(ctx, log, processingID, item, fmt.Errorf("panic: %v", r))
		}
	}()

	if p.undeliverable(item.To) {
		if err := p.settle(ctx, func(wctx context.Context) error {
			return p.queue.Release(wctx, item.ID, releasedReason)
		}); err != nil {
			log.Error("Failed to release queue record", map[string]interface{}{"error": err.Error()})
		}
		metrics.QueueItemsSkipped.Inc()
		log.Debug("Skipping record without deliverable recipient", nil)
		return outcomeSkipped
	}

	// the run deadline passed before this item got a slot
	if err := ctx.Err(); err != nil {
		return p.abort(ctx, log, processingID, item, err)
	}

	var (
		action = models.ActionSendMail
		result map[string]interface{}
		err    error
	)
	if item.Channel.IsInApp() {
		action = models.ActionSendMessage
		result, err = p.inApp.Send(ctx, InAppMessage{To: item.To, Subject: item.Subject, Text: item.Body})
		if err != nil {
			err = errors.NewDeliveryFailedError(channel, err)
		}
	} else {
		result, err = p.sendEmail(ctx, item)
	}
	if err != nil {
		return p.fail(ctx, log, processingID, item, err)
	}

	done := queue.Outcome{
		Sent:   true,
		Entry:  models.NewHistoryEntry(action, map[string]interface{}{"cronJobId": processingID, "result": result}),
		Result: result,
	}
	if err := p.settle(ctx, func(wctx context.Context) error {
		return p.queue.Complete(wctx, item.ID, done)
	}); err != nil {
		log.Error("Failed to record delivery", map[string]interface{}{"error": err.Error()})
		metrics.QueueItemsFailed.WithLabelValues(channel).Inc()
		return outcomeFailed
	}
	metrics.QueueItemsSent.WithLabelValues(channel).Inc()
	log.Info("Queue record delivered", map[string]interface{}{"channel": channel})
	return outcomeSent
}

func (p *Processor) fail(ctx context.Context, log logger.Logger, processingID string, item models.QueueEmail, cause error) string {
	channel := string(item.Channel.Normalize())
	reason := describe(cause)
	log.Error("Queue record delivery failed", map[string]interface{}{
		"channel": channel,
		"error":   reason,
	})
	metrics.QueueItemsFailed.WithLabelValues(channel).Inc()

	failed := queue.Outcome{
		Entry: models.NewHistoryEntry(models.ActionSendFail, map[string]interface{}{
			"cronJobId": processingID,
			"error":     reason,
		}),
		Result: map[string]interface{}{"error": reason},
	}
	if err := p.settle(ctx, func(wctx context.Context) error {
		return p.queue.Complete(wctx, item.ID, failed)
	}); err != nil {
		log.Error("Failed to record delivery failure", map[string]interface{}{"error": err.Error()})
	}
	return outcomeFailed
}

// abort hands a claimed record back unsent so a later run picks it up.
func (p *Processor) abort(ctx context.Context, log logger.Logger, processingID string, item models.QueueEmail, cause error) string {
	entry := models.NewHistoryEntry(models.ActionAbort, map[string]interface{}{
		"cronJobId": processingID,
		"error":     cause.Error(),
	})
	if err := p.settle(ctx, func(wctx context.Context) error {
		return p.queue.Unclaim(wctx, item.ID, entry)
	}); err != nil {
		log.Error("Failed to clear claim", map[string]interface{}{"error": err.Error()})
	}
	log.Warn("Run deadline reached, record left for the next run", map[string]interface{}{"error": cause.Error()})
	return outcomeDeferred
}

// settle runs a claim-clearing write on a context that survives the run's
// cancellation, bounded by settleTimeout.
func (p *Processor) settle(ctx context.Context, write func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	return write(wctx)
}

// describe flattens a delivery error into the text stored in history.
func describe(err error) string {
	std := errors.Normalize(err)
	if std.Details == "" {
		return std.Message
	}
	return std.Message + ": " + std.Details
}

func (p *Processor) undeliverable(to string) bool {
	return strings.TrimSpace(to) == "" || strings.Contains(strings.ToLower(to), strings.ToLower(p.cfg.PlaceholderPattern))
}

func (p *Processor) sendEmail(ctx context.Context, item models.QueueEmail) (map[string]interface{}, error) {
	if p.cfg.ForwardTo == forwardSkip {
		return map[string]interface{}{"message": "Skipped"}, nil
	}

	msg := &EmailMessage{
		From:    item.From,
		ReplyTo: item.ReplyTo,
		To:      item.To,
		CC:      item.CC,
		BCC:     item.BCC,
		Subject: item.Subject,
		HTML:    item.Body + p.trackingPixel(item.ID),
		Text:    plainText(item.Body),
	}
	if p.cfg.ForwardTo != "" {
		msg.To, msg.CC, msg.BCC = p.cfg.ForwardTo, "", ""
	}

	if !item.AttachmentData.IsEmpty() {
		resolved, err := p.resolver.Resolve(ctx, item.AttachmentData)
		if err != nil {
			return nil, errors.NewAttachmentResolutionFailedError(err)
		}
		msg.Attachments = resolved.Attachments
		msg.ICalEvent = resolved.ICalEvent
	}

	transport, err := p.transport.For(ctx, item.From)
	if err != nil {
		return nil, errors.NewDeliveryFailedError(string(models.ChannelEmail), err)
	}
	result, err := transport.Send(ctx, msg)
	if err != nil {
		return nil, errors.NewDeliveryFailedError(string(models.ChannelEmail), err)
	}
	return result, nil
}

func (p *Processor) trackingPixel(id string) string {
	return fmt.Sprintf(`<img src="%s/read/%s" alt="." style="width: 1px; height: 1px;">`, strings.TrimRight(p.cfg.BaseURL, "/"), id)
}

func plainText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{})
	if err != nil {
		return html
	}
	return text
}
