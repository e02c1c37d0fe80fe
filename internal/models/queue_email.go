// internal/models/queue_email.go
package models

import "time"

// QueueEmail is one durable, per-recipient-group delivery unit.
type QueueEmail struct {
	ID             string                 `json:"id"`
	NotificationID string                 `json:"notificationId"`
	PartnerID      string                 `json:"partnerId"`
	Key            string                 `json:"key"`
	Channel        Channel                `json:"channel"`
	Date           *time.Time             `json:"date"`
	UniqueKey      *string                `json:"uniqueKey"`
	Emails         []string               `json:"emails"`
	Name           string                 `json:"name"`
	From           string                 `json:"from"`
	ReplyTo        string                 `json:"replyTo"`
	To             string                 `json:"to"`
	CC             string                 `json:"cc"`
	BCC            string                 `json:"bcc"`
	Subject        string                 `json:"subject"`
	Body           string                 `json:"body"`
	Cancel         bool                   `json:"cancel"`
	Sent           bool                   `json:"sent"`
	Read           bool                   `json:"read"`
	Processing     bool                   `json:"processing"`
	History        History                `json:"history"`
	Data           map[string]interface{} `json:"data"`
	AttachmentData *AttachmentData        `json:"attachmentData,omitempty"`
	CancelReason   *string                `json:"cancelReason"`
	Result         map[string]interface{} `json:"result,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// RenderedFields are the template-derived columns of a queue record.
type RenderedFields struct {
	Name    string
	From    string
	ReplyTo string
	To      string
	CC      string
	BCC     string
	Subject string
	Body    string
}

// Rendered extracts the template-derived columns.
func (q *QueueEmail) Rendered() RenderedFields {
	return RenderedFields{
		Name:    q.Name,
		From:    q.From,
		ReplyTo: q.ReplyTo,
		To:      q.To,
		CC:      q.CC,
		BCC:     q.BCC,
		Subject: q.Subject,
		Body:    q.Body,
	}
}

// ApplyRendered overwrites the template-derived columns.
func (q *QueueEmail) ApplyRendered(f RenderedFields) {
	q.Name = f.Name
	q.From = f.From
	q.ReplyTo = f.ReplyTo
	q.To = f.To
	q.CC = f.CC
	q.BCC = f.BCC
	q.Subject = f.Subject
	q.Body = f.Body
}
