// internal/models/template.go
package models

import "time"

// Channel is the delivery medium of a template or queue record.
type Channel string

const (
	ChannelEmail Channel = "e-mail"
	ChannelInApp Channel = "in-app"
)

// Normalize maps the unset channel onto e-mail.
func (c Channel) Normalize() Channel {
	if c == "" {
		return ChannelEmail
	}
	return c
}

func (c Channel) IsInApp() bool {
	return c == ChannelInApp
}

// NotificationTemplate describes how to build one message for an event key.
// PartnerID is empty for the global (default) scope.
type NotificationTemplate struct {
	ID        string    `json:"id"`
	Key       string    `json:"key" validate:"required"`
	Name      string    `json:"name"`
	Channel   Channel   `json:"channel" validate:"omitempty,oneof=e-mail in-app"`
	PartnerID string    `json:"partnerId"`
	Enabled   bool      `json:"enabled"`
	From      string    `json:"from"`
	ReplyTo   string    `json:"replyTo"`
	To        string    `json:"to"`
	CC        string    `json:"cc"`
	BCC       string    `json:"bcc"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MappingKey identifies the template inside a resolved key+channel mapping.
func (t NotificationTemplate) MappingKey() string {
	return t.Key + string(t.Channel.Normalize())
}

func (t NotificationTemplate) IsGlobal() bool {
	return t.PartnerID == ""
}
