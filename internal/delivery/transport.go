// internal/delivery/transport.go
package delivery

import (
	"context"
	"fmt"

	"notification-queue/internal/common/aws"

	"gopkg.in/mail.v2"
)

// Transport delivers one email. The returned result is stored on the record.
type Transport interface {
	Send(ctx context.Context, msg *EmailMessage) (map[string]interface{}, error)
}

// SESTransport sends raw MIME messages through SES.
type SESTransport struct {
	client *aws.SESClient
}

func NewSESTransport(client *aws.SESClient) *SESTransport {
	return &SESTransport{client: client}
}

func (t *SESTransport) Send(ctx context.Context, msg *EmailMessage) (map[string]interface{}, error) {
	raw, err := msg.Raw()
	if err != nil {
		return nil, err
	}
	id, err := t.client.SendRaw(ctx, msg.From, msg.Recipients(), raw)
	if err != nil {
		return nil, fmt.Errorf("ses send: %w", err)
	}
	return map[string]interface{}{
		"messageId": id,
		"accepted":  msg.Recipients(),
	}, nil
}

// SMTPSender is satisfied by *mail.Dialer.
type SMTPSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPTransport dials the relay per message.
type SMTPTransport struct {
	sender SMTPSender
}

func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{sender: mail.NewDialer(host, port, username, password)}
}

func NewSMTPTransportWithSender(sender SMTPSender) *SMTPTransport {
	return &SMTPTransport{sender: sender}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *EmailMessage) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending email: %w", err)
	}
	if err := t.sender.DialAndSend(msg.Build()); err != nil {
		return nil, fmt.Errorf("smtp send: %w", err)
	}
	return map[string]interface{}{"accepted": msg.Recipients()}, nil
}
