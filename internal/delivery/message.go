// internal/delivery/message.go
package delivery

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/mail.v2"
)

// EmailMessage is the channel payload handed to an email transport.
type EmailMessage struct {
	From        string
	ReplyTo     string
	To          string
	CC          string
	BCC         string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
	ICalEvent   *ICalEvent
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ICalEvent is a calendar invitation sent as an alternative body part.
type ICalEvent struct {
	Method  string
	Content string
}

// Recipients returns every envelope recipient, bcc included.
func (m *EmailMessage) Recipients() []string {
	var out []string
	for _, list := range []string{m.To, m.CC, m.BCC} {
		out = append(out, splitAddresses(list)...)
	}
	return out
}

// Build assembles the MIME message. Bcc is set as a header so SMTP picks it
// up as a recipient, but it is never serialized.
func (m *EmailMessage) Build() *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.From)
	if to := splitAddresses(m.To); len(to) > 0 {
		msg.SetHeader("To", to...)
	}
	if cc := splitAddresses(m.CC); len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	if bcc := splitAddresses(m.BCC); len(bcc) > 0 {
		msg.SetHeader("Bcc", bcc...)
	}
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)

	msg.SetBody("text/plain", m.Text)
	if m.HTML != "" {
		msg.AddAlternative("text/html", m.HTML)
	}
	if m.ICalEvent != nil {
		method := strings.ToUpper(m.ICalEvent.Method)
		if method == "" {
			method = "REQUEST"
		}
		msg.AddAlternative("text/calendar; method="+method, m.ICalEvent.Content)
	}

	for _, a := range m.Attachments {
		a := a
		settings := []mail.FileSetting{
			mail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, mail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Filename, settings...)
	}
	return msg
}

// Raw serializes the message for APIs that accept a raw MIME document.
func (m *EmailMessage) Raw() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.Build().WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	return buf.Bytes(), nil
}

func splitAddresses(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
