// internal/render/renderer.go
package render

import (
	"context"
	"fmt"
	"time"

	"notification-queue/internal/common/validation"
	"notification-queue/internal/models"
)

const (
	DefaultTimezone    = "Asia/Yerevan"
	DefaultStaleWindow = 7 * 24 * time.Hour
)

type Config struct {
	DefaultTimezone string
	StaleWindow     time.Duration
}

// Result is a rendered template ready to be stored on a queue record.
type Result struct {
	Cancel  bool
	Channel models.Channel
	Fields  models.RenderedFields
	// BodyRaw is the expanded body before markup conversion.
	BodyRaw string
}

type Renderer struct {
	markup      MarkupConverter
	loc         *time.Location
	staleWindow time.Duration
	now         func() time.Time
}

func NewRenderer(cfg Config, markup MarkupConverter) (*Renderer, error) {
	tz := cfg.DefaultTimezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load default timezone %q: %w", tz, err)
	}
	stale := cfg.StaleWindow
	if stale <= 0 {
		stale = DefaultStaleWindow
	}
	return &Renderer{
		markup:      markup,
		loc:         loc,
		staleWindow: stale,
		now:         time.Now,
	}, nil
}

// Render expands every template field against data. A nil date, or a template
// that is disabled, or a date outside the stale window yields Cancel.
func (r *Renderer) Render(ctx context.Context, data map[string]interface{}, date *time.Time, tmpl models.NotificationTemplate) (*Result, error) {
	res := &Result{
		Cancel:  r.shouldCancel(tmpl.Enabled, date),
		Channel: tmpl.Channel,
	}
	res.Fields.Name = tmpl.Name

	fields := []struct {
		raw string
		dst *string
	}{
		{tmpl.From, &res.Fields.From},
		{tmpl.ReplyTo, &res.Fields.ReplyTo},
		{tmpl.CC, &res.Fields.CC},
		{tmpl.BCC, &res.Fields.BCC},
		{tmpl.Subject, &res.Fields.Subject},
		{tmpl.Body, &res.BodyRaw},
	}
	for _, f := range fields {
		v, err := r.Expand(data, f.raw, false)
		if err != nil {
			return nil, err
		}
		*f.dst = stringify(v)
	}

	if validation.IsEmail(tmpl.To) {
		res.Fields.To = tmpl.To
	} else {
		v, err := r.Expand(data, tmpl.To, true)
		if err != nil {
			return nil, err
		}
		res.Fields.To = stringify(v)
	}

	body, err := r.convertBody(ctx, tmpl.Channel, res.BodyRaw)
	if err != nil {
		return nil, err
	}
	res.Fields.Body = body

	return res, nil
}

// Expand resolves a single field value. A value is first looked up as a path
// into data; list results are comma joined. Without a hit, force mode returns
// the (empty) lookup result for marker-free values, and everything else is
// evaluated as a template.
func (r *Renderer) Expand(data map[string]interface{}, raw string, force bool) (interface{}, error) {
	field, err := ParseField(raw)
	if err != nil {
		return nil, err
	}

	s := &scope{data: data, loc: r.loc, now: r.now()}

	switch f := field.(type) {
	case EmptyField:
		return nil, nil
	case PathField:
		v, _ := lookupPath(data, f.raw, f.path)
		if truthy(v) {
			return flatten(v), nil
		}
		if force {
			return v, nil
		}
		return f.raw, nil
	case TemplateField:
		if v, _ := lookupPath(data, f.raw, nil); truthy(v) {
			return flatten(v), nil
		}
		return s.renderSegments(f.segments)
	}
	return nil, fmt.Errorf("%w: unknown field kind", ErrEvaluation)
}

func (r *Renderer) shouldCancel(enabled bool, date *time.Time) bool {
	if !enabled || date == nil {
		return true
	}
	return !date.After(r.now().Add(-r.staleWindow))
}

func (r *Renderer) convertBody(ctx context.Context, channel models.Channel, body string) (string, error) {
	if channel.IsInApp() || body == "" {
		return body, nil
	}
	return r.markup.ToHTML(ctx, body)
}
