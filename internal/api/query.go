// internal/api/query.go
package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notification-queue/internal/common/database"
	"notification-queue/internal/common/errors"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"
	"notification-queue/internal/templates"
)

type queryParser struct {
	values url.Values
	errs   []string
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.values.Get(name))
}

func (p *queryParser) optStr(name string) *string {
	if _, ok := p.values[name]; !ok {
		return nil
	}
	v := p.str(name)
	return &v
}

func (p *queryParser) boolean(name string) *bool {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be a boolean", name))
		return nil
	}
	return &v
}

func (p *queryParser) integer(name string) int {
	raw := p.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0
	}
	return v
}

func (p *queryParser) date(name string) *time.Time {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s must be an RFC 3339 timestamp", name))
		return nil
	}
	return &v
}

func (p *queryParser) page() database.Page {
	return database.Page{
		Sort:  p.str("_sort"),
		Start: p.integer("_start"),
		Limit: p.integer("_limit"),
	}
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return errors.NewInvalidRequestError(strings.Join(p.errs, "; "))
}

func parseQueueFilter(values url.Values) (queue.Filter, error) {
	p := &queryParser{values: values}
	f := queue.Filter{
		PartnerID:      p.optStr("partnerId"),
		Key:            p.str("key"),
		Channel:        models.Channel(p.str("channel")),
		UniqueKey:      p.str("uniqueKey"),
		NotificationID: p.str("notificationId"),
		Cancel:         p.boolean("cancel"),
		Sent:           p.boolean("sent"),
		Read:           p.boolean("read"),
		DateFrom:       p.date("dateFrom"),
		DateTo:         p.date("dateTo"),
		Page:           p.page(),
	}
	return f, p.err()
}

func parseTemplateFilter(values url.Values) (templates.Filter, error) {
	p := &queryParser{values: values}
	f := templates.Filter{
		PartnerID: p.optStr("partnerId"),
		Key:       p.str("key"),
		Channel:   models.Channel(p.str("channel")),
		Enabled:   p.boolean("enabled"),
		Page:      p.page(),
	}
	return f, p.err()
}
