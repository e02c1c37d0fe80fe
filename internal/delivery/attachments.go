// internal/delivery/attachments.go
package delivery

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"notification-queue/internal/common/http"
	"notification-queue/internal/models"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"
)

const qrSize = 256

// Fetcher downloads attachment sources. *http.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Resolved is the normalized attachment set of one record.
type Resolved struct {
	Attachments []Attachment
	ICalEvent   *ICalEvent
}

type Resolver struct {
	fetcher     Fetcher
	concurrency int
	now         func() time.Time
}

func NewResolver(fetcher Fetcher, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Resolver{fetcher: fetcher, concurrency: concurrency, now: time.Now}
}

// Resolve builds every attachment described by data. Any single failure fails
// the whole set.
func (r *Resolver) Resolve(ctx context.Context, data *models.AttachmentData) (*Resolved, error) {
	out := &Resolved{}
	if data.IsEmpty() {
		return out, nil
	}

	if data.Calendar != nil {
		content, err := r.calendar(*data.Calendar)
		if err != nil {
			return nil, err
		}
		out.ICalEvent = &ICalEvent{Method: "request", Content: content}
	}

	refs := append([]models.FileRef{}, data.FileList...)
	if data.File != nil {
		refs = append(refs, *data.File)
	}
	files, err := r.download(ctx, refs)
	if err != nil {
		return nil, err
	}
	out.Attachments = append(out.Attachments, files...)

	if data.QR != nil {
		png, err := qrcode.Encode(data.QR.URL, qrcode.Medium, qrSize)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		name := data.QR.Filename
		if name == "" {
			name = "qr"
		}
		out.Attachments = append(out.Attachments, Attachment{
			Filename:    name + ".png",
			ContentType: "image/png",
			Content:     png,
		})
	}
	return out, nil
}

func (r *Resolver) download(ctx context.Context, refs []models.FileRef) ([]Attachment, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	files := make([]Attachment, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			resp, err := r.fetcher.Get(gctx, ref.Src)
			if err != nil {
				return fmt.Errorf("download attachment %s: %w", ref.Src, err)
			}
			files[i] = Attachment{
				Filename:    fileName(ref),
				ContentType: resp.Header.Get("Content-Type"),
				Content:     resp.Body,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func fileName(ref models.FileRef) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	if u, err := url.Parse(ref.Src); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "attachment"
}

func (r *Resolver) calendar(c models.CalendarEvent) (string, error) {
	if c.Start.IsZero() {
		return "", fmt.Errorf("calendar event %q has no start", c.Title)
	}
	uid := c.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//notification-queue//calendar//EN")

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(r.now().UTC())
	ev.SetStartAt(c.Start.UTC())
	ev.SetEndAt(c.EndTime().UTC())
	ev.SetSummary(c.Title)
	if c.Description != "" {
		ev.SetDescription(c.Description)
	}
	if c.Location != "" {
		ev.SetLocation(c.Location)
	}
	if c.URL != "" {
		ev.SetURL(c.URL)
	}
	if c.Organizer != nil && c.Organizer.Email != "" {
		ev.SetOrganizer("mailto:"+c.Organizer.Email, personParams(*c.Organizer)...)
	}
	for _, a := range c.Attendees {
		if a.Email == "" {
			continue
		}
		ev.AddAttendee(a.Email, personParams(a)...)
	}
	return cal.Serialize(), nil
}

func personParams(p models.CalendarPerson) []ics.PropertyParameter {
	var params []ics.PropertyParameter
	if p.Name != "" {
		params = append(params, ics.WithCN(p.Name))
	}
	if p.RSVP {
		params = append(params, ics.WithRSVP(true))
	}
	return params
}
