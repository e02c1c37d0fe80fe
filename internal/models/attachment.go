// internal/models/attachment.go
package models

import "time"

// AttachmentData is the raw attachment description stored on a queue record
// and resolved just before delivery.
type AttachmentData struct {
	Calendar *CalendarEvent `json:"calendar,omitempty"`
	FileList []FileRef      `json:"fileList,omitempty"`
	File     *FileRef       `json:"file,omitempty"`
	QR       *QRCode        `json:"qr,omitempty"`
}

func (a *AttachmentData) IsEmpty() bool {
	return a == nil || (a.Calendar == nil && len(a.FileList) == 0 && a.File == nil && a.QR == nil)
}

type FileRef struct {
	Src      string `json:"src"`
	Filename string `json:"filename"`
}

type QRCode struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type CalendarEvent struct {
	UID         string            `json:"uid,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Location    string            `json:"location,omitempty"`
	URL         string            `json:"url,omitempty"`
	Start       time.Time         `json:"start"`
	End         *time.Time        `json:"end,omitempty"`
	Duration    *CalendarDuration `json:"duration,omitempty"`
	Organizer   *CalendarPerson   `json:"organizer,omitempty"`
	Attendees   []CalendarPerson  `json:"attendees,omitempty"`
}

type CalendarDuration struct {
	Days    int `json:"days,omitempty"`
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
}

type CalendarPerson struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	RSVP  bool   `json:"rsvp,omitempty"`
}

// EndTime returns the explicit end, or start plus duration, or one hour after start.
func (c CalendarEvent) EndTime() time.Time {
	if c.End != nil {
		return *c.End
	}
	if c.Duration != nil {
		d := time.Duration(c.Duration.Days)*24*time.Hour +
			time.Duration(c.Duration.Hours)*time.Hour +
			time.Duration(c.Duration.Minutes)*time.Minute
		if d > 0 {
			return c.Start.Add(d)
		}
	}
	return c.Start.Add(time.Hour)
}
