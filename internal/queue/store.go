// internal/queue/store.go
package queue

import (
	"context"
	"errors"
	"time"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"
)

var ErrNotFound = errors.New("queue record not found")

// Filter narrows record listings. Nil pointers do not filter.
type Filter struct {
	PartnerID      *string
	Key            string
	Channel        models.Channel
	UniqueKey      string
	NotificationID string
	Cancel         *bool
	Sent           *bool
	Read           *bool
	DateFrom       *time.Time
	DateTo         *time.Time
	database.Page
}

// Match selects pending records for cancellation or removal. Empty fields do
// not narrow. Since is the lower bound on the scheduled date.
type Match struct {
	Key       string
	UniqueKey string
	Email     string
	Since     time.Time
}

// Outcome is the terminal state written after a delivery attempt.
type Outcome struct {
	Sent   bool
	Entry  models.HistoryEntry
	Result map[string]interface{}
}

// Rerender is the result of re-rendering a record. A nil Fields means the
// render failed and only FailureReason is recorded.
type Rerender struct {
	Entry         models.HistoryEntry
	Fields        *models.RenderedFields
	Emails        []string
	FailureReason string
}

// Store is the persistence contract for queue records. History is only ever
// appended to.
type Store interface {
	Create(ctx context.Context, rec *models.QueueEmail) error
	Get(ctx context.Context, id string) (*models.QueueEmail, error)
	List(ctx context.Context, f Filter) ([]models.QueueEmail, error)
	Count(ctx context.Context, f Filter) (int, error)
	Search(ctx context.Context, q string, page database.Page) ([]models.QueueEmail, error)

	// CancelMatching sets cancel on unsent, uncancelled records.
	CancelMatching(ctx context.Context, m Match) (int64, error)
	// DeleteMatching removes unsent records regardless of their cancel flag.
	DeleteMatching(ctx context.Context, m Match) (int64, error)
	// Cleanup removes cancelled, unsent records.
	Cleanup(ctx context.Context, key string, since time.Time) (int64, error)

	// Claim marks up to limit due records as processing in one statement and
	// returns them. Records claimed by a concurrent run are never returned.
	Claim(ctx context.Context, limit int, now time.Time, entry models.HistoryEntry) ([]models.QueueEmail, error)
	// Complete clears the claim and records a delivery outcome.
	Complete(ctx context.Context, id string, o Outcome) error
	// Release clears the claim of a record that will never be delivered.
	Release(ctx context.Context, id, reason string) error
	// Unclaim clears the claim without an outcome, leaving the record due.
	Unclaim(ctx context.Context, id string, entry models.HistoryEntry) error

	// MarkRead reports false when no record has id.
	MarkRead(ctx context.Context, id string, entry models.HistoryEntry) (bool, error)
	ApplyRerender(ctx context.Context, id string, r Rerender) (*models.QueueEmail, error)
}
