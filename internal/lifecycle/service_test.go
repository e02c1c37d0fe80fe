// internal/lifecycle/service_test.go
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"
	"notification-queue/internal/queue/queuetest"
	"notification-queue/internal/render"
	"notification-queue/internal/templates/templatestest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type htmlWrapper struct{}

func (htmlWrapper) ToHTML(_ context.Context, markup string) (string, error) {
	return "<html>" + markup + "</html>", nil
}

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func createTestService(t *testing.T, q *queuetest.Store, list ...models.NotificationTemplate) *Service {
	t.Helper()
	r, err := render.NewRenderer(render.Config{}, htmlWrapper{})
	require.NoError(t, err)
	s := NewService(2, q, templatestest.New(list...), r, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func storedRecord() *models.QueueEmail {
	reason := "Template is disabled"
	return &models.QueueEmail{
		ID:           "rec-1",
		PartnerID:    "p1",
		Key:          "welcome",
		Channel:      models.ChannelEmail,
		To:           "old@example.com",
		Cancel:       true,
		CancelReason: &reason,
		Data:         map[string]interface{}{"name": "Ann", "email": "ann@example.com"},
	}
}

func mailTemplate(partnerID, subject string) models.NotificationTemplate {
	return models.NotificationTemplate{
		Key:       "welcome",
		Name:      "Welcome mail",
		PartnerID: partnerID,
		Enabled:   false,
		To:        "{{data.email}}",
		Subject:   subject,
		Body:      "<mj-text>{{%= name %}}</mj-text>",
	}
}

// ==========================
// Cancel
// ==========================

func TestService_Cancel(t *testing.T) {
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		req           CancelRequest
		expectDelete  bool
		expectMatch   *queue.Match
		expectedCount int64
	}{
		{
			name:          "missing key is ignored",
			req:           CancelRequest{UniqueKey: "u1"},
			expectedCount: 0,
		},
		{
			name:          "key without uniqueKey or email is ignored",
			req:           CancelRequest{Key: "k"},
			expectedCount: 0,
		},
		{
			name:          "cancel by unique key in trailing window",
			req:           CancelRequest{Key: "k", UniqueKey: "u1"},
			expectMatch:   &queue.Match{Key: "k", UniqueKey: "u1", Since: fixedNow.AddDate(0, -2, 0)},
			expectedCount: 3,
		},
		{
			name:          "cancel by email from a given date",
			req:           CancelRequest{Key: "k", Email: "a@b.com", Date: &since},
			expectMatch:   &queue.Match{Key: "k", Email: "a@b.com", Since: since},
			expectedCount: 3,
		},
		{
			name:          "remove deletes",
			req:           CancelRequest{Key: "k", UniqueKey: "u1", Remove: true},
			expectDelete:  true,
			expectMatch:   &queue.Match{Key: "k", UniqueKey: "u1", Since: fixedNow.AddDate(0, -2, 0)},
			expectedCount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cancelled, deleted bool
			q := &queuetest.Store{
				CancelMatchingFunc: func(context.Context, queue.Match) (int64, error) {
					cancelled = true
					return 3, nil
				},
				DeleteMatchingFunc: func(context.Context, queue.Match) (int64, error) {
					deleted = true
					return 5, nil
				},
			}
			s := createTestService(t, q)

			n, err := s.Cancel(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedCount, n)
			if tt.expectMatch == nil {
				assert.Empty(t, q.Matches)
				return
			}
			require.Len(t, q.Matches, 1)
			assert.Equal(t, *tt.expectMatch, q.Matches[0])
			assert.Equal(t, tt.expectDelete, deleted)
			assert.Equal(t, !tt.expectDelete, cancelled)
		})
	}
}

func TestService_Cancel_RemoveTwice(t *testing.T) {
	pending := map[string]int64{"u1": 2}
	q := &queuetest.Store{DeleteMatchingFunc: func(_ context.Context, m queue.Match) (int64, error) {
		n := pending[m.UniqueKey]
		delete(pending, m.UniqueKey)
		return n, nil
	}}
	s := createTestService(t, q)

	var req CancelRequest
	require.NoError(t, json.Unmarshal([]byte(`{"key":"k","uniqueKey":"u1","remove":"true"}`), &req))
	assert.True(t, bool(req.Remove))

	first, err := s.Cancel(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first)

	second, err := s.Cancel(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second)
}

func TestService_Cancel_StoreError(t *testing.T) {
	q := &queuetest.Store{CancelMatchingFunc: func(context.Context, queue.Match) (int64, error) {
		return 0, errors.New("connection reset")
	}}
	s := createTestService(t, q)

	_, err := s.Cancel(context.Background(), CancelRequest{Key: "k", Email: "a@b.com"})
	assert.ErrorContains(t, err, "connection reset")
}

func TestFlag_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		raw      string
		expected bool
	}{
		{raw: `true`, expected: true},
		{raw: `"true"`, expected: true},
		{raw: `"TRUE"`, expected: true},
		{raw: `false`, expected: false},
		{raw: `"yes"`, expected: false},
		{raw: `1`, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var f Flag
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &f))
			assert.Equal(t, tt.expected, bool(f))
		})
	}
}

// ==========================
// Cleanup
// ==========================

func TestService_Cleanup(t *testing.T) {
	var gotKey string
	var gotSince time.Time
	remaining := int64(4)
	q := &queuetest.Store{CleanupFunc: func(_ context.Context, key string, since time.Time) (int64, error) {
		gotKey, gotSince = key, since
		n := remaining
		remaining = 0
		return n, nil
	}}
	s := createTestService(t, q)

	n, err := s.Cleanup(context.Background(), CleanupRequest{Key: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, "welcome", gotKey)
	assert.Equal(t, fixedNow.AddDate(0, -2, 0), gotSince)

	n, err = s.Cleanup(context.Background(), CleanupRequest{Key: "welcome"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ==========================
// Read
// ==========================

func TestService_Read(t *testing.T) {
	var entry models.HistoryEntry
	q := &queuetest.Store{MarkReadFunc: func(_ context.Context, id string, e models.HistoryEntry) (bool, error) {
		entry = e
		return id == "rec-1", nil
	}}
	s := createTestService(t, q)

	found, err := s.Read(context.Background(), "rec-1", "Mozilla/5.0")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.ActionRead, entry.Action)
	assert.Equal(t, "Mozilla/5.0", entry.Context["userAgent"])

	found, err = s.Read(context.Background(), "missing", "curl")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.Read(context.Background(), "", "curl")
	require.NoError(t, err)
	assert.False(t, found)
}

// ==========================
// Reprocess
// ==========================

func TestService_Reprocess_Rerenders(t *testing.T) {
	var got queue.Rerender
	q := &queuetest.Store{
		GetFunc: func(context.Context, string) (*models.QueueEmail, error) { return storedRecord(), nil },
		ApplyRerenderFunc: func(_ context.Context, id string, r queue.Rerender) (*models.QueueEmail, error) {
			got = r
			rec := storedRecord()
			rec.Cancel, rec.CancelReason = false, nil
			rec.ApplyRendered(*r.Fields)
			return rec, nil
		},
	}
	s := createTestService(t, q, mailTemplate("", "Global"), mailTemplate("p1", "Partner {{%= name %}}"))

	rec, err := s.Reprocess(context.Background(), ReprocessRequest{ID: "rec-1"})
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.NotNil(t, got.Fields)
	assert.Equal(t, "Partner Ann", got.Fields.Subject)
	assert.Equal(t, "ann@example.com", got.Fields.To)
	assert.Equal(t, "<html><mj-text>Ann</mj-text></html>", got.Fields.Body)
	assert.Equal(t, []string{"ann@example.com"}, got.Emails)
	assert.Equal(t, models.ActionReprocess, got.Entry.Action)
	assert.Equal(t, fixedNow, got.Entry.Date)
	assert.False(t, rec.Cancel)
}

func TestService_Reprocess_CallerHistoryAndGlobalFallback(t *testing.T) {
	var got queue.Rerender
	q := &queuetest.Store{
		GetFunc: func(context.Context, string) (*models.QueueEmail, error) { return storedRecord(), nil },
		ApplyRerenderFunc: func(_ context.Context, _ string, r queue.Rerender) (*models.QueueEmail, error) {
			got = r
			return storedRecord(), nil
		},
	}
	s := createTestService(t, q, mailTemplate("", "Global"))

	var req ReprocessRequest
	require.NoError(t, json.Unmarshal([]byte(`{"id":"rec-1","history":{"action":"Manual resend","user":"ops"}}`), &req))

	_, err := s.Reprocess(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Global", got.Fields.Subject)
	assert.Equal(t, "Manual resend", got.Entry.Action)
	assert.Equal(t, "ops", got.Entry.Context["user"])
	assert.False(t, got.Entry.Date.IsZero())
}

func TestService_Reprocess_RenderFailure(t *testing.T) {
	var got queue.Rerender
	q := &queuetest.Store{
		GetFunc: func(context.Context, string) (*models.QueueEmail, error) {
			rec := storedRecord()
			rec.Data = map[string]interface{}{"name": "Ann"}
			return rec, nil
		},
		ApplyRerenderFunc: func(_ context.Context, _ string, r queue.Rerender) (*models.QueueEmail, error) {
			got = r
			rec := storedRecord()
			rec.CancelReason = &r.FailureReason
			return rec, nil
		},
	}
	s := createTestService(t, q, mailTemplate("", "Global"))

	rec, err := s.Reprocess(context.Background(), ReprocessRequest{ID: "rec-1"})
	require.NoError(t, err)
	assert.Nil(t, got.Fields)
	assert.Contains(t, got.FailureReason, "email")
	assert.Equal(t, models.ActionReprocess, got.Entry.Action)
	assert.True(t, rec.Cancel)
}

func TestService_Reprocess_NoOps(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		s := createTestService(t, &queuetest.Store{})
		rec, err := s.Reprocess(context.Background(), ReprocessRequest{})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("unknown record", func(t *testing.T) {
		s := createTestService(t, &queuetest.Store{})
		rec, err := s.Reprocess(context.Background(), ReprocessRequest{ID: "missing"})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("no governing template", func(t *testing.T) {
		applied := false
		q := &queuetest.Store{
			GetFunc: func(context.Context, string) (*models.QueueEmail, error) { return storedRecord(), nil },
			ApplyRerenderFunc: func(context.Context, string, queue.Rerender) (*models.QueueEmail, error) {
				applied = true
				return nil, nil
			},
		}
		s := createTestService(t, q)

		rec, err := s.Reprocess(context.Background(), ReprocessRequest{ID: "rec-1"})
		require.NoError(t, err)
		assert.Equal(t, storedRecord(), rec)
		assert.False(t, applied)
	})
}
