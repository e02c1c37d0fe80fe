// internal/dispatch/planner_test.go
package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notification-queue/internal/common/logger"
	"notification-queue/internal/models"
	"notification-queue/internal/notifications"
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

type fakeNotifications struct {
	CreateFunc     func(ctx context.Context, n *models.Notification) error
	FindUniqueFunc func(ctx context.Context, key, uniqueKey string) (*models.Notification, error)

	mu      sync.Mutex
	created []models.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, n *models.Notification) error {
	if f.CreateFunc != nil {
		if err := f.CreateFunc(ctx, n); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = n.Key + "-" + n.PartnerID
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeNotifications) FindUnique(ctx context.Context, key, uniqueKey string) (*models.Notification, error) {
	if f.FindUniqueFunc != nil {
		return f.FindUniqueFunc(ctx, key, uniqueKey)
	}
	return nil, notifications.ErrNotFound
}

func welcomeTemplate() models.NotificationTemplate {
	return models.NotificationTemplate{
		Key:     "welcome",
		Name:    "Welcome mail",
		Channel: models.ChannelEmail,
		Enabled: true,
		From:    "noreply@example.com",
		To:      "{{data.email}}",
		Subject: "Hello {{%= name %}}",
		Body:    "<mj-text>Hi {{%= name %}}</mj-text>",
	}
}

func inAppTemplate() models.NotificationTemplate {
	return models.NotificationTemplate{
		Key:     "welcome",
		Name:    "Welcome message",
		Channel: models.ChannelInApp,
		Enabled: true,
		To:      "userId",
		Subject: "Welcome",
		Body:    "Hi {{%= name %}}",
	}
}

func createTestPlanner(t *testing.T, q *queuetest.Store, n *fakeNotifications, list ...models.NotificationTemplate) *Planner {
	t.Helper()
	r, err := render.NewRenderer(render.Config{DefaultTimezone: "Asia/Yerevan"}, htmlWrapper{})
	require.NoError(t, err)
	if n == nil {
		n = &fakeNotifications{}
	}
	return NewPlanner(Config{CancelWindowMonths: 2, Concurrency: 4}, templatestest.New(list...), q, n, r, logger.NewTestLogger(t))
}

func now() *time.Time {
	t := time.Now()
	return &t
}

func strPtr(s string) *string { return &s }

// ==========================
// Generate
// ==========================

func TestPlanner_Generate_RecipientOutcomes(t *testing.T) {
	tests := []struct {
		name           string
		data           map[string]interface{}
		expectRecords  int
		expectErrors   int
		expectSkipped  int
		validateRecord func(t *testing.T, rec models.QueueEmail)
	}{
		{
			name:          "interpolated recipient",
			data:          map[string]interface{}{"name": "Ann", "email": "a@b.com"},
			expectRecords: 1,
			validateRecord: func(t *testing.T, rec models.QueueEmail) {
				assert.Equal(t, "a@b.com", rec.To)
				assert.Equal(t, []string{"a@b.com"}, rec.Emails)
				assert.Equal(t, "Hello Ann", rec.Subject)
				assert.Equal(t, "<html><mj-text>Hi Ann</mj-text></html>", rec.Body)
				assert.False(t, rec.Cancel)
				assert.False(t, rec.Sent)
				assert.False(t, rec.Read)
				assert.Empty(t, rec.History)
				assert.Nil(t, rec.CancelReason)
			},
		},
		{
			name:         "missing recipient field becomes an error record",
			data:         map[string]interface{}{"name": "Ann", "timezone": "Asia/Yerevan"},
			expectErrors: 1,
			validateRecord: func(t *testing.T, rec models.QueueEmail) {
				assert.True(t, rec.Cancel)
				require.NotNil(t, rec.CancelReason)
				assert.Contains(t, *rec.CancelReason, "email")
				assert.Equal(t, "Welcome mail", rec.Name)
				for _, v := range []string{rec.From, rec.ReplyTo, rec.To, rec.CC, rec.BCC, rec.Subject, rec.Body} {
					assert.Equal(t, "error", v)
				}
				assert.Empty(t, rec.Emails)
			},
		},
		{
			name:          "empty recipient is skipped",
			data:          map[string]interface{}{"name": "Ann", "email": ""},
			expectSkipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queuetest.Store{}
			p := createTestPlanner(t, q, nil, welcomeTemplate())

			res, err := p.Generate(context.Background(), GenerateRequest{
				NotificationID: "n1",
				PartnerID:      "p1",
				Key:            "welcome",
				Date:           now(),
				Data:           tt.data,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.expectRecords, res.RecordsCreated)
			assert.Equal(t, tt.expectErrors, res.ErrorRecords)
			assert.Equal(t, tt.expectSkipped, res.Skipped)
			require.Len(t, q.Created, tt.expectRecords+tt.expectErrors)
			assert.Empty(t, q.Matches)

			if tt.validateRecord != nil {
				rec := q.Created[0]
				assert.Equal(t, "n1", rec.NotificationID)
				assert.Equal(t, "p1", rec.PartnerID)
				assert.Equal(t, "welcome", rec.Key)
				tt.validateRecord(t, rec)
			}
		})
	}
}

func TestPlanner_Generate_ChannelsAndRecipients(t *testing.T) {
	q := &queuetest.Store{}
	p := createTestPlanner(t, q, nil, welcomeTemplate(), inAppTemplate())

	res, err := p.Generate(context.Background(), GenerateRequest{
		PartnerID: "p1",
		Key:       "welcome",
		Date:      now(),
		Data: map[string]interface{}{
			"name":   "Ann",
			"email":  "a@b.com, c@d.com ,",
			"userId": []interface{}{"u1", "u2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsCreated)
	require.Len(t, q.Created, 2)

	byChannel := map[models.Channel]models.QueueEmail{}
	for _, rec := range q.Created {
		byChannel[rec.Channel] = rec
	}

	mail := byChannel[models.ChannelEmail]
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, mail.Emails)
	assert.Contains(t, mail.Body, "<html>")

	inApp := byChannel[models.ChannelInApp]
	assert.Equal(t, "u1,u2", inApp.To)
	assert.Equal(t, []string{"u1", "u2"}, inApp.Emails)
	assert.Equal(t, "Hi Ann", inApp.Body)
}

func TestPlanner_Generate_PartnerOverride(t *testing.T) {
	partner := welcomeTemplate()
	partner.PartnerID = "p1"
	partner.Subject = "Partner hello"

	q := &queuetest.Store{}
	p := createTestPlanner(t, q, nil, welcomeTemplate(), partner)

	_, err := p.Generate(context.Background(), GenerateRequest{
		PartnerID: "p1", Key: "welcome", Date: now(),
		Data: map[string]interface{}{"name": "Ann", "email": "a@b.com"},
	})
	require.NoError(t, err)
	require.Len(t, q.Created, 1)
	assert.Equal(t, "Partner hello", q.Created[0].Subject)
}

func TestPlanner_Generate_CancelDerivation(t *testing.T) {
	disabled := welcomeTemplate()
	disabled.Enabled = false
	old := time.Now().Add(-8 * 24 * time.Hour)

	tests := []struct {
		name     string
		tmpl     models.NotificationTemplate
		date     *time.Time
		expected bool
	}{
		{name: "enabled and recent", tmpl: welcomeTemplate(), date: now(), expected: false},
		{name: "disabled template", tmpl: disabled, date: now(), expected: true},
		{name: "stale event", tmpl: welcomeTemplate(), date: &old, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queuetest.Store{}
			p := createTestPlanner(t, q, nil, tt.tmpl)

			_, err := p.Generate(context.Background(), GenerateRequest{
				Key: "welcome", Date: tt.date,
				Data: map[string]interface{}{"name": "Ann", "email": "a@b.com"},
			})
			require.NoError(t, err)
			require.Len(t, q.Created, 1)
			assert.Equal(t, tt.expected, q.Created[0].Cancel)
		})
	}
}

func TestPlanner_Generate_SupersedesUniqueKey(t *testing.T) {
	// pending records keyed by unique key, cancelled by CancelMatching
	pending := map[string]int64{}
	q := &queuetest.Store{}
	q.CreateFunc = func(_ context.Context, rec *models.QueueEmail) error {
		pending[*rec.UniqueKey]++
		return nil
	}
	q.CancelMatchingFunc = func(_ context.Context, m queue.Match) (int64, error) {
		n := pending[m.UniqueKey]
		pending[m.UniqueKey] = 0
		return n, nil
	}
	p := createTestPlanner(t, q, nil, welcomeTemplate())
	req := GenerateRequest{
		Key: "welcome", Date: now(), UniqueKey: strPtr("order-1"),
		Data: map[string]interface{}{"name": "Ann", "email": "a@b.com"},
	}

	first, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Superseded)

	second, err := p.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Superseded)

	require.Len(t, q.Matches, 2)
	m := q.Matches[1]
	assert.Equal(t, "order-1", m.UniqueKey)
	assert.Empty(t, m.Key)
	expectedSince := time.Now().AddDate(0, -2, 0)
	assert.WithinDuration(t, expectedSince, m.Since, time.Minute)
}

func TestPlanner_Generate_StoreFailureIsolated(t *testing.T) {
	q := &queuetest.Store{}
	q.CreateFunc = func(_ context.Context, rec *models.QueueEmail) error {
		if rec.Channel == models.ChannelInApp {
			return errors.New("insert failed")
		}
		return nil
	}
	p := createTestPlanner(t, q, nil, welcomeTemplate(), inAppTemplate())

	res, err := p.Generate(context.Background(), GenerateRequest{
		Key: "welcome", Date: now(),
		Data: map[string]interface{}{"name": "Ann", "email": "a@b.com", "userId": "u1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.Equal(t, 1, res.RecordsCreated)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, res.Written())
}

func TestPlanner_Generate_NoTemplates(t *testing.T) {
	q := &queuetest.Store{}
	p := createTestPlanner(t, q, nil)

	res, err := p.Generate(context.Background(), GenerateRequest{Key: "unknown", Date: now()})
	require.NoError(t, err)
	assert.False(t, res.Written())
	assert.Empty(t, q.Created)
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, SplitRecipients(" a@b.com,,c@d.com , "))
	assert.Equal(t, []string{}, SplitRecipients(""))
}

// ==========================
// CreateNotifications
// ==========================

func TestPlanner_CreateNotifications(t *testing.T) {
	item := func(key, partnerID string) models.Notification {
		return models.Notification{
			Key:       key,
			PartnerID: partnerID,
			Date:      now(),
			Data:      map[string]interface{}{"name": "Ann", "email": "a@b.com"},
		}
	}

	t.Run("empty list", func(t *testing.T) {
		q := &queuetest.Store{}
		p := createTestPlanner(t, q, nil, welcomeTemplate())

		res, err := p.CreateNotifications(context.Background(), models.NotificationBatch{UniqueKey: "u1"})
		require.NoError(t, err)
		assert.Zero(t, res.Created)
		assert.Empty(t, q.Matches)
	})

	t.Run("supersedes once and expands every entry", func(t *testing.T) {
		q := &queuetest.Store{}
		n := &fakeNotifications{}
		p := createTestPlanner(t, q, n, welcomeTemplate())

		first, second := item("welcome", "p1"), item("welcome", "p2")
		first.UniqueKey, second.UniqueKey = strPtr("u1"), strPtr("u1")

		res, err := p.CreateNotifications(context.Background(), models.NotificationBatch{
			UniqueKey:        "u1",
			NotificationList: []models.Notification{first, second},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, res.Created)
		assert.Equal(t, []string{"welcome-p1", "welcome-p2"}, res.IDs)
		require.Len(t, q.Matches, 1)
		assert.Equal(t, "u1", q.Matches[0].UniqueKey)
		require.Len(t, q.Created, 2)
		for _, rec := range q.Created {
			assert.Contains(t, []string{"welcome-p1", "welcome-p2"}, rec.NotificationID)
		}
	})

	t.Run("unique entry reuses the stored notification", func(t *testing.T) {
		q := &queuetest.Store{}
		n := &fakeNotifications{FindUniqueFunc: func(_ context.Context, key, uniqueKey string) (*models.Notification, error) {
			assert.Equal(t, "welcome", key)
			assert.Equal(t, "once", uniqueKey)
			return &models.Notification{ID: "existing"}, nil
		}}
		p := createTestPlanner(t, q, n, welcomeTemplate())

		entry := item("welcome", "p1")
		entry.Unique = true
		entry.UniqueKey = strPtr("once")

		res, err := p.CreateNotifications(context.Background(), models.NotificationBatch{NotificationList: []models.Notification{entry}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Reused)
		assert.Equal(t, []string{"existing"}, res.IDs)
		assert.Empty(t, n.created)
		assert.Empty(t, q.Created)
	})

	t.Run("entry failure does not abort siblings", func(t *testing.T) {
		q := &queuetest.Store{}
		n := &fakeNotifications{CreateFunc: func(_ context.Context, n *models.Notification) error {
			if n.PartnerID == "bad" {
				return errors.New("duplicate key")
			}
			return nil
		}}
		p := createTestPlanner(t, q, n, welcomeTemplate())

		res, err := p.CreateNotifications(context.Background(), models.NotificationBatch{
			NotificationList: []models.Notification{item("welcome", "bad"), item("welcome", "p1")},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, []string{"", "welcome-p1"}, res.IDs)
		assert.Len(t, q.Created, 1)
	})
}
