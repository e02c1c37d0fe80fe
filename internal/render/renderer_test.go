// internal/render/renderer_test.go
package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"notification-queue/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type fakeMarkup struct {
	ToHTMLFunc func(ctx context.Context, markup string) (string, error)
	calls      int
}

func (f *fakeMarkup) ToHTML(ctx context.Context, markup string) (string, error) {
	f.calls++
	if f.ToHTMLFunc != nil {
		return f.ToHTMLFunc(ctx, markup)
	}
	return "<html>" + markup + "</html>", nil
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRenderer(t *testing.T, markup MarkupConverter) *Renderer {
	t.Helper()
	if markup == nil {
		markup = &fakeMarkup{}
	}
	r, err := NewRenderer(Config{}, markup)
	require.NoError(t, err)
	r.now = func() time.Time { return fixedNow }
	return r
}

func timePtr(t time.Time) *time.Time { return &t }

func createTestTemplate() models.NotificationTemplate {
	return models.NotificationTemplate{
		Key:     "welcome",
		Name:    "Welcome mail",
		Channel: models.ChannelEmail,
		Enabled: true,
		From:    "noreply@example.com",
		To:      "{{data.email}}",
		Subject: "Hello {{%= name %}}",
		Body:    "<mjml><mj-body>{{%= name %}}</mj-body></mjml>",
	}
}

// ==========================
// Cancel Derivation
// ==========================

func TestRenderer_Render_CancelDerivation(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		date     *time.Time
		expected bool
	}{
		{name: "enabled and fresh", enabled: true, date: timePtr(fixedNow), expected: false},
		{name: "enabled six days old", enabled: true, date: timePtr(fixedNow.Add(-6 * 24 * time.Hour)), expected: false},
		{name: "enabled exactly seven days old", enabled: true, date: timePtr(fixedNow.Add(-7 * 24 * time.Hour)), expected: true},
		{name: "enabled older than window", enabled: true, date: timePtr(fixedNow.Add(-30 * 24 * time.Hour)), expected: true},
		{name: "disabled and fresh", enabled: false, date: timePtr(fixedNow), expected: true},
		{name: "enabled without date", enabled: true, date: nil, expected: true},
		{name: "enabled future date", enabled: true, date: timePtr(fixedNow.Add(48 * time.Hour)), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, nil)
			tmpl := createTestTemplate()
			tmpl.Enabled = tt.enabled

			res, err := r.Render(context.Background(), map[string]interface{}{"name": "Ann", "email": "ann@example.com"}, tt.date, tmpl)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Cancel)
		})
	}
}

// ==========================
// Recipient Handling
// ==========================

func TestRenderer_Render_Recipient(t *testing.T) {
	tests := []struct {
		name        string
		to          string
		data        map[string]interface{}
		expected    string
		expectedErr error
	}{
		{
			name:     "literal address passes through",
			to:       "user@example.com",
			data:     map[string]interface{}{"user@example": map[string]interface{}{"com": "other"}},
			expected: "user@example.com",
		},
		{
			name:     "interpolated data path",
			to:       "{{data.email}}",
			data:     map[string]interface{}{"email": "a@b.com"},
			expected: "a@b.com",
		},
		{
			name:     "plain path lookup",
			to:       "contact.email",
			data:     map[string]interface{}{"contact": map[string]interface{}{"email": "c@d.com"}},
			expected: "c@d.com",
		},
		{
			name:     "list lookup joined with comma",
			to:       "emails",
			data:     map[string]interface{}{"emails": []interface{}{"a@b.com", "c@d.com"}},
			expected: "a@b.com,c@d.com",
		},
		{
			name:     "missing plain path is empty",
			to:       "email",
			data:     map[string]interface{}{"name": "Ann"},
			expected: "",
		},
		{
			name:     "present but empty value is empty",
			to:       "{{data.email}}",
			data:     map[string]interface{}{"email": ""},
			expected: "",
		},
		{
			name:     "optional fallback through or",
			to:       "{{%= data.email || data.backup %}}",
			data:     map[string]interface{}{"backup": "b@c.com"},
			expected: "b@c.com",
		},
		{
			name:        "missing interpolated field fails",
			to:          "{{data.email}}",
			data:        map[string]interface{}{"name": "Ann", "timezone": "Asia/Yerevan"},
			expectedErr: ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, nil)
			tmpl := createTestTemplate()
			tmpl.To = tt.to
			tt.data["name"] = "Ann"

			res, err := r.Render(context.Background(), tt.data, timePtr(fixedNow), tmpl)

			if tt.expectedErr != nil {
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Fields.To)
		})
	}
}

// ==========================
// Expression Language
// ==========================

func TestRenderer_Expand(t *testing.T) {
	data := map[string]interface{}{
		"name":     "ann",
		"count":    float64(3),
		"tags":     []interface{}{"a", "b", "c"},
		"date":     "2024-03-05T10:00:00Z",
		"profile":  map[string]interface{}{"city": "Yerevan", "zip": nil},
		"html":     "<b>x</b>",
		"vip":      true,
		"Greeting": "Hello there",
		"имя":      "Аня",
	}

	tests := []struct {
		name     string
		raw      string
		expected interface{}
	}{
		{name: "empty is null", raw: "", expected: nil},
		{name: "plain text stays literal", raw: "Your order is ready", expected: "Your order is ready"},
		{name: "direct key lookup", raw: "Greeting", expected: "Hello there"},
		{name: "interpolation", raw: "Hi {{%= name %}}!", expected: "Hi ann!"},
		{name: "short interpolation", raw: "Hi {{ profile.city }}", expected: "Hi Yerevan"},
		{name: "escaped interpolation", raw: "{{%- html %}}", expected: "&lt;b&gt;x&lt;/b&gt;"},
		{name: "null interpolates empty", raw: "[{{%= profile.zip %}}]", expected: "[]"},
		{name: "utility upper", raw: "{{%= _.upper(name) %}}", expected: "ANN"},
		{name: "utility capitalize", raw: "{{%= _.capitalize(name) %}}", expected: "Ann"},
		{name: "utility join", raw: "{{%= _.join(tags, ' | ') %}}", expected: "a | b | c"},
		{name: "utility get with default", raw: "{{%= _.get(profile, 'country', 'AM') %}}", expected: "AM"},
		{name: "utility default on missing", raw: "{{%= _.default(nickname, name) %}}", expected: "ann"},
		{name: "array method join", raw: "{{%= tags.join('-') %}}", expected: "a-b-c"},
		{name: "array length", raw: "{{%= tags.length %}}", expected: "3"},
		{name: "index access", raw: "{{%= tags[1] %}}", expected: "b"},
		{name: "number arithmetic", raw: "{{%= count + 2 %}}", expected: "5"},
		{name: "string concatenation", raw: "{{%= name + '-' + count %}}", expected: "ann-3"},
		{name: "ternary", raw: "{{%= vip ? 'Dear VIP' : 'Hi' %}}", expected: "Dear VIP"},
		{name: "equality", raw: "{{%= count == 3 ? 'three' : 'other' %}}", expected: "three"},
		{name: "negation of missing", raw: "{{%= !nickname ? 'anon' : nickname %}}", expected: "anon"},
		{name: "string method", raw: "{{%= name.toUpperCase() %}}", expected: "ANN"},
		{name: "non-ascii identifier", raw: "Привет {{%= имя %}}", expected: "Привет Аня"},
		{name: "non-ascii string literal", raw: "{{%= 'Здравствуйте, ' + имя %}}", expected: "Здравствуйте, Аня"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, nil)

			got, err := r.Expand(data, tt.raw, false)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderer_Expand_Errors(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		expectedErr error
	}{
		{name: "code block", raw: "{{% if (a) { %}}x", expectedErr: ErrSyntax},
		{name: "unterminated block", raw: "Hello {{%= name", expectedErr: ErrSyntax},
		{name: "dangling operator", raw: "{{%= name + %}}", expectedErr: ErrSyntax},
		{name: "non-letter symbol", raw: "{{%= name § 2 %}}", expectedErr: ErrSyntax},
		{name: "undefined variable", raw: "{{%= nickname %}}", expectedErr: ErrMissingField},
		{name: "missing nested property", raw: "{{%= profile.country %}}", expectedErr: ErrMissingField},
		{name: "unknown helper", raw: "{{%= _.explode(name) %}}", expectedErr: ErrEvaluation},
		{name: "unknown timezone", raw: "{{%= moment().tz('Mars/Base').format() %}}", expectedErr: ErrEvaluation},
	}

	data := map[string]interface{}{
		"name":    "ann",
		"profile": map[string]interface{}{"city": "Yerevan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, nil)

			_, err := r.Expand(data, tt.raw, false)

			assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
		})
	}
}

// ==========================
// Date Formatting
// ==========================

func TestRenderer_Expand_Moment(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]interface{}
		raw      string
		expected string
	}{
		{
			name:     "default timezone fallback",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z"},
			raw:      "{{%= moment(date).format('DD.MM.YYYY HH:mm') %}}",
			expected: "05.03.2024 14:00",
		},
		{
			name:     "timezone from data",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z", "timezone": "UTC"},
			raw:      "{{%= moment(date).format('YYYY-MM-DD HH:mm Z') %}}",
			expected: "2024-03-05 10:00 +00:00",
		},
		{
			name:     "english month and weekday names",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z", "timezone": "UTC"},
			raw:      "{{%= moment(date).format('dddd, MMMM Do YYYY, h:mm A') %}}",
			expected: "Tuesday, March 5th 2024, 10:00 AM",
		},
		{
			name:     "russian genitive month",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z", "timezone": "UTC"},
			raw:      "{{%= moment(date).locale('ru').format('D MMMM') %}}",
			expected: "5 марта",
		},
		{
			name:     "escaped literal text",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z", "timezone": "UTC"},
			raw:      "{{%= moment(date).format('[Due] DD/MM') %}}",
			expected: "Due 05/03",
		},
		{
			name:     "add days",
			data:     map[string]interface{}{"date": "2024-03-05T10:00:00Z", "timezone": "UTC"},
			raw:      "{{%= moment(date).add(30, 'days').format('YYYY-MM-DD') %}}",
			expected: "2024-04-04",
		},
		{
			name:     "now without arguments",
			data:     map[string]interface{}{"timezone": "UTC"},
			raw:      "{{%= moment().format('YYYY-MM-DD') %}}",
			expected: "2024-03-10",
		},
		{
			name:     "invalid date",
			data:     map[string]interface{}{"date": "not a date"},
			raw:      "{{%= moment(date).format('YYYY') %}}",
			expected: "Invalid date",
		},
		{
			name:     "naive date in zone",
			data:     map[string]interface{}{"date": "2024-03-05 09:30", "timezone": "Europe/Berlin"},
			raw:      "{{%= moment(date).utc().format('HH:mm') %}}",
			expected: "08:30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRenderer(t, nil)

			got, err := r.Expand(tt.data, tt.raw, false)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// ==========================
// Body Conversion
// ==========================

func TestRenderer_Render_BodyConversion(t *testing.T) {
	t.Run("email body is converted", func(t *testing.T) {
		markup := &fakeMarkup{}
		r := newTestRenderer(t, markup)

		res, err := r.Render(context.Background(), map[string]interface{}{"name": "Ann", "email": "a@b.com"}, timePtr(fixedNow), createTestTemplate())

		require.NoError(t, err)
		assert.Equal(t, 1, markup.calls)
		assert.Equal(t, "<mjml><mj-body>Ann</mj-body></mjml>", res.BodyRaw)
		assert.Equal(t, "<html><mjml><mj-body>Ann</mj-body></mjml></html>", res.Fields.Body)
		assert.Equal(t, "Hello Ann", res.Fields.Subject)
		assert.Equal(t, "Welcome mail", res.Fields.Name)
	})

	t.Run("unset channel is treated as email", func(t *testing.T) {
		markup := &fakeMarkup{}
		r := newTestRenderer(t, markup)
		tmpl := createTestTemplate()
		tmpl.Channel = ""

		_, err := r.Render(context.Background(), map[string]interface{}{"name": "Ann", "email": "a@b.com"}, timePtr(fixedNow), tmpl)

		require.NoError(t, err)
		assert.Equal(t, 1, markup.calls)
	})

	t.Run("in-app body is used as is", func(t *testing.T) {
		markup := &fakeMarkup{}
		r := newTestRenderer(t, markup)
		tmpl := createTestTemplate()
		tmpl.Channel = models.ChannelInApp
		tmpl.Body = "You have a new message, {{%= name %}}"

		res, err := r.Render(context.Background(), map[string]interface{}{"name": "Ann", "email": "a@b.com"}, timePtr(fixedNow), tmpl)

		require.NoError(t, err)
		assert.Equal(t, 0, markup.calls)
		assert.Equal(t, "You have a new message, Ann", res.Fields.Body)
	})

	t.Run("conversion failure is returned", func(t *testing.T) {
		markup := &fakeMarkup{
			ToHTMLFunc: func(ctx context.Context, markup string) (string, error) {
				return "", ErrMarkup
			},
		}
		r := newTestRenderer(t, markup)

		_, err := r.Render(context.Background(), map[string]interface{}{"name": "Ann", "email": "a@b.com"}, timePtr(fixedNow), createTestTemplate())

		assert.ErrorIs(t, err, ErrMarkup)
	})
}

func TestParseField_Kinds(t *testing.T) {
	tests := []struct {
		raw      string
		expected Field
	}{
		{raw: "", expected: EmptyField{}},
		{raw: "email", expected: PathField{}},
		{raw: "{{data.email}}", expected: TemplateField{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			f, err := ParseField(tt.raw)

			require.NoError(t, err)
			assert.IsType(t, tt.expected, f)
			assert.Equal(t, tt.raw, f.Raw())
		})
	}
}
