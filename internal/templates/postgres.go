// internal/templates/postgres.go
package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"

	"github.com/google/uuid"
)

const templateColumns = `id, key, name, channel, partner_id, enabled, from_addr, reply_to, to_addr, cc, bcc, subject, body, created_at, updated_at`

// channelExpr treats a null or empty channel as e-mail.
const channelExpr = `coalesce(nullif(channel, ''), 'e-mail')`

var sortColumns = map[string]string{
	"key":       "key",
	"name":      "name",
	"channel":   "channel",
	"partnerId": "partner_id",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

var (
	searchText  = []string{"key", "name", "channel", "partner_id", "from_addr", "reply_to", "to_addr", "cc", "bcc", "subject", "body"}
	searchBools = []string{"enabled"}
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListByKey(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates WHERE key = $1 AND partner_id IN ('', $2)`
	return s.query(ctx, query, key, partnerID)
}

func (s *PostgresStore) FindOne(ctx context.Context, key string, channel models.Channel, partnerID string) (*models.NotificationTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM notification_templates WHERE key = $1 AND ` + channelExpr + ` = $2 AND partner_id = $3 LIMIT 1`
	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, key, string(channel.Normalize()), partnerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) FetchAll(ctx context.Context, f Filter) ([]models.NotificationTemplate, error) {
	w := filterWhere(f)
	query := `SELECT ` + templateColumns + ` FROM notification_templates` + w.String() + f.Page.Clause(sortColumns, "key ASC")
	return s.query(ctx, query, w.Args()...)
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	w := filterWhere(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notification_templates`+w.String(), w.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Search(ctx context.Context, q string, page database.Page) ([]models.NotificationTemplate, error) {
	w := &database.Where{}
	database.SearchTerms(w, q, searchText, searchBools)
	query := `SELECT ` + templateColumns + ` FROM notification_templates` + w.String() + page.Clause(sortColumns, "key ASC")
	return s.query(ctx, query, w.Args()...)
}

func (s *PostgresStore) Save(ctx context.Context, t *models.NotificationTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO notification_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, nullif($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		ON CONFLICT (key, (` + channelExpr + `), partner_id) DO UPDATE SET
			name = EXCLUDED.name,
			channel = EXCLUDED.channel,
			enabled = EXCLUDED.enabled,
			from_addr = EXCLUDED.from_addr,
			reply_to = EXCLUDED.reply_to,
			to_addr = EXCLUDED.to_addr,
			cc = EXCLUDED.cc,
			bcc = EXCLUDED.bcc,
			subject = EXCLUDED.subject,
			body = EXCLUDED.body,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		t.ID, t.Key, t.Name, string(t.Channel), t.PartnerID, t.Enabled,
		t.From, t.ReplyTo, t.To, t.CC, t.BCC, t.Subject, t.Body,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save template %q: %w", t.Key, err)
	}
	return nil
}

func filterWhere(f Filter) *database.Where {
	w := &database.Where{}
	if f.PartnerID != nil {
		w.Add("partner_id = ?", *f.PartnerID)
	}
	if f.Key != "" {
		w.Add("key = ?", f.Key)
	}
	if f.Channel != "" {
		w.Add(channelExpr+" = ?", string(f.Channel.Normalize()))
	}
	if f.Enabled != nil {
		w.Add("enabled = ?", *f.Enabled)
	}
	return w
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]models.NotificationTemplate, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []models.NotificationTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(sc rowScanner) (models.NotificationTemplate, error) {
	var (
		t       models.NotificationTemplate
		channel sql.NullString
	)
	err := sc.Scan(
		&t.ID, &t.Key, &t.Name, &channel, &t.PartnerID, &t.Enabled,
		&t.From, &t.ReplyTo, &t.To, &t.CC, &t.BCC, &t.Subject, &t.Body,
		&t.CreatedAt, &t.UpdatedAt,
	)
	t.Channel = models.Channel(channel.String)
	return t, err
}
