// internal/queue/postgres.go
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const recordColumns = `id, notification_id, partner_id, key, channel, date, unique_key, emails, name, from_addr, reply_to, to_addr, cc, bcc, subject, body, cancel, sent, read, processing, history, data, attachment_data, cancel_reason, result, created_at, updated_at`

var sortColumns = map[string]string{
	"date":      "date",
	"key":       "key",
	"partnerId": "partner_id",
	"to":        "to_addr",
	"subject":   "subject",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

var (
	searchText  = []string{"notification_id", "partner_id", "key", "channel", "unique_key", "name", "from_addr", "reply_to", "to_addr", "cc", "bcc", "subject", "body", "cancel_reason"}
	searchBools = []string{"cancel", "sent", "read", "processing"}
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.QueueEmail) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.History == nil {
		rec.History = models.History{}
	}
	if rec.Emails == nil {
		rec.Emails = []string{}
	}

	history, err := json.Marshal(rec.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	data, err := jsonColumn(rec.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	attachments, err := jsonColumn(rec.AttachmentData)
	if err != nil {
		return fmt.Errorf("encode attachment data: %w", err)
	}

	query := `
		INSERT INTO queue_emails (
			id, notification_id, partner_id, key, channel, date, unique_key, emails,
			name, from_addr, reply_to, to_addr, cc, bcc, subject, body,
			cancel, sent, read, processing, history, data, attachment_data, cancel_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, false, $20, $21, $22, $23)
		RETURNING created_at, updated_at`

	err = s.db.QueryRowContext(ctx, query,
		rec.ID, rec.NotificationID, rec.PartnerID, rec.Key, string(rec.Channel), rec.Date, rec.UniqueKey, pq.Array(rec.Emails),
		rec.Name, rec.From, rec.ReplyTo, rec.To, rec.CC, rec.BCC, rec.Subject, rec.Body,
		rec.Cancel, rec.Sent, rec.Read, string(history), data, attachments, rec.CancelReason,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert queue record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.QueueEmail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM queue_emails WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get queue record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]models.QueueEmail, error) {
	w := filterWhere(f)
	query := `SELECT ` + recordColumns + ` FROM queue_emails` + w.String() + f.Page.Clause(sortColumns, "created_at DESC")
	return s.query(ctx, query, w.Args()...)
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	w := filterWhere(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM queue_emails`+w.String(), w.Args()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Search(ctx context.Context, q string, page database.Page) ([]models.QueueEmail, error) {
	w := &database.Where{}
	database.SearchTerms(w, q, searchText, searchBools)
	query := `SELECT ` + recordColumns + ` FROM queue_emails` + w.String() + page.Clause(sortColumns, "created_at DESC")
	return s.query(ctx, query, w.Args()...)
}

func (s *PostgresStore) CancelMatching(ctx context.Context, m Match) (int64, error) {
	w := matchWhere(m)
	w.Add("cancel = false")
	return s.exec(ctx, "cancel matching", `UPDATE queue_emails SET cancel = true, updated_at = now()`+w.String(), w.Args()...)
}

func (s *PostgresStore) DeleteMatching(ctx context.Context, m Match) (int64, error) {
	w := matchWhere(m)
	return s.exec(ctx, "delete matching", `DELETE FROM queue_emails`+w.String(), w.Args()...)
}

func (s *PostgresStore) Cleanup(ctx context.Context, key string, since time.Time) (int64, error) {
	w := &database.Where{}
	w.Add("cancel = true").Add("sent = false").Add("date >= ?", since)
	if key != "" {
		w.Add("key = ?", key)
	}
	return s.exec(ctx, "cleanup", `DELETE FROM queue_emails`+w.String(), w.Args()...)
}

func (s *PostgresStore) Claim(ctx context.Context, limit int, now time.Time, entry models.HistoryEntry) ([]models.QueueEmail, error) {
	appended, err := historyAppend(entry)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE queue_emails SET processing = true, history = history || $3::jsonb, updated_at = now()
		WHERE id IN (
			SELECT id FROM queue_emails
			WHERE cancel = false AND sent = false AND processing IS NOT TRUE AND date <= $1
			ORDER BY date ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND processing IS NOT TRUE
		RETURNING ` + recordColumns
	return s.query(ctx, query, now, limit, appended)
}

func (s *PostgresStore) Complete(ctx context.Context, id string, o Outcome) error {
	appended, err := historyAppend(o.Entry)
	if err != nil {
		return err
	}
	result, err := jsonColumn(o.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	query := `UPDATE queue_emails SET sent = true, processing = false, result = $2, history = history || $3::jsonb, updated_at = now() WHERE id = $1`
	if !o.Sent {
		query = `UPDATE queue_emails SET sent = false, cancel = true, processing = false, result = $2, history = history || $3::jsonb, updated_at = now() WHERE id = $1`
	}
	_, err = s.exec(ctx, "complete", query, id, result, appended)
	return err
}

func (s *PostgresStore) Release(ctx context.Context, id, reason string) error {
	_, err := s.exec(ctx, "release",
		`UPDATE queue_emails SET processing = false, cancel = true, cancel_reason = $2, updated_at = now() WHERE id = $1`,
		id, reason)
	return err
}

func (s *PostgresStore) Unclaim(ctx context.Context, id string, entry models.HistoryEntry) error {
	appended, err := historyAppend(entry)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "unclaim",
		`UPDATE queue_emails SET processing = false, history = history || $2::jsonb, updated_at = now() WHERE id = $1`,
		id, appended)
	return err
}

func (s *PostgresStore) MarkRead(ctx context.Context, id string, entry models.HistoryEntry) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	appended, err := historyAppend(entry)
	if err != nil {
		return false, err
	}
	n, err := s.exec(ctx, "mark read",
		`UPDATE queue_emails SET read = true, history = history || $2::jsonb, updated_at = now() WHERE id = $1`,
		id, appended)
	return n > 0, err
}

func (s *PostgresStore) ApplyRerender(ctx context.Context, id string, r Rerender) (*models.QueueEmail, error) {
	appended, err := historyAppend(r.Entry)
	if err != nil {
		return nil, err
	}

	var row *sql.Row
	if r.Fields == nil {
		row = s.db.QueryRowContext(ctx, `
			UPDATE queue_emails SET cancel_reason = $2, history = history || $3::jsonb, updated_at = now()
			WHERE id = $1
			RETURNING `+recordColumns,
			id, r.FailureReason, appended)
	} else {
		f := r.Fields
		row = s.db.QueryRowContext(ctx, `
			UPDATE queue_emails SET
				from_addr = $2, reply_to = $3, to_addr = $4, cc = $5, bcc = $6, subject = $7, body = $8, emails = $9,
				cancel = false, cancel_reason = NULL, history = history || $10::jsonb, updated_at = now()
			WHERE id = $1
			RETURNING `+recordColumns,
			id, f.From, f.ReplyTo, f.To, f.CC, f.BCC, f.Subject, f.Body, pq.Array(r.Emails), appended)
	}

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("apply rerender: %w", err)
	}
	return rec, nil
}

func matchWhere(m Match) *database.Where {
	w := &database.Where{}
	w.Add("sent = false").Add("date >= ?", m.Since)
	if m.Key != "" {
		w.Add("key = ?", m.Key)
	}
	if m.UniqueKey != "" {
		w.Add("unique_key = ?", m.UniqueKey)
	}
	if m.Email != "" {
		w.Add("? = ANY(emails)", m.Email)
	}
	return w
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
		w.Add("coalesce(nullif(channel, ''), 'e-mail') = ?", string(f.Channel.Normalize()))
	}
	if f.UniqueKey != "" {
		w.Add("unique_key = ?", f.UniqueKey)
	}
	if f.NotificationID != "" {
		w.Add("notification_id = ?", f.NotificationID)
	}
	if f.Cancel != nil {
		w.Add("cancel = ?", *f.Cancel)
	}
	if f.Sent != nil {
		w.Add("sent = ?", *f.Sent)
	}
	if f.Read != nil {
		w.Add("read = ?", *f.Read)
	}
	if f.DateFrom != nil {
		w.Add("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.Add("date <= ?", *f.DateTo)
	}
	return w
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]models.QueueEmail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query queue records: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEmail
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// historyAppend encodes entries as the jsonb array concatenated onto history.
func historyAppend(entries ...models.HistoryEntry) (string, error) {
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode history entry: %w", err)
	}
	return string(b), nil
}

// jsonColumn encodes v for a nullable jsonb column.
func jsonColumn(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		if t == nil {
			return nil, nil
		}
	case *models.AttachmentData:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(sc rowScanner) (*models.QueueEmail, error) {
	var (
		rec          models.QueueEmail
		channel      string
		date         sql.NullTime
		uniqueKey    sql.NullString
		processing   sql.NullBool
		history      []byte
		data         []byte
		attachments  []byte
		cancelReason sql.NullString
		result       []byte
	)
	err := sc.Scan(
		&rec.ID, &rec.NotificationID, &rec.PartnerID, &rec.Key, &channel, &date, &uniqueKey, pq.Array(&rec.Emails),
		&rec.Name, &rec.From, &rec.ReplyTo, &rec.To, &rec.CC, &rec.BCC, &rec.Subject, &rec.Body,
		&rec.Cancel, &rec.Sent, &rec.Read, &processing, &history, &data, &attachments, &cancelReason, &result,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Channel = models.Channel(channel)
	rec.Processing = processing.Bool
	if date.Valid {
		t := date.Time
		rec.Date = &t
	}
	if uniqueKey.Valid {
		rec.UniqueKey = &uniqueKey.String
	}
	if cancelReason.Valid {
		rec.CancelReason = &cancelReason.String
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &rec.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if len(attachments) > 0 {
		rec.AttachmentData = &models.AttachmentData{}
		if err := json.Unmarshal(attachments, rec.AttachmentData); err != nil {
			return nil, fmt.Errorf("decode attachment data: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &rec, nil
}
