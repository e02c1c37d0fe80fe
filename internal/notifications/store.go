// internal/notifications/store.go
package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"notification-queue/internal/models"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	// FindUnique returns the notification already stored for key and uniqueKey.
	FindUnique(ctx context.Context, key, uniqueKey string) (*models.Notification, error)
}

const notificationColumns = `id, key, partner_id, unique_key, is_unique, date, data, attachment_data, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}
	var attachments interface{}
	if !n.AttachmentData.IsEmpty() {
		b, err := json.Marshal(n.AttachmentData)
		if err != nil {
			return fmt.Errorf("encode attachment data: %w", err)
		}
		attachments = string(b)
	}

	query := `
		INSERT INTO notifications (id, key, partner_id, unique_key, is_unique, date, data, attachment_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	err = s.db.QueryRowContext(ctx, query,
		n.ID, n.Key, n.PartnerID, n.UniqueKey, n.Unique, n.Date, string(data), attachments,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindUnique(ctx context.Context, key, uniqueKey string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE key = $1 AND unique_key = $2 ORDER BY created_at ASC LIMIT 1`

	var (
		n           models.Notification
		uk          sql.NullString
		date        sql.NullTime
		data        []byte
		attachments []byte
	)
	err := s.db.QueryRowContext(ctx, query, key, uniqueKey).Scan(
		&n.ID, &n.Key, &n.PartnerID, &uk, &n.Unique, &date, &data, &attachments, &n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}

	if uk.Valid {
		n.UniqueKey = &uk.String
	}
	if date.Valid {
		n.Date = &date.Time
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if len(attachments) > 0 {
		n.AttachmentData = &models.AttachmentData{}
		if err := json.Unmarshal(attachments, n.AttachmentData); err != nil {
			return nil, fmt.Errorf("decode attachment data: %w", err)
		}
	}
	return &n, nil
}
