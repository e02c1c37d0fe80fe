// internal/templates/templatestest/fake.go
package templatestest

import (
	"context"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"
	"notification-queue/internal/templates"
)

// Store serves a fixed template set from memory. Func fields override the
// in-memory behaviour.
type Store struct {
	Templates []models.NotificationTemplate

	ListByKeyFunc func(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, error)
	FetchAllFunc  func(ctx context.Context, f templates.Filter) ([]models.NotificationTemplate, error)
	CountFunc     func(ctx context.Context, f templates.Filter) (int, error)
	SaveFunc      func(ctx context.Context, t *models.NotificationTemplate) error
}

var _ templates.Store = (*Store)(nil)

func New(list ...models.NotificationTemplate) *Store {
	return &Store{Templates: list}
}

func (s *Store) ListByKey(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, error) {
	if s.ListByKeyFunc != nil {
		return s.ListByKeyFunc(ctx, key, partnerID)
	}
	var out []models.NotificationTemplate
	for _, t := range s.Templates {
		if t.Key == key && (t.PartnerID == "" || t.PartnerID == partnerID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) FindOne(_ context.Context, key string, channel models.Channel, partnerID string) (*models.NotificationTemplate, error) {
	for _, t := range s.Templates {
		if t.Key == key && t.Channel.Normalize() == channel.Normalize() && t.PartnerID == partnerID {
			found := t
			return &found, nil
		}
	}
	return nil, templates.ErrNotFound
}

func (s *Store) FetchAll(ctx context.Context, f templates.Filter) ([]models.NotificationTemplate, error) {
	if s.FetchAllFunc != nil {
		return s.FetchAllFunc(ctx, f)
	}
	return s.Templates, nil
}

func (s *Store) Count(ctx context.Context, f templates.Filter) (int, error) {
	if s.CountFunc != nil {
		return s.CountFunc(ctx, f)
	}
	return len(s.Templates), nil
}

func (s *Store) Search(context.Context, string, database.Page) ([]models.NotificationTemplate, error) {
	return s.Templates, nil
}

func (s *Store) Save(ctx context.Context, t *models.NotificationTemplate) error {
	if s.SaveFunc != nil {
		return s.SaveFunc(ctx, t)
	}
	s.Templates = append(s.Templates, *t)
	return nil
}
