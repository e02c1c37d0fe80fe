// internal/templates/store.go
package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"
)

var ErrNotFound = errors.New("notification template not found")

// Filter narrows template listings. A nil PartnerID lists every scope.
type Filter struct {
	PartnerID *string
	Key       string
	Channel   models.Channel
	Enabled   *bool
	database.Page
}

// Store is the persistence contract for notification templates.
type Store interface {
	// ListByKey returns the global templates for key plus the ones owned by partnerID.
	ListByKey(ctx context.Context, key, partnerID string) ([]models.NotificationTemplate, error)
	FindOne(ctx context.Context, key string, channel models.Channel, partnerID string) (*models.NotificationTemplate, error)
	FetchAll(ctx context.Context, f Filter) ([]models.NotificationTemplate, error)
	Count(ctx context.Context, f Filter) (int, error)
	Search(ctx context.Context, q string, page database.Page) ([]models.NotificationTemplate, error)
	// Save upserts by (key, channel, partnerId).
	Save(ctx context.Context, t *models.NotificationTemplate) error
}

// Mapping holds one template per key+channel.
type Mapping map[string]models.NotificationTemplate

// Templates returns the mapping ordered by key+channel.
func (m Mapping) Templates() []models.NotificationTemplate {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.NotificationTemplate, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Resolve merges the global and partner templates for key. A partner template
// replaces the global one with the same key+channel as a whole.
func Resolve(ctx context.Context, store Store, key, partnerID string) (Mapping, error) {
	list, err := store.ListByKey(ctx, key, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list templates for %q: %w", key, err)
	}

	mapping := make(Mapping, len(list))
	for _, t := range list {
		if t.IsGlobal() {
			mapping[t.MappingKey()] = t
		}
	}
	if partnerID == "" {
		return mapping, nil
	}
	for _, t := range list {
		if t.PartnerID == partnerID {
			mapping[t.MappingKey()] = t
		}
	}
	return mapping, nil
}

// Governing finds the template for one key and channel, preferring the
// partner scope and falling back to the global scope.
func Governing(ctx context.Context, store Store, key string, channel models.Channel, partnerID string) (*models.NotificationTemplate, error) {
	if partnerID != "" {
		t, err := store.FindOne(ctx, key, channel, partnerID)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return store.FindOne(ctx, key, channel, "")
}
