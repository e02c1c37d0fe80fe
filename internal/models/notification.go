// internal/models/notification.go
package models

import "time"

// Notification is the persisted trace of one triggering event. Creating it
// expands into queue records through the dispatch planner.
type Notification struct {
	ID             string                 `json:"id"`
	Key            string                 `json:"key" validate:"required"`
	PartnerID      string                 `json:"partnerId"`
	UniqueKey      *string                `json:"uniqueKey,omitempty"`
	Unique         bool                   `json:"unique"`
	Date           *time.Time             `json:"date"`
	Data           map[string]interface{} `json:"data"`
	AttachmentData *AttachmentData        `json:"attachmentData,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// NotificationBatch is the transient notification event.
type NotificationBatch struct {
	NotificationList []Notification `json:"notificationList" validate:"dive"`
	UniqueKey        string         `json:"uniqueKey,omitempty"`
}
