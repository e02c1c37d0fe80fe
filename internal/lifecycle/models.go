// internal/lifecycle/models.go
package lifecycle

import (
	"encoding/json"
	"strings"
	"time"

	"notification-queue/internal/models"
)

// Flag is a boolean that also accepts the strings "true" and "false".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*f = Flag(t)
	case string:
		*f = Flag(strings.EqualFold(strings.TrimSpace(t), "true"))
	default:
		*f = false
	}
	return nil
}

type CancelRequest struct {
	Key       string     `json:"key"`
	Email     string     `json:"email,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	UniqueKey string     `json:"uniqueKey,omitempty"`
	Remove    Flag       `json:"remove,omitempty"`
}

// Identified reports whether the request names which records to touch.
func (r CancelRequest) Identified() bool {
	return r.Key != "" && (r.UniqueKey != "" || r.Email != "")
}

type CleanupRequest struct {
	Key  string     `json:"key,omitempty"`
	Date *time.Time `json:"date,omitempty"`
}

type ReprocessRequest struct {
	ID      string               `json:"id" validate:"required"`
	History *models.HistoryEntry `json:"history,omitempty"`
}
