// internal/models/history.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// History actions written by the queue.
const (
	ActionStartProcessing = "Start Processing"
	ActionSendMail        = "Send Mail"
	ActionSendMessage     = "Send Message"
	ActionSendFail        = "Send Fail"
	ActionRead            = "Read"
	ActionReprocess       = "Reprocess"
	ActionAbort           = "Processing Aborted"
)

// HistoryEntry is one element of a queue record's event log. Context keys are
// flattened next to action and date when serialized.
type HistoryEntry struct {
	Action  string
	Date    time.Time
	Context map[string]interface{}
}

type History []HistoryEntry

func NewHistoryEntry(action string, context map[string]interface{}) HistoryEntry {
	return HistoryEntry{
		Action:  action,
		Date:    time.Now().UTC(),
		Context: context,
	}
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Context)+2)
	for k, v := range e.Context {
		out[k] = v
	}
	out["action"] = e.Action
	out["date"] = e.Date.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

func (e *HistoryEntry) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	if action, ok := raw["action"].(string); ok {
		e.Action = action
	}
	if date, ok := raw["date"].(string); ok && date != "" {
		parsed, err := time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return fmt.Errorf("history date: %w", err)
		}
		e.Date = parsed
	}

	delete(raw, "action")
	delete(raw, "date")
	if len(raw) > 0 {
		e.Context = raw
	}
	return nil
}
