// pkg/registry/schema.go
package registry

import (
	"fmt"
	"time"
)

// ActivityRegistry describes the job types this service works and their contracts.
type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

// Activity is the contract of one Zeebe task type.
type Activity struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	TaskType     string                 `json:"taskType"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
	// ErrorCodes are the BPMN error codes the worker may throw.
	ErrorCodes []string `json:"errorCodes"`
	Timeout    string   `json:"timeout"`
	Retries    int      `json:"retries"`
	Tags       []string `json:"tags"`
}

// TimeoutDuration parses Timeout. An empty timeout is zero.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s: timeout %q: %w", a.ID, a.Timeout, err)
	}
	return d, nil
}
