// internal/workers/queue/queue-generate/models.go
package queuegenerate

import (
	"context"

	"notification-queue/internal/dispatch"
)

// Input mirrors dispatch.GenerateRequest field for field.
type Input = dispatch.GenerateRequest

type Output struct {
	RecordsCreated int `json:"recordsCreated"`
	ErrorRecords   int `json:"errorRecords"`
	Skipped        int `json:"skipped"`
}

// Generator is satisfied by *dispatch.Planner.
type Generator interface {
	Generate(ctx context.Context, req dispatch.GenerateRequest) (*dispatch.GenerateResult, error)
}
