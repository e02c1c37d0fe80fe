// internal/workers/queue/notification-create/handler_test.go
package notificationcreate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"notification-queue/internal/common/camunda"
	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/logger"
	"notification-queue/internal/dispatch"
	"notification-queue/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCreator struct {
	CreateFunc func(ctx context.Context, batch models.NotificationBatch) (*dispatch.CreateResult, error)
	batches    []models.NotificationBatch
}

func (f *fakeCreator) CreateNotifications(ctx context.Context, batch models.NotificationBatch) (*dispatch.CreateResult, error) {
	f.batches = append(f.batches, batch)
	return f.CreateFunc(ctx, batch)
}

func createMockJob(variables map[string]interface{}) entities.Job {
	raw, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       11,
		Type:      TaskType,
		Variables: string(raw),
		Retries:   3,
	}}
}

// ==========================
// Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	creator := &fakeCreator{CreateFunc: func(_ context.Context, batch models.NotificationBatch) (*dispatch.CreateResult, error) {
		return &dispatch.CreateResult{Created: 1, Reused: 1, Failed: 1, IDs: []string{"n1", "n2", ""}}, nil
	}}
	h, err := NewHandler(HandlerOptions{Creator: creator, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	output, err := h.Execute(context.Background(), &Input{
		UniqueKey: "order-1",
		NotificationList: []models.Notification{
			{Key: "welcome"}, {Key: "welcome"}, {Key: "reminder"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, &Output{Created: 1, Reused: 1, Failed: 1, IDs: []string{"n1", "n2", ""}}, output)
	require.Len(t, creator.batches, 1)
	assert.Equal(t, "order-1", creator.batches[0].UniqueKey)
}

func TestHandler_Execute_SupersedeFailure(t *testing.T) {
	creator := &fakeCreator{CreateFunc: func(context.Context, models.NotificationBatch) (*dispatch.CreateResult, error) {
		return nil, fmt.Errorf("supersede unique key: deadlock")
	}}
	h, err := NewHandler(HandlerOptions{Creator: creator, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{NotificationList: []models.Notification{{Key: "a"}}})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeQueryExecutionFailed, errors.Normalize(err).Code)
}

func TestInputSchema(t *testing.T) {
	h, err := NewHandler(HandlerOptions{Creator: &fakeCreator{}, Logger: logger.NewNoOpLogger()})
	require.NoError(t, err)

	tests := []struct {
		name    string
		vars    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid batch",
			vars: map[string]interface{}{
				"notificationList": []interface{}{
					map[string]interface{}{"key": "welcome", "partnerId": "p1", "unique": true, "uniqueKey": "u1", "data": map[string]interface{}{"email": "a@x.io"}},
				},
				"uniqueKey": "u1",
			},
		},
		{name: "missing list", vars: map[string]interface{}{"uniqueKey": "u1"}, wantErr: true},
		{
			name:    "entry without key",
			vars:    map[string]interface{}{"notificationList": []interface{}{map[string]interface{}{"partnerId": "p1"}}},
			wantErr: true,
		},
		{
			name:    "bad date",
			vars:    map[string]interface{}{"notificationList": []interface{}{map[string]interface{}{"key": "a", "date": "soon"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var input Input
			err := camunda.DecodeVariables(createMockJob(tt.vars), h.schema, &input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidRequest, errors.Normalize(err).Code)
				return
			}
			require.NoError(t, err)
			require.Len(t, input.NotificationList, 1)
			assert.True(t, input.NotificationList[0].Unique)
			assert.Equal(t, "a@x.io", input.NotificationList[0].Data["email"])
		})
	}
}
