// internal/common/camunda/worker_test.go
package camunda

import (
	"fmt"
	"testing"

	"notification-queue/internal/common/errors"
	"notification-queue/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeHandler struct {
	HandleFunc func(client worker.JobClient, job entities.Job) error
	calls      int
}

func (f *fakeHandler) Handle(client worker.JobClient, job entities.Job) error {
	f.calls++
	return f.HandleFunc(client, job)
}

func testJob(key int64) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: key, Type: "queue.test"}}
}

func TestInstrument_Success(t *testing.T) {
	handler := &fakeHandler{HandleFunc: func(worker.JobClient, entities.Job) error { return nil }}
	before := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues("queue.test.ok"))

	instrument("queue.test.ok", handler, nil, zap.NewNop())(nil, testJob(1))

	assert.Equal(t, 1, handler.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues("queue.test.ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues("queue.test.ok")))
}

func TestInstrument_Failure(t *testing.T) {
	handler := &fakeHandler{HandleFunc: func(worker.JobClient, entities.Job) error {
		return fmt.Errorf("claim: %w", errors.NewQueryExecutionFailedError("claim", fmt.Errorf("deadlock")))
	}}
	label := string(errors.ErrCodeQueryExecutionFailed)
	before := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues("queue.test.fail", label))

	instrument("queue.test.fail", handler, nil, zap.NewNop())(nil, testJob(2))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues("queue.test.fail", label)))
}
