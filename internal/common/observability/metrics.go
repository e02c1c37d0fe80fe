// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records job and batch-run metrics through OpenTelemetry,
// exported on the shared Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	batchRuns     otelmetric.Int64Counter
	batchItems    otelmetric.Int64Counter
	batchDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	o := &Observability{meterProvider: provider}
	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.batchRuns, _ = meter.Int64Counter(
		"queue.batch.runs",
		otelmetric.WithDescription("Batch processor runs"),
	)
	o.batchItems, _ = meter.Int64Counter(
		"queue.batch.items",
		otelmetric.WithDescription("Items handled by batch processor runs, by outcome"),
	)
	o.batchDuration, _ = meter.Float64Histogram(
		"queue.batch.duration",
		otelmetric.WithDescription("Batch processor run duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// RecordBatchRun records one processing run and its per-outcome counts.
func (o *Observability) RecordBatchRun(ctx context.Context, duration time.Duration, outcomes map[string]int) {
	if o == nil || o.batchRuns == nil {
		return
	}
	o.batchRuns.Add(ctx, 1)
	o.batchDuration.Record(ctx, float64(duration.Milliseconds()))
	for outcome, n := range outcomes {
		if n == 0 {
			continue
		}
		o.batchItems.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
