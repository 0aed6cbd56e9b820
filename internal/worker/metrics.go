package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"typowatch/pkg/metrics"
)

// Outcomes recorded on processed jobs.
const (
	outcomeSuccess   = "success"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

type jobMetrics struct {
	processed metric.Int64Counter
	duration  metric.Float64Histogram
}

func newJobMetrics(meter metric.Meter) (*jobMetrics, error) {
	processed, err := meter.Int64Counter("typowatch_jobs_processed",
		metric.WithDescription("Number of jobs processed by kind and outcome"))
	if err != nil {
		return nil, fmt.Errorf("could not create jobs counter: %w", err)
	}

	duration, err := meter.Float64Histogram("typowatch_job_duration",
		metric.WithDescription("Job processing duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create job duration histogram: %w", err)
	}

	return &jobMetrics{processed: processed, duration: duration}, nil
}

// observe records the outcome of a job of kind that started at start.
func (m *jobMetrics) observe(ctx context.Context, kind string, start time.Time, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailed
		var cancelErr *river.JobCancelError
		if errors.As(err, &cancelErr) {
			outcome = outcomeCancelled
		}
	}

	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("outcome", outcome))
	m.processed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
