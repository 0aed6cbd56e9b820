package worker

import "go.opentelemetry.io/otel/metric"

// NewJobMetrics exposes the job instruments to tests.
func NewJobMetrics(meter metric.Meter) (*jobMetrics, error) { return newJobMetrics(meter) }
type JobMetrics = jobMetrics
