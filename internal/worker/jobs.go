package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"typowatch/internal/deltas"
	"typowatch/internal/notify"
	"typowatch/pkg/logger"
	"typowatch/pkg/serrors"
)

// DeltaWorker recomputes the delta report of one domain per job.
type DeltaWorker struct {
	river.WorkerDefaults[deltas.JobArgs]

	deltas  deltas.Processor
	metrics *jobMetrics
}

// NewDeltaWorker constructs a DeltaWorker delegating to processor.
func NewDeltaWorker(processor deltas.Processor, m *jobMetrics) *DeltaWorker {
	return &DeltaWorker{deltas: processor, metrics: m}
}

// Work implements river.Worker.
func (w *DeltaWorker) Work(ctx context.Context, job *river.Job[deltas.JobArgs]) (err error) {
	defer func(start time.Time) { w.metrics.observe(ctx, job.Kind, start, err) }(time.Now())
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.String("domain", job.Args.Domain))

	if err := w.deltas.ProcessDomain(ctx, job.Args.Domain); err != nil {
		return jobError(ctx, "could not process domain", err)
	}

	return nil
}

// EmailWorker processes one subscription per job.
type EmailWorker struct {
	river.WorkerDefaults[notify.JobArgs]

	notify  notify.Processor
	metrics *jobMetrics
}

// NewEmailWorker constructs an EmailWorker delegating to processor.
func NewEmailWorker(processor notify.Processor, m *jobMetrics) *EmailWorker {
	return &EmailWorker{notify: processor, metrics: m}
}

// Work implements river.Worker.
func (w *EmailWorker) Work(ctx context.Context, job *river.Job[notify.JobArgs]) (err error) {
	defer func(start time.Time) { w.metrics.observe(ctx, job.Kind, start, err) }(time.Now())
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	if err := w.notify.ProcessSub(ctx, job.Args.SubID, job.Args.Subscription()); err != nil {
		return jobError(ctx, "could not process subscription", err)
	}

	return nil
}

// jobError maps err to the River action for it: invalid input is cancelled
// since retrying cannot fix it, anything else is retried.
func jobError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, serrors.ErrValidation) {
		logger.Warn(ctx, msg+", cancelling job", zap.Error(err))

		return river.JobCancel(err) //nolint: wrapcheck
	}

	logger.Error(ctx, msg, zap.Error(err))

	return fmt.Errorf("%s: %w", msg, err)
}
