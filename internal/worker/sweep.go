package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"typowatch/internal/deltas"
	"typowatch/internal/notify"
	"typowatch/pkg/logger"
	"typowatch/pkg/repository"
	"typowatch/pkg/storage"
)

// sweepInsertOpts keeps at most one unfinished sweep of a kind.
func sweepInsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// DomainSweepArgs triggers a delta run for every registered domain.
type DomainSweepArgs struct{}

// Kind implements river.JobArgs.
func (DomainSweepArgs) Kind() string { return "DomainSweepJob" }

// InsertOpts implements river.JobArgsWithInsertOpts.
func (DomainSweepArgs) InsertOpts() river.InsertOpts { return sweepInsertOpts() }

// SubscriptionSweepArgs triggers an email check for every subscription.
type SubscriptionSweepArgs struct{}

// Kind implements river.JobArgs.
func (SubscriptionSweepArgs) Kind() string { return "SubscriptionSweepJob" }

// InsertOpts implements river.JobArgsWithInsertOpts.
func (SubscriptionSweepArgs) InsertOpts() river.InsertOpts { return sweepInsertOpts() }

// DomainSweepWorker expires registrations nobody reads any more and enqueues
// one delta job for each remaining registered domain.
type DomainSweepWorker struct {
	river.WorkerDefaults[DomainSweepArgs]

	repo    *repository.Repository
	jobs    storage.JobStorage
	clock   clockwork.Clock
	options Options
	metrics *jobMetrics
}

// NewDomainSweepWorker constructs a DomainSweepWorker.
func NewDomainSweepWorker(
	repo *repository.Repository,
	jobs storage.JobStorage,
	clock clockwork.Clock,
	options Options,
	m *jobMetrics,
) *DomainSweepWorker {
	return &DomainSweepWorker{repo: repo, jobs: jobs, clock: clock, options: options, metrics: m}
}

// Work implements river.Worker.
func (w *DomainSweepWorker) Work(ctx context.Context, job *river.Job[DomainSweepArgs]) (err error) {
	defer func(start time.Time) { w.metrics.observe(ctx, job.Kind, start, err) }(time.Now())

	regs, err := w.repo.RegisteredDomains(ctx)
	if err != nil {
		return fmt.Errorf("could not list registered domains: %w", err)
	}
	subs, err := w.repo.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("could not list subscriptions: %w", err)
	}
	referenced := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		referenced[sub.Domain] = struct{}{}
	}

	now := w.clock.Now()
	queued, expired := 0, 0
	for _, reg := range regs {
		_, isReferenced := referenced[reg.Domain]
		if w.options.UnreadExpiry > 0 && !isReferenced && now.Sub(reg.LastReadAt) > w.options.UnreadExpiry {
			if err := w.repo.DeregisterDomain(ctx, reg.Domain); err != nil {
				return fmt.Errorf("could not deregister %s: %w", reg.Domain, err)
			}
			logger.Info(ctx, "domain deregistered", zap.String("domain", reg.Domain), zap.Time("lastReadAt", reg.LastReadAt))
			expired++

			continue
		}

		added, err := w.jobs.AddJob(ctx, deltas.JobArgs{Domain: reg.Domain, MaxAttempts: w.options.DeltasMaxAttempts}, nil)
		if err != nil {
			return fmt.Errorf("could not enqueue delta job for %s: %w", reg.Domain, err)
		}
		if added {
			queued++
		}
	}

	logger.Info(ctx, "domain sweep done",
		zap.Int("registered", len(regs)), zap.Int("queued", queued), zap.Int("expired", expired))

	return nil
}

// SubscriptionSweepWorker enqueues one email job per subscription.
type SubscriptionSweepWorker struct {
	river.WorkerDefaults[SubscriptionSweepArgs]

	repo    *repository.Repository
	jobs    storage.JobStorage
	options Options
	metrics *jobMetrics
}

// NewSubscriptionSweepWorker constructs a SubscriptionSweepWorker.
func NewSubscriptionSweepWorker(
	repo *repository.Repository,
	jobs storage.JobStorage,
	options Options,
	m *jobMetrics,
) *SubscriptionSweepWorker {
	return &SubscriptionSweepWorker{repo: repo, jobs: jobs, options: options, metrics: m}
}

// Work implements river.Worker.
func (w *SubscriptionSweepWorker) Work(ctx context.Context, job *river.Job[SubscriptionSweepArgs]) (err error) {
	defer func(start time.Time) { w.metrics.observe(ctx, job.Kind, start, err) }(time.Now())

	subs, err := w.repo.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("could not list subscriptions: %w", err)
	}

	queued := 0
	for _, sub := range subs {
		added, err := w.jobs.AddJob(ctx, notify.JobArgs{
			SubID:       sub.ID,
			Email:       sub.Email,
			Domain:      sub.Domain,
			MaxAttempts: w.options.EmailsMaxAttempts,
		}, nil)
		if err != nil {
			return fmt.Errorf("could not enqueue email job for %s: %w", sub.ID, err)
		}
		if added {
			queued++
		}
	}

	logger.Info(ctx, "subscription sweep done", zap.Int("subscriptions", len(subs)), zap.Int("queued", queued))

	return nil
}
