// Package worker runs the delta and email workers on River, together with the
// periodic sweeps that enqueue them.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/otel/metric"

	"typowatch/internal/config"
	"typowatch/internal/deltas"
	"typowatch/internal/notify"
	"typowatch/pkg/logger"
	"typowatch/pkg/repository"
	"typowatch/pkg/storage"
)

// Options configure the job runner and the sweeps.
type Options struct {
	// MaxWorkers is the number of jobs processed concurrently.
	MaxWorkers int
	// DeltasInterval is how often the domain sweep runs.
	DeltasInterval time.Duration
	// EmailsInterval is how often the subscription sweep runs.
	EmailsInterval time.Duration
	// UnreadExpiry deregisters domains whose report was not read for this long
	// and that no subscription references. Zero disables expiry.
	UnreadExpiry time.Duration
	// DeltasMaxAttempts is the retry budget of delta jobs.
	DeltasMaxAttempts int
	// EmailsMaxAttempts is the retry budget of email jobs.
	EmailsMaxAttempts int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers:        cfg.Worker.MaxWorkers,
		DeltasInterval:    cfg.Deltas.Interval,
		EmailsInterval:    cfg.Emails.Interval,
		UnreadExpiry:      cfg.Deltas.UnreadExpiry,
		DeltasMaxAttempts: cfg.Deltas.MaxAttempts,
		EmailsMaxAttempts: cfg.Emails.MaxAttempts,
	}
}

// Deps are the collaborators the workers delegate to.
type Deps struct {
	Repo   *repository.Repository
	Deltas deltas.Processor
	Notify notify.Processor
	Jobs   storage.JobStorage
	Clock  clockwork.Clock
	Meter  metric.Meter
}

// Workers registers every worker on a new river.Workers bundle.
func Workers(deps Deps, options Options) (*river.Workers, error) {
	m, err := newJobMetrics(deps.Meter)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewDeltaWorker(deps.Deltas, m))
	river.AddWorker(workers, NewEmailWorker(deps.Notify, m))
	river.AddWorker(workers, NewDomainSweepWorker(deps.Repo, deps.Jobs, deps.Clock, options, m))
	river.AddWorker(workers, NewSubscriptionSweepWorker(deps.Repo, deps.Jobs, options, m))

	return workers, nil
}

// PeriodicJobs returns the sweeps, each also run once at startup.
func PeriodicJobs(options Options) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(options.DeltasInterval),
			func() (river.JobArgs, *river.InsertOpts) { return DomainSweepArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(options.EmailsInterval),
			func() (river.JobArgs, *river.InsertOpts) { return SubscriptionSweepArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start creates a River client processing every job kind on dbPool and starts it.
func Start(ctx context.Context, dbPool *pgxpool.Pool, deps Deps, options Options) (*river.Client[pgx.Tx], error) {
	workers, err := Workers(deps, options)
	if err != nil {
		return nil, err
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: max(options.MaxWorkers, 1)},
		},
		Workers:      workers,
		PeriodicJobs: PeriodicJobs(options),
		Logger:       logger.Slog(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
