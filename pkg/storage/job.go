package storage

import (
	"context"

	"github.com/riverqueue/river"
)

// JobStorage defines the minimal interface for enqueueing background jobs.
// Implementations are responsible for persisting the job into the underlying
// queue backend. The args parameter contains the job payload and opts can be
// used to customize insertion behavior (e.g., queue name, delay, priority).
//
// Example:
//
//	added, err := jobs.AddJob(ctx, deltas.JobArgs{Domain: "example.com"}, nil)
//	if err != nil { /* handle error */ }
//
//go:generate mockgen -package mockstorage -source=job.go -destination=mock/mockjobstorage.go *
type JobStorage interface {
	// AddJob enqueues a new job with the given arguments. It reports false when
	// the queue skipped the job as a duplicate of an unfinished one.
	AddJob(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (bool, error)
}
