package deltas

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// JobArgs contains the arguments for a delta job submitted to River.
type JobArgs struct {
	// Domain is the domain to recompute. It is marked as unique so River keeps
	// at most one unfinished job per domain.
	Domain string `json:"domain" river:"unique"`

	// MaxAttempts configures the maximum number of times River should retry the job.
	MaxAttempts int `json:"-"`
}

// Kind returns the River job kind used to register and dispatch the delta worker.
func (args JobArgs) Kind() string { return "ProcessDomainJob" }

// InsertOpts returns the River options that control how the job is enqueued.
// Completed jobs are left out of the unique states so the next sweep can
// enqueue the domain again.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.MaxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
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
