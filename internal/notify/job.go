package notify

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"typowatch/pkg/domain"
)

// JobArgs contains the arguments for an email job submitted to River.
type JobArgs struct {
	// SubID is unique so River never runs two jobs for one subscription at once.
	SubID  domain.SubscriptionID `json:"subId"  river:"unique"`
	Email  string                `json:"email"`
	Domain string                `json:"domain"`

	// MaxAttempts configures the maximum number of times River should retry the job.
	MaxAttempts int `json:"-"`
}

// Kind returns the River job kind used to register and dispatch the email worker.
func (args JobArgs) Kind() string { return "ProcessSubJob" }

// InsertOpts returns the River options that control how the job is enqueued,
// keeping at most one unfinished job per subscription.
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

// Subscription returns the identity carried by the job.
func (args JobArgs) Subscription() domain.Subscription {
	return domain.Subscription{ID: args.SubID, Email: args.Email, Domain: args.Domain}
}
