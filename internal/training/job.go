package training

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Queue is the river queue training jobs run on.
const Queue = "training"

// JobArgs contains the arguments for a training job submitted to River.
// The run ID is the unique key so one run never has two live jobs.
type JobArgs struct {
	// RunID is the run to train, in canonical UUID form. It is marked as unique
	// so River can enforce one job per run.
	RunID string `json:"runId" river:"unique"`
	// UserID owns the run and scopes the worker's storage calls.
	UserID string `json:"userId"`

	// maxAttempts configures the maximum number of times River should retry the job.
	maxAttempts int
}

// Kind returns the River job kind used to register and dispatch the training worker.
func (args JobArgs) Kind() string { return "TrainModelJob" }

// InsertOpts returns the River options that control how the job is enqueued,
// including the maximum retry attempts and uniqueness constraints to prevent
// duplicate live jobs for the same run.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		Queue:       Queue,
		// make sure we only have one live job per run
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
