package ingest

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Queue is the river queue ingestion jobs run on.
const Queue = "ingest"

// JobArgs contains the arguments for an ingestion job submitted to River.
// The dataset ID is the unique key so one dataset never has two live jobs.
type JobArgs struct {
	// DatasetID is the dataset to ingest, in canonical UUID form. It is marked
	// as unique so River can enforce one job per dataset.
	DatasetID string `json:"datasetId" river:"unique"`
	// UserID owns the dataset and scopes the worker's storage calls.
	UserID string `json:"userId"`

	// maxAttempts configures the maximum number of times River should retry the job.
	maxAttempts int
}

// Kind returns the River job kind used to register and dispatch the ingestion worker.
func (args JobArgs) Kind() string { return "IngestDatasetJob" }

// InsertOpts returns the River options that control how the job is enqueued,
// including the maximum retry attempts and uniqueness constraints to prevent
// duplicate live jobs for the same dataset.
func (args JobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		Queue:       Queue,
		// make sure we only have one live job per dataset
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
