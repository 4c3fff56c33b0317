package domain

import (
	"time"

	"github.com/google/uuid"
)

// DatasetID uniquely identifies an ingested dataset.
// It wraps uuid.UUID to provide type safety at the domain layer.
type DatasetID uuid.UUID

// String renders the ID in the canonical UUID form.
func (id DatasetID) String() string { return uuid.UUID(id).String() }

// DatasetStatus represents the lifecycle state of a dataset ingestion.
type DatasetStatus string

const (
	// DatasetStatusPending indicates ingestion has been enqueued but not finished yet.
	DatasetStatusPending DatasetStatus = "PENDING"
	// DatasetStatusCompleted indicates the train and test splits are stored and usable.
	DatasetStatusCompleted DatasetStatus = "COMPLETED"
	// DatasetStatusFailed indicates ingestion gave up; see LastError and Attempts.
	DatasetStatusFailed DatasetStatus = "FAILED"
)

// Dataset represents one ingestion of the housing table: a download of the
// source archive followed by an income-stratified train/test split.
type Dataset struct {
	// ID is the unique identifier of the dataset.
	ID DatasetID `json:"id"`
	// UserID is the identifier of the user who requested the ingestion.
	UserID UserID `json:"userId"`

	// Name is the caller-chosen label, unique among the user's live datasets.
	Name string `json:"name"`
	// SourceURL is the archive the ingestion downloads.
	SourceURL string `json:"sourceUrl"`
	// TestFraction is the share of rows held out for the test split.
	TestFraction float64 `json:"testFraction"`
	// Seed drives the shuffle inside each income stratum.
	Seed int64 `json:"seed"`

	// Status is the current lifecycle state of the ingestion.
	Status DatasetStatus `json:"status"`
	// Rows is the total row count of the source table, 0 until ingested.
	Rows int64 `json:"rows,omitempty"`
	// TrainRows is the row count of the train split.
	TrainRows int64 `json:"trainRows,omitempty"`
	// TestRows is the row count of the test split.
	TestRows int64 `json:"testRows,omitempty"`
	// TrainKey is the object storage key of the train split CSV.
	TrainKey string `json:"-"`
	// TestKey is the object storage key of the test split CSV.
	TestKey string `json:"-"`

	// Attempts is the number of times the system has tried this ingestion.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent ingestion error message, if any.
	LastError string `json:"-"`

	// CreatedAt is the time the ingestion was requested.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time the dataset last changed.
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt marks soft deletion; zero value means live.
	DeletedAt time.Time `json:"-"`
}
