package storage

import (
	"context"
	"time"

	"trainer/pkg/domain"
)

// DatasetUpdates describes a set of optional fields that can be applied to an
// existing dataset during an update. Only non-nil fields will be updated.
type DatasetUpdates struct {
	// Status is the new status to set for the dataset.
	Status domain.DatasetStatus
	// Rows, when provided, records the total row count of the ingested table.
	Rows *int64
	// TrainRows, when provided, records the row count of the train split.
	TrainRows *int64
	// TestRows, when provided, records the row count of the test split.
	TestRows *int64
	// TrainKey, when provided, records the object storage key of the train split.
	TrainKey *string
	// TestKey, when provided, records the object storage key of the test split.
	TestKey *string
	// LastError, when provided, sets the last error text. An empty string value
	// indicates the error should be cleared (set to NULL).
	LastError *string
	// MaxAttempts, when provided alongside a Failed status, ensures that status
	// is only updated to Failed if the attempts after increment would reach
	// this threshold. A value <= 0 disables this guard.
	MaxAttempts int
}

// DatasetPage groups a page of datasets returned for a user together with an
// optional NextCursor used for pagination.
type DatasetPage struct {
	// Datasets contains the current page of dataset records.
	Datasets []domain.Dataset
	// NextCursor points to the timestamp to be used as the cursor for fetching
	// the next page. It is nil when there is no next page.
	NextCursor *time.Time
}

// DatasetStorage defines CRUD and query operations related to datasets.
// Implementations should ensure idempotency and proper handling of
// soft-deletes where applicable.
type DatasetStorage interface {
	// StoreDatasets inserts one or more datasets and returns the stored rows as
	// they exist in the database (including generated fields).
	StoreDatasets(ctx context.Context, datasets ...domain.Dataset) ([]domain.Dataset, error)
	// UpdateDatasetByID updates a single dataset identified by its ID and returns
	// the updated row, or nil when no live row matched.
	// Notes:
	// - Attempts is incremented by 1 and updated_at is set automatically.
	// - If Status is Failed and MaxAttempts > 0, status is only set to Failed
	//   when the attempts after increment would reach MaxAttempts; otherwise
	//   status remains unchanged (i.e., stays Pending).
	UpdateDatasetByID(ctx context.Context, ID domain.DatasetID, updates DatasetUpdates) (*domain.Dataset, error)
	// DeleteDataset performs a soft delete for the given dataset ID and user ID
	// and returns the deleted dataset, or nil if it was not found.
	DeleteDataset(ctx context.Context, userID domain.UserID, ID domain.DatasetID) (*domain.Dataset, error)
	// UserDatasets returns a page of datasets for a user created before the
	// optional cursor time, limited by the given limit. If status is non-empty,
	// results are filtered to records with the given status.
	UserDatasets(ctx context.Context,
		userID domain.UserID,
		status domain.DatasetStatus,
		cursor time.Time,
		limit uint) (DatasetPage, error)
	// DatasetByID fetches a dataset by its ID for the given user, excluding
	// soft-deleted records. Returns nil when not found.
	DatasetByID(ctx context.Context, userID domain.UserID, ID domain.DatasetID) (*domain.Dataset, error)
	// ActiveDatasetByName returns the most recent live dataset of the user with
	// the given name whose status is Pending or Completed. Returns nil when no
	// such dataset exists. Used to reject duplicate ingestions of the same name.
	ActiveDatasetByName(ctx context.Context, userID domain.UserID, name string) (*domain.Dataset, error)
}
