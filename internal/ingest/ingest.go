// Package ingest accepts dataset ingestion requests: it validates them,
// stores the dataset row and enqueues the background job that downloads the
// source archive and writes the train/test splits.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"
	"trainer/internal/config"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/serrors"
	"trainer/pkg/storage"
)

// maxNameLength bounds the caller-chosen dataset name.
const maxNameLength = 100

// Options configure how ingestion jobs are enqueued.
// These settings are typically derived from application configuration.
type Options struct {
	// MaxAttempts is the maximum number of attempts the background worker should
	// make when ingesting a dataset before marking it failed.
	MaxAttempts int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts: cfg.Ingest.MaxAttempts,
	}
}

// CreateDatasetRequest carries the caller-supplied ingestion parameters.
// Zero values select the documented defaults.
type CreateDatasetRequest struct {
	// Name labels the dataset, unique among the user's live datasets.
	Name string
	// SourceURL is the archive to download; empty selects the public housing archive.
	SourceURL string
	// TestFraction is the share of rows held out for the test split; 0 selects 0.2.
	TestFraction float64
	// Seed drives the stratified shuffle; 0 selects the default seed.
	Seed int64
}

// withDefaults validates the request and fills the defaulted fields.
func (req CreateDatasetRequest) withDefaults() (CreateDatasetRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return req, serrors.With(serrors.ErrBadRequest, "dataset name is required")
	}
	if len(req.Name) > maxNameLength {
		return req, serrors.With(serrors.ErrBadRequest, "dataset name exceeds %d characters", maxNameLength)
	}

	if req.SourceURL == "" {
		req.SourceURL = dataset.DefaultSourceURL
	}
	normalized, err := NormalizeSourceURL(req.SourceURL)
	if err != nil {
		return req, serrors.Wrap(serrors.ErrBadRequest, err, "invalid source URL")
	}
	req.SourceURL = normalized

	if req.TestFraction == 0 {
		req.TestFraction = dataset.DefaultTestFraction
	}
	if req.TestFraction <= 0 || req.TestFraction >= 1 {
		return req, serrors.With(serrors.ErrBadRequest, "test fraction must be between 0 and 1")
	}

	if req.Seed == 0 {
		req.Seed = dataset.DefaultSeed
	}

	return req, nil
}

// service is the concrete implementation of the Service interface.
// It coordinates persistence with the storage layer and job enqueueing.
type service struct {
	// options holds runtime configuration that affects enqueueing.
	options Options
	// storage is the persistence layer used to store datasets and manage jobs.
	storage storage.Storage
}

// CreateDataset stores a new PENDING dataset for the given user and enqueues
// the ingestion job in the same transaction. A live dataset with the same name
// is a conflict.
func (s service) CreateDataset(ctx context.Context,
	userID domain.UserID,
	req CreateDatasetRequest) (*domain.Dataset, error) {
	req, err := req.withDefaults()
	if err != nil {
		return nil, err
	}

	var ds *domain.Dataset
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		existing, err := tx.ActiveDatasetByName(ctx, userID, req.Name)
		if err != nil {
			return fmt.Errorf("could not check existing datasets: %w", err)
		}
		if existing != nil {
			return serrors.With(serrors.ErrConflict, "dataset %q already exists", req.Name)
		}

		res, err := tx.StoreDatasets(ctx, domain.Dataset{
			UserID:       userID,
			Name:         req.Name,
			SourceURL:    req.SourceURL,
			TestFraction: req.TestFraction,
			Seed:         req.Seed,
			Status:       domain.DatasetStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store dataset: %w", err)
		}
		ds = &res[0]

		jobAdded, err := tx.AddJob(ctx, JobArgs{
			DatasetID:   ds.ID.String(),
			UserID:      userID.String(),
			maxAttempts: s.options.MaxAttempts,
		}, nil)
		if err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		// a freshly stored dataset has a new ID, so a unique-job collision can
		// only mean the same request is being replayed.
		if !jobAdded {
			return serrors.With(serrors.ErrConflict, "ingestion already queued")
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not create dataset: %w", err)
	}

	return ds, nil
}

// UserDatasets returns a page of datasets for the given user filtered by
// status. It supports cursor-based pagination using an RFC3339 timestamp
// string and returns the next cursor when more results are available.
func (s service) UserDatasets(ctx context.Context,
	userID domain.UserID,
	status domain.DatasetStatus,
	cursor string,
	limit uint) ([]domain.Dataset, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := s.storage.UserDatasets(ctx, userID, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get user datasets: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339)
	}

	return page.Datasets, next, nil
}

// Dataset fetches a single dataset by ID for the given user. It returns a
// not-found error when no matching dataset exists.
func (s service) Dataset(ctx context.Context,
	userID domain.UserID,
	datasetID domain.DatasetID) (*domain.Dataset, error) {
	res, err := s.storage.DatasetByID(ctx, userID, datasetID)
	if err != nil {
		return nil, fmt.Errorf("could not get dataset: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "dataset not found")
	}

	return res, nil
}

// Delete soft-deletes a dataset belonging to the given user. Datasets with
// pending training runs cannot be deleted; the split objects are kept because
// completed runs reference them.
func (s service) Delete(ctx context.Context, userID domain.UserID, datasetID domain.DatasetID) error {
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		ds, err := tx.DatasetByID(ctx, userID, datasetID)
		if err != nil {
			return fmt.Errorf("could not get dataset: %w", err)
		}
		if ds == nil {
			return serrors.With(serrors.ErrNotFound, "dataset not found")
		}

		pending, err := tx.PendingRunCountByDataset(ctx, datasetID)
		if err != nil {
			return fmt.Errorf("could not count pending runs: %w", err)
		}
		if pending > 0 {
			return serrors.With(serrors.ErrConflict, "dataset has %d pending runs", pending)
		}

		if _, err := tx.DeleteDataset(ctx, userID, datasetID); err != nil {
			return fmt.Errorf("could not delete dataset: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("could not delete dataset: %w", err)
	}

	return nil
}

// New creates a new Service instance backed by the provided storage and
// configured with the given options.
func New(storage storage.Storage, options Options) Service {
	return &service{
		options: options,
		storage: storage,
	}
}
