// Package training accepts model training requests: it validates the
// hyperparameters against the chosen model, stores the run row, enqueues the
// background training job, and serves predictions and artifact downloads for
// completed runs.
package training

import (
	"context"
	"fmt"
	"io"
	"time"
	"trainer/internal/config"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/model"
	"trainer/pkg/objstore"
	"trainer/pkg/serrors"
	"trainer/pkg/storage"
)

// DefaultSeed is the model seed used when the request leaves it unset.
const DefaultSeed int64 = 42

const (
	maxNumTrees         = 1000
	maxTreeDepth        = 64
	maxFolds            = 10
	maxSearchIterations = 100
	maxPredictRows      = 1000
)

// Options configure how training jobs are enqueued and how artifact downloads
// are presigned. These settings are typically derived from application
// configuration.
type Options struct {
	// MaxAttempts is the maximum number of attempts the background worker should
	// make when training a run before marking it failed.
	MaxAttempts int
	// PresignExpiry bounds the lifetime of presigned artifact download URLs.
	PresignExpiry time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts:   cfg.Training.MaxAttempts,
		PresignExpiry: cfg.ObjectStorage.PresignExpiry,
	}
}

// CreateRunRequest carries the caller-supplied training parameters.
type CreateRunRequest struct {
	// DatasetID names the ingested dataset to train on.
	DatasetID domain.DatasetID
	// Model is the regression model kind to train.
	Model domain.ModelKind
	// Params are the hyperparameters; zero values select the documented defaults.
	Params domain.RunParams
}

// withDefaults validates the request against the chosen model kind and fills
// the defaulted fields.
func (req CreateRunRequest) withDefaults() (CreateRunRequest, error) {
	if !req.Model.Valid() {
		return req, serrors.With(serrors.ErrBadRequest, "unknown model kind %q", req.Model)
	}

	p := req.Params
	if p.NumTrees < 0 || p.MaxDepth < 0 || p.MaxFeatures < 0 || p.MinLeaf < 0 ||
		p.Folds < 0 || p.SearchIterations < 0 {
		return req, serrors.With(serrors.ErrBadRequest, "hyperparameters must not be negative")
	}

	if p.Search == "" {
		p.Search = domain.SearchNone
	}
	if !p.Search.Valid() {
		return req, serrors.With(serrors.ErrBadRequest, "unknown search kind %q", p.Search)
	}

	// tree bounds apply to tree and forest models, forest sizing to forests only
	if req.Model == domain.ModelLinear {
		if p.NumTrees != 0 || p.MaxDepth != 0 || p.MaxFeatures != 0 || p.MinLeaf != 0 {
			return req, serrors.With(serrors.ErrBadRequest, "tree parameters do not apply to linear models")
		}
		if p.Search != domain.SearchNone {
			return req, serrors.With(serrors.ErrBadRequest, "linear models have no search space")
		}
	}
	if req.Model == domain.ModelTree && (p.NumTrees != 0 || p.MaxFeatures != 0) {
		return req, serrors.With(serrors.ErrBadRequest, "forest parameters do not apply to single trees")
	}

	if p.NumTrees > maxNumTrees {
		return req, serrors.With(serrors.ErrBadRequest, "numTrees exceeds %d", maxNumTrees)
	}
	if p.MaxDepth > maxTreeDepth {
		return req, serrors.With(serrors.ErrBadRequest, "maxDepth exceeds %d", maxTreeDepth)
	}

	switch p.Search {
	case domain.SearchNone:
		if p.Folds != 0 || p.SearchIterations != 0 {
			return req, serrors.With(serrors.ErrBadRequest, "folds and iterations apply to searches only")
		}
	case domain.SearchGrid:
		if p.SearchIterations != 0 {
			return req, serrors.With(serrors.ErrBadRequest, "searchIterations applies to random search only")
		}
	case domain.SearchRandom:
		if p.SearchIterations == 0 {
			p.SearchIterations = model.DefaultSearchIterations
		}
		if p.SearchIterations > maxSearchIterations {
			return req, serrors.With(serrors.ErrBadRequest, "searchIterations exceeds %d", maxSearchIterations)
		}
	}
	if p.Search != domain.SearchNone {
		if p.Folds == 0 {
			p.Folds = model.DefaultFolds
		}
		if p.Folds < 2 || p.Folds > maxFolds {
			return req, serrors.With(serrors.ErrBadRequest, "folds must be between 2 and %d", maxFolds)
		}
	}

	if req.Model != domain.ModelLinear && p.MinLeaf == 0 {
		p.MinLeaf = 1
	}
	if req.Model == domain.ModelForest && p.NumTrees == 0 {
		p.NumTrees = 100
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}

	req.Params = p

	return req, nil
}

// service is the concrete implementation of the Service interface.
// It coordinates persistence, job enqueueing and artifact access.
type service struct {
	// options holds runtime configuration that affects enqueueing and presigning.
	options Options
	// storage is the persistence layer used to store runs and manage jobs.
	storage storage.Storage
	// objstore serves stored model artifacts.
	objstore objstore.Store
}

// CreateRun stores a new PENDING run for the given user and enqueues the
// training job in the same transaction. The dataset must exist and must not
// have failed ingestion; a still-pending dataset is fine, the worker waits
// for it.
func (s service) CreateRun(ctx context.Context,
	userID domain.UserID,
	req CreateRunRequest) (*domain.Run, error) {
	req, err := req.withDefaults()
	if err != nil {
		return nil, err
	}

	var run *domain.Run
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		ds, err := tx.DatasetByID(ctx, userID, req.DatasetID)
		if err != nil {
			return fmt.Errorf("could not get dataset: %w", err)
		}
		if ds == nil {
			return serrors.With(serrors.ErrNotFound, "dataset not found")
		}
		if ds.Status == domain.DatasetStatusFailed {
			return serrors.With(serrors.ErrConflict, "dataset ingestion failed, re-create it first")
		}

		res, err := tx.StoreRuns(ctx, domain.Run{
			UserID:    userID,
			DatasetID: req.DatasetID,
			Model:     req.Model,
			Params:    req.Params,
			Status:    domain.RunStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		run = &res[0]

		jobAdded, err := tx.AddJob(ctx, JobArgs{
			RunID:       run.ID.String(),
			UserID:      userID.String(),
			maxAttempts: s.options.MaxAttempts,
		}, nil)
		if err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		// a freshly stored run has a new ID, so a unique-job collision can only
		// mean the same request is being replayed.
		if !jobAdded {
			return serrors.With(serrors.ErrConflict, "training already queued")
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}

	return run, nil
}

// UserRuns returns a page of runs for the given user filtered by status.
// It supports cursor-based pagination using an RFC3339 timestamp string and
// returns the next cursor when more results are available.
func (s service) UserRuns(ctx context.Context,
	userID domain.UserID,
	status domain.RunStatus,
	cursor string,
	limit uint) ([]domain.Run, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}

	page, err := s.storage.UserRuns(ctx, userID, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get user runs: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339)
	}

	return page.Runs, next, nil
}

// Run fetches a single run by ID for the given user. It returns a not-found
// error when no matching run exists.
func (s service) Run(ctx context.Context, userID domain.UserID, runID domain.RunID) (*domain.Run, error) {
	res, err := s.storage.RunByID(ctx, userID, runID)
	if err != nil {
		return nil, fmt.Errorf("could not get run: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "run not found")
	}

	return res, nil
}

// Delete soft-deletes a run belonging to the given user. The artifact object
// is kept; queued jobs notice the deleted row and cancel themselves.
func (s service) Delete(ctx context.Context, userID domain.UserID, runID domain.RunID) error {
	res, err := s.storage.DeleteRun(ctx, userID, runID)
	if err != nil {
		return fmt.Errorf("could not delete run: %w", err)
	}
	if res == nil {
		return serrors.With(serrors.ErrNotFound, "run not found")
	}

	return nil
}

// completedRun fetches a run and ensures its artifact is usable.
func (s service) completedRun(ctx context.Context,
	userID domain.UserID,
	runID domain.RunID) (*domain.Run, error) {
	run, err := s.Run(ctx, userID, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.RunStatusCompleted {
		return nil, serrors.With(serrors.ErrConflict, "run is %s, not COMPLETED", run.Status)
	}

	return run, nil
}

// Predict evaluates the stored model of a completed run on the given rows,
// returning one predicted median house value per row.
func (s service) Predict(ctx context.Context,
	userID domain.UserID,
	runID domain.RunID,
	rows []dataset.Row) ([]float64, error) {
	if len(rows) == 0 {
		return nil, serrors.With(serrors.ErrBadRequest, "no rows to predict")
	}
	if len(rows) > maxPredictRows {
		return nil, serrors.With(serrors.ErrBadRequest, "at most %d rows per request", maxPredictRows)
	}

	run, err := s.completedRun(ctx, userID, runID)
	if err != nil {
		return nil, err
	}

	rc, err := s.objstore.Get(ctx, run.ArtifactKey)
	if err != nil {
		return nil, fmt.Errorf("could not fetch artifact: %w", err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("could not read artifact: %w", err)
	}

	artifact, err := model.Decode(raw)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "stored artifact is not usable")
	}
	reg, err := artifact.Regressor()
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "stored artifact is not usable")
	}

	out := make([]float64, len(rows))
	for i, row := range rows {
		x, err := artifact.Preprocess.Features(row)
		if err != nil {
			return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid row %d", i)
		}
		out[i] = reg.Predict(x)
	}

	return out, nil
}

// ArtifactURL returns a short-lived presigned download URL for the stored
// model of a completed run.
func (s service) ArtifactURL(ctx context.Context, userID domain.UserID, runID domain.RunID) (string, error) {
	run, err := s.completedRun(ctx, userID, runID)
	if err != nil {
		return "", err
	}

	u, err := s.objstore.PresignGet(ctx, run.ArtifactKey, s.options.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("could not presign artifact: %w", err)
	}

	return u, nil
}

// New creates a new Service instance backed by the provided storage and
// object store, configured with the given options.
func New(storage storage.Storage, store objstore.Store, options Options) Service {
	return &service{
		options:  options,
		storage:  storage,
		objstore: store,
	}
}
