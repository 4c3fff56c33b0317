package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunID uniquely identifies a training run.
// It wraps uuid.UUID to provide type safety at the domain layer.
type RunID uuid.UUID

// String renders the ID in the canonical UUID form.
func (id RunID) String() string { return uuid.UUID(id).String() }

// RunStatus represents the lifecycle state of a training run.
type RunStatus string

const (
	// RunStatusPending indicates the run has been enqueued but not trained yet.
	RunStatusPending RunStatus = "PENDING"
	// RunStatusCompleted indicates training finished and metrics plus an artifact are available.
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusFailed indicates training gave up; see LastError and Attempts for details.
	RunStatusFailed RunStatus = "FAILED"
)

// ModelKind selects the regression model a run trains.
type ModelKind string

const (
	// ModelLinear is ordinary least squares linear regression.
	ModelLinear ModelKind = "linear"
	// ModelTree is a single CART regression tree.
	ModelTree ModelKind = "tree"
	// ModelForest is a random forest of CART trees.
	ModelForest ModelKind = "forest"
)

// Valid reports whether k names a known model kind.
func (k ModelKind) Valid() bool {
	switch k {
	case ModelLinear, ModelTree, ModelForest:
		return true
	}

	return false
}

// SearchKind selects the hyperparameter search strategy of a run.
type SearchKind string

const (
	// SearchNone trains once with the run's parameters as given.
	SearchNone SearchKind = "none"
	// SearchGrid exhausts the whole parameter grid under cross validation.
	SearchGrid SearchKind = "grid"
	// SearchRandom samples SearchIterations parameter sets under cross validation.
	SearchRandom SearchKind = "random"
)

// Valid reports whether k names a known search strategy.
func (k SearchKind) Valid() bool {
	switch k {
	case SearchNone, SearchGrid, SearchRandom:
		return true
	}

	return false
}

// RunParams carries the hyperparameters of a training run. Tree bounds apply
// to tree and forest models, NumTrees and MaxFeatures to forests only.
type RunParams struct {
	// NumTrees is the forest size.
	NumTrees int `json:"numTrees,omitempty"`
	// MaxDepth bounds tree depth; 0 means unbounded.
	MaxDepth int `json:"maxDepth,omitempty"`
	// MaxFeatures is the number of candidate features per split; 0 means all.
	MaxFeatures int `json:"maxFeatures,omitempty"`
	// MinLeaf is the minimum number of samples a leaf may hold.
	MinLeaf int `json:"minLeaf,omitempty"`
	// Normalize standardizes features to zero mean and unit variance.
	Normalize bool `json:"normalize"`
	// Search selects the hyperparameter search strategy.
	Search SearchKind `json:"search,omitempty"`
	// Folds is the cross validation fold count used by searches.
	Folds int `json:"folds,omitempty"`
	// SearchIterations is the sample count for random search.
	SearchIterations int `json:"searchIterations,omitempty"`
	// Seed drives every random choice of the run (bootstrap, splits, search).
	Seed int64 `json:"seed,omitempty"`
}

// RunMetrics holds the held-out evaluation of a completed run.
type RunMetrics struct {
	// RMSE is the root mean squared error on the test split.
	RMSE float64 `json:"rmse"`
	// MAE is the mean absolute error on the test split.
	MAE float64 `json:"mae"`
	// R2 is the coefficient of determination on the test split.
	R2 float64 `json:"r2"`
	// TrainSeconds is the wall clock duration of fitting (including search).
	TrainSeconds float64 `json:"trainSeconds"`
}

// Run represents a single model training request and its current state.
type Run struct {
	// ID is the unique identifier of the run.
	ID RunID `json:"id"`
	// UserID is the identifier of the user who requested the run.
	UserID UserID `json:"userId"`
	// DatasetID names the ingested dataset the run trains on.
	DatasetID DatasetID `json:"datasetId"`

	// Model is the regression model kind being trained.
	Model ModelKind `json:"model"`
	// Params are the hyperparameters (after server-side defaulting).
	Params RunParams `json:"params"`
	// Status is the current lifecycle state of the run.
	Status RunStatus `json:"status"`
	// Metrics holds the evaluation of a completed run, nil before that.
	Metrics *RunMetrics `json:"metrics,omitempty"`
	// ArtifactKey is the object storage key of the trained model, empty before completion.
	ArtifactKey string `json:"artifactKey,omitempty"`

	// Attempts is the number of times the system has tried to train this run.
	Attempts uint `json:"attempts"`
	// LastError stores the most recent training error message, if any.
	LastError string `json:"-"`

	// CreatedAt is the time the run was requested.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time the run last changed (status, metrics).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt marks soft deletion; zero value means live.
	DeletedAt time.Time `json:"-"`
}
