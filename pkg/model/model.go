// Package model implements the regression models trained on the housing
// table: ordinary least squares, CART regression trees, and random forests,
// together with preprocessing, cross-validated hyperparameter search,
// evaluation metrics, and a JSON artifact codec.
package model

import (
	"context"
	"trainer/pkg/serrors"
)

// Kind names a regression model family.
type Kind string

const (
	// KindLinear is ordinary least squares linear regression.
	KindLinear Kind = "linear"
	// KindTree is a single CART regression tree.
	KindTree Kind = "tree"
	// KindForest is a random forest of CART trees.
	KindForest Kind = "forest"
)

// Valid reports whether k names a known model family.
func (k Kind) Valid() bool {
	switch k {
	case KindLinear, KindTree, KindForest:
		return true
	}

	return false
}

// Params carries the hyperparameters a fit can use. Fields that do not apply
// to the chosen kind are ignored; zero values select the documented defaults.
type Params struct {
	// NumTrees is the forest size, default 100.
	NumTrees int `json:"numTrees,omitempty"`
	// MaxDepth bounds tree depth, 0 means unbounded.
	MaxDepth int `json:"maxDepth,omitempty"`
	// MaxFeatures is the number of candidate features per split, 0 means all.
	MaxFeatures int `json:"maxFeatures,omitempty"`
	// MinLeaf is the minimum number of samples per leaf, default 1.
	MinLeaf int `json:"minLeaf,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.NumTrees <= 0 {
		p.NumTrees = 100
	}
	if p.MinLeaf < 1 {
		p.MinLeaf = 1
	}
	if p.MaxDepth < 0 {
		p.MaxDepth = 0
	}
	if p.MaxFeatures < 0 {
		p.MaxFeatures = 0
	}

	return p
}

// Regressor predicts a target value from one feature vector.
type Regressor interface {
	Predict(x []float64) float64
}

// PredictBatch runs r over every row of X.
func PredictBatch(r Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = r.Predict(x)
	}

	return out
}

// Fit trains a model of the given kind on X and y. The seed drives every
// random choice (bootstrap samples, feature subsets) so fits reproduce.
func Fit(ctx context.Context, kind Kind, X [][]float64, y []float64, p Params, seed int64) (Regressor, error) {
	if err := checkMatrix(X, y); err != nil {
		return nil, err
	}

	switch kind {
	case KindLinear:
		return FitLinear(X, y)
	case KindTree:
		return FitTree(X, y, p, seed)
	case KindForest:
		return FitForest(ctx, X, y, p, seed)
	default:
		return nil, serrors.With(serrors.ErrBadRequest, "unknown model kind %q", kind)
	}
}

func checkMatrix(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return serrors.With(serrors.ErrBadRequest, "feature matrix has no rows")
	}
	if len(X) != len(y) {
		return serrors.With(serrors.ErrBadRequest,
			"feature matrix has %d rows but %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return serrors.With(serrors.ErrBadRequest, "feature matrix has no columns")
	}
	for i, row := range X {
		if len(row) != width {
			return serrors.With(serrors.ErrBadRequest,
				"feature row %d has %d columns, want %d", i, len(row), width)
		}
	}

	return nil
}
