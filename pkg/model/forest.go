package model

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Forest is a bagged ensemble of CART trees: every tree trains on a
// bootstrap sample with per-split feature subsampling, and predictions
// average the trees.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// FitForest trains p.NumTrees trees. Each tree derives its own generator
// from the seed and the tree index, so the fit reproduces for a given seed
// no matter how the work is scheduled.
func FitForest(ctx context.Context, X [][]float64, y []float64, p Params, seed int64) (*Forest, error) {
	if err := checkMatrix(X, y); err != nil {
		return nil, err
	}
	p = p.withDefaults()

	n := len(X)
	trees := make([]Tree, 0, p.NumTrees)
	for i := range p.NumTrees {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("forest fit interrupted after %d trees: %w", i, err)
		}

		rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)+1))
		idx := make([]int, n)
		for j := range idx {
			idx[j] = rng.IntN(n)
		}

		trees = append(trees, *fitTree(X, y, idx, p, rng))
	}

	return &Forest{Trees: trees}, nil
}

// Predict implements Regressor.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}

	return sum / float64(len(f.Trees))
}
