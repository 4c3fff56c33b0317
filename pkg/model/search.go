package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"trainer/pkg/serrors"
)

// DefaultFolds is the cross validation fold count used when a run does not
// choose one.
const DefaultFolds = 5

// DefaultSearchIterations is the random search sample count used when a run
// does not choose one.
const DefaultSearchIterations = 10

// cvSalt and searchSalt keep the fold shuffle, the candidate sampling, and
// the per-tree bootstrap streams independent for the same run seed.
const (
	cvSalt     = 101
	searchSalt = 211
)

// Grid enumerates candidate values per hyperparameter. Empty dimensions keep
// the base parameter value.
type Grid struct {
	NumTrees    []int `json:"numTrees,omitempty"`
	MaxDepth    []int `json:"maxDepth,omitempty"`
	MaxFeatures []int `json:"maxFeatures,omitempty"`
	MinLeaf     []int `json:"minLeaf,omitempty"`
}

// DefaultGrid returns the grid searched for the given model kind.
func DefaultGrid(kind Kind) Grid {
	if kind == KindForest {
		return Grid{
			NumTrees:    []int{50, 100, 200},
			MaxDepth:    []int{4, 5, 6, 8},
			MaxFeatures: []int{4, 6, 8},
		}
	}

	return Grid{
		MaxDepth: []int{4, 6, 8, 10},
		MinLeaf:  []int{1, 2, 4},
	}
}

// Candidates expands the grid into the cartesian product of its dimensions,
// starting from the base parameters.
func (g Grid) Candidates(base Params) []Params {
	out := []Params{base}

	expand := func(values []int, set func(*Params, int)) {
		if len(values) == 0 {
			return
		}
		next := make([]Params, 0, len(out)*len(values))
		for _, p := range out {
			for _, v := range values {
				c := p
				set(&c, v)
				next = append(next, c)
			}
		}
		out = next
	}

	expand(g.NumTrees, func(p *Params, v int) { p.NumTrees = v })
	expand(g.MaxDepth, func(p *Params, v int) { p.MaxDepth = v })
	expand(g.MaxFeatures, func(p *Params, v int) { p.MaxFeatures = v })
	expand(g.MinLeaf, func(p *Params, v int) { p.MinLeaf = v })

	return out
}

// Range bounds an integer hyperparameter for random search, inclusive on
// both ends. The zero Range keeps the base value.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) empty() bool { return r.Min == 0 && r.Max == 0 }

// Ranges bounds every searchable hyperparameter for random search.
type Ranges struct {
	NumTrees    Range `json:"numTrees,omitzero"`
	MaxDepth    Range `json:"maxDepth,omitzero"`
	MaxFeatures Range `json:"maxFeatures,omitzero"`
	MinLeaf     Range `json:"minLeaf,omitzero"`
}

// DefaultRanges returns the sampling bounds for the given model kind.
func DefaultRanges(kind Kind) Ranges {
	if kind == KindForest {
		return Ranges{
			NumTrees:    Range{Min: 20, Max: 200},
			MaxDepth:    Range{Min: 2, Max: 12},
			MaxFeatures: Range{Min: 2, Max: 8},
			MinLeaf:     Range{Min: 1, Max: 4},
		}
	}

	return Ranges{
		MaxDepth: Range{Min: 2, Max: 12},
		MinLeaf:  Range{Min: 1, Max: 8},
	}
}

// Sample draws n candidates uniformly from the ranges, starting from the
// base parameters.
func (r Ranges) Sample(base Params, n int, rng *rand.Rand) []Params {
	draw := func(rg Range, cur int) int {
		if rg.empty() {
			return cur
		}

		return rg.Min + rng.IntN(rg.Max-rg.Min+1)
	}

	out := make([]Params, n)
	for i := range out {
		c := base
		c.NumTrees = draw(r.NumTrees, c.NumTrees)
		c.MaxDepth = draw(r.MaxDepth, c.MaxDepth)
		c.MaxFeatures = draw(r.MaxFeatures, c.MaxFeatures)
		c.MinLeaf = draw(r.MinLeaf, c.MinLeaf)
		out[i] = c
	}

	return out
}

// CrossValidate scores the parameters by seeded k-fold cross validation and
// returns the mean validation RMSE.
func CrossValidate(ctx context.Context, kind Kind, X [][]float64, y []float64, p Params, folds int, seed int64) (float64, error) {
	if err := checkMatrix(X, y); err != nil {
		return 0, err
	}
	if folds < 2 || folds > len(X) {
		return 0, serrors.With(serrors.ErrBadRequest,
			"fold count %d out of range [2, %d]", folds, len(X))
	}

	rng := rand.New(rand.NewPCG(uint64(seed), cvSalt))
	assignment := foldIndexes(len(X), folds, rng)

	var total float64
	for f, holdout := range assignment {
		var trainIdx []int
		for other, idx := range assignment {
			if other != f {
				trainIdx = append(trainIdx, idx...)
			}
		}

		trainX, trainY := subset(X, y, trainIdx)
		reg, err := Fit(ctx, kind, trainX, trainY, p, seed+int64(f)+1)
		if err != nil {
			return 0, fmt.Errorf("could not fit fold %d: %w", f, err)
		}

		holdX, holdY := subset(X, y, holdout)
		total += RMSE(PredictBatch(reg, holdX), holdY)
	}

	return total / float64(folds), nil
}

// GridSearch cross-validates every grid candidate and returns the parameters
// with the lowest mean RMSE together with that score.
func GridSearch(ctx context.Context, kind Kind, X [][]float64, y []float64, base Params, g Grid, folds int, seed int64) (Params, float64, error) {
	return searchBest(ctx, kind, X, y, g.Candidates(base), folds, seed)
}

// RandomSearch samples iterations candidates from the ranges and returns the
// best, like GridSearch.
func RandomSearch(ctx context.Context, kind Kind, X [][]float64, y []float64, base Params, r Ranges, iterations, folds int, seed int64) (Params, float64, error) {
	if iterations <= 0 {
		iterations = DefaultSearchIterations
	}

	rng := rand.New(rand.NewPCG(uint64(seed), searchSalt))

	return searchBest(ctx, kind, X, y, r.Sample(base, iterations, rng), folds, seed)
}

func searchBest(ctx context.Context, kind Kind, X [][]float64, y []float64, candidates []Params, folds int, seed int64) (Params, float64, error) {
	best := Params{}
	bestScore := math.Inf(1)
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return Params{}, 0, fmt.Errorf("search interrupted at candidate %d: %w", i, err)
		}

		score, err := CrossValidate(ctx, kind, X, y, candidate, folds, seed)
		if err != nil {
			return Params{}, 0, fmt.Errorf("could not score candidate %d: %w", i, err)
		}
		if score < bestScore {
			bestScore = score
			best = candidate
		}
	}

	return best, bestScore, nil
}

// foldIndexes deals the shuffled sample indexes round-robin into k folds.
func foldIndexes(n, k int, rng *rand.Rand) [][]int {
	folds := make([][]int, k)
	for i, p := range rng.Perm(n) {
		folds[i%k] = append(folds[i%k], p)
	}

	return folds
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	outX := make([][]float64, len(idx))
	outY := make([]float64, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}

	return outX, outY
}
