package model_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"trainer/pkg/model"

	"github.com/stretchr/testify/require"
)

// noisyData returns rows over two features with a nonlinear target plus
// deterministic noise.
func noisyData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(7, 7))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range n {
		x0 := rng.Float64() * 10
		x1 := rng.Float64() * 10
		X[i] = []float64{x0, x1}
		y[i] = 50
		if x0 > 5 {
			y[i] += 200
		}
		if x1 > 7 {
			y[i] += 100
		}
		y[i] += rng.NormFloat64() * 5
	}

	return X, y
}

func TestFitForestLearnsSignal(t *testing.T) {
	t.Parallel()

	X, y := noisyData(600)
	forest, err := model.FitForest(context.Background(), X, y,
		model.Params{NumTrees: 30, MaxDepth: 5}, 43)
	require.NoError(t, err)
	require.Len(t, forest.Trees, 30)

	pred := model.PredictBatch(forest, X)

	// The forest has to beat the trivial mean predictor by a wide margin.
	meanPred := make([]float64, len(y))
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for i := range meanPred {
		meanPred[i] = mean
	}

	require.Less(t, model.RMSE(pred, y), 0.5*model.RMSE(meanPred, y))
}

func TestFitForestDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	X, y := noisyData(300)
	params := model.Params{NumTrees: 10, MaxDepth: 4, MaxFeatures: 1}

	a, err := model.FitForest(context.Background(), X, y, params, 43)
	require.NoError(t, err)
	b, err := model.FitForest(context.Background(), X, y, params, 43)
	require.NoError(t, err)
	c, err := model.FitForest(context.Background(), X, y, params, 44)
	require.NoError(t, err)

	probe := [][]float64{{1, 1}, {6, 2}, {6, 8}, {3, 9}}
	require.Equal(t, model.PredictBatch(a, probe), model.PredictBatch(b, probe),
		"same seed must reproduce the forest")
	require.NotEqual(t, model.PredictBatch(a, probe), model.PredictBatch(c, probe),
		"another seed should grow different trees")
}

func TestFitForestStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	X, y := noisyData(100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := model.FitForest(ctx, X, y, model.Params{NumTrees: 50}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestForestPredictAveragesTrees(t *testing.T) {
	t.Parallel()

	forest := &model.Forest{Trees: []model.Tree{
		{Nodes: []model.TreeNode{{Leaf: true, Value: 10}}},
		{Nodes: []model.TreeNode{{Leaf: true, Value: 30}}},
	}}
	require.Equal(t, 20.0, forest.Predict([]float64{0}))
}
