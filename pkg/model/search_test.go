package model_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"trainer/pkg/model"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestGridCandidates(t *testing.T) {
	t.Parallel()

	base := model.Params{NumTrees: 100, MinLeaf: 1}
	grid := model.Grid{
		MaxDepth:    []int{2, 4},
		MaxFeatures: []int{1, 2, 3},
	}

	candidates := grid.Candidates(base)
	require.Len(t, candidates, 6, "2 depths x 3 feature counts")

	for _, c := range candidates {
		require.Equal(t, 100, c.NumTrees, "untouched dimensions keep the base value")
		require.Contains(t, []int{2, 4}, c.MaxDepth)
		require.Contains(t, []int{1, 2, 3}, c.MaxFeatures)
	}

	require.Equal(t, []model.Params{base}, model.Grid{}.Candidates(base),
		"an empty grid yields just the base")
}

func TestRangesSample(t *testing.T) {
	t.Parallel()

	base := model.Params{NumTrees: 100, MaxDepth: 5}
	ranges := model.Ranges{
		MaxDepth: model.Range{Min: 2, Max: 4},
		MinLeaf:  model.Range{Min: 1, Max: 3},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	samples := ranges.Sample(base, 50, rng)
	require.Len(t, samples, 50)

	for _, s := range samples {
		require.Equal(t, 100, s.NumTrees, "empty range keeps the base value")
		require.GreaterOrEqual(t, s.MaxDepth, 2)
		require.LessOrEqual(t, s.MaxDepth, 4)
		require.GreaterOrEqual(t, s.MinLeaf, 1)
		require.LessOrEqual(t, s.MinLeaf, 3)
	}
}

func TestCrossValidateScoresReasonably(t *testing.T) {
	t.Parallel()

	X, y := stepData(120)

	score, err := model.CrossValidate(context.Background(), model.KindTree, X, y,
		model.Params{MaxDepth: 2}, 4, 43)
	require.NoError(t, err)
	require.Less(t, score, 5.0, "a depth-2 tree nails a two-level step")

	_, err = model.CrossValidate(context.Background(), model.KindTree, X, y, model.Params{}, 1, 43)
	require.ErrorIs(t, err, serrors.ErrBadRequest, "fold count below 2")

	_, err = model.CrossValidate(context.Background(), model.KindTree, X, y, model.Params{}, 500, 43)
	require.ErrorIs(t, err, serrors.ErrBadRequest, "more folds than samples")
}

func TestGridSearchPicksSufficientDepth(t *testing.T) {
	t.Parallel()

	X, y := staircaseData(400)

	best, score, err := model.GridSearch(context.Background(), model.KindTree, X, y,
		model.Params{}, model.Grid{MaxDepth: []int{1, 2}}, 4, 43)
	require.NoError(t, err)

	require.Equal(t, 2, best.MaxDepth, "four plateaus need two split levels")
	require.Less(t, score, 30.0)
}

func TestRandomSearchStaysInBounds(t *testing.T) {
	t.Parallel()

	X, y := stepData(100)
	ranges := model.Ranges{MaxDepth: model.Range{Min: 1, Max: 3}}

	best, score, err := model.RandomSearch(context.Background(), model.KindTree, X, y,
		model.Params{}, ranges, 5, 4, 43)
	require.NoError(t, err)
	require.GreaterOrEqual(t, best.MaxDepth, 1)
	require.LessOrEqual(t, best.MaxDepth, 3)
	require.Less(t, score, 10.0, "any depth in range fits a single step")
}

func TestSearchDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	X, y := staircaseData(200)
	ranges := model.DefaultRanges(model.KindTree)

	p1, s1, err := model.RandomSearch(context.Background(), model.KindTree, X, y,
		model.Params{}, ranges, 6, 3, 43)
	require.NoError(t, err)
	p2, s2, err := model.RandomSearch(context.Background(), model.KindTree, X, y,
		model.Params{}, ranges, 6, 3, 43)
	require.NoError(t, err)

	require.Equal(t, p1, p2)
	require.Equal(t, s1, s2)
}

func TestSearchStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	X, y := stepData(50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := model.GridSearch(ctx, model.KindTree, X, y,
		model.Params{}, model.Grid{MaxDepth: []int{1, 2}}, 3, 1)
	require.ErrorIs(t, err, context.Canceled)
}
