package model_test

import (
	"context"
	"testing"
	"trainer/pkg/model"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestFitLinearRecoversCoefficients(t *testing.T) {
	t.Parallel()

	// y = 3 + 2*x0 - 0.5*x1, noiseless.
	var X [][]float64
	var y []float64
	for i := range 200 {
		x0 := float64(i)
		x1 := float64(i % 7)
		X = append(X, []float64{x0, x1})
		y = append(y, 3+2*x0-0.5*x1)
	}

	lin, err := model.FitLinear(X, y)
	require.NoError(t, err)

	require.InDelta(t, 3.0, lin.Intercept, 1e-6)
	require.Len(t, lin.Coef, 2)
	require.InDelta(t, 2.0, lin.Coef[0], 1e-6)
	require.InDelta(t, -0.5, lin.Coef[1], 1e-6)

	require.InDelta(t, 3+2*1000-0.5*3, lin.Predict([]float64{1000, 3}), 1e-4)
}

func TestFitLinearSurvivesOneHotCollinearity(t *testing.T) {
	t.Parallel()

	// A full one-hot block plus the implicit intercept is rank deficient.
	// The fit must still produce usable predictions.
	var X [][]float64
	var y []float64
	for i := range 60 {
		x0 := float64(i)
		oneHot := []float64{0, 0, 0}
		oneHot[i%3] = 1
		X = append(X, append([]float64{x0}, oneHot...))
		y = append(y, 10+4*x0+[]float64{0, 5, -5}[i%3])
	}

	lin, err := model.FitLinear(X, y)
	require.NoError(t, err)

	for i, x := range X {
		require.InDelta(t, y[i], lin.Predict(x), 1e-6, "row %d", i)
	}
}

func TestFitLinearRejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := model.FitLinear(nil, nil)
	require.ErrorIs(t, err, serrors.ErrBadRequest)

	_, err = model.FitLinear([][]float64{{1, 2}}, []float64{1, 2})
	require.ErrorIs(t, err, serrors.ErrBadRequest, "row/label count mismatch")

	_, err = model.FitLinear([][]float64{{1, 2}, {1}}, []float64{1, 2})
	require.ErrorIs(t, err, serrors.ErrBadRequest, "ragged rows")
}

func TestFitDispatch(t *testing.T) {
	t.Parallel()

	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{2, 4, 6, 8}

	for _, kind := range []model.Kind{model.KindLinear, model.KindTree, model.KindForest} {
		reg, err := model.Fit(context.Background(), kind, X, y, model.Params{NumTrees: 5}, 1)
		require.NoError(t, err, "kind %s", kind)
		require.NotNil(t, reg)
	}

	_, err := model.Fit(context.Background(), model.Kind("boost"), X, y, model.Params{}, 1)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}
