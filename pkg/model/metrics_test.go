package model_test

import (
	"math"
	"testing"
	"trainer/pkg/model"

	"github.com/stretchr/testify/require"
)

func TestMetricsHandComputed(t *testing.T) {
	t.Parallel()

	pred := []float64{2, 4, 6}
	want := []float64{1, 3, 9}

	require.InDelta(t, math.Sqrt((1.0+1.0+9.0)/3.0), model.RMSE(pred, want), 1e-12)
	require.InDelta(t, (1.0+1.0+3.0)/3.0, model.MAE(pred, want), 1e-12)

	// R2: mean(want)=13/3, tot=sum((want-mean)^2), res=11.
	mean := 13.0 / 3.0
	tot := (1-mean)*(1-mean) + (3-mean)*(3-mean) + (9-mean)*(9-mean)
	require.InDelta(t, 1-11.0/tot, model.R2(pred, want), 1e-12)
}

func TestMetricsPerfectPrediction(t *testing.T) {
	t.Parallel()

	v := []float64{5, 10, 15}
	require.Zero(t, model.RMSE(v, v))
	require.Zero(t, model.MAE(v, v))
	require.Equal(t, 1.0, model.R2(v, v))
}

func TestR2ConstantTruthIsNaN(t *testing.T) {
	t.Parallel()

	require.True(t, math.IsNaN(model.R2([]float64{1, 2}, []float64{3, 3})))
}
