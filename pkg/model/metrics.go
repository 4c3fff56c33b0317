package model

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RMSE is the root mean squared error between predictions and truth.
func RMSE(pred, want []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - want[i]
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(pred)))
}

// MAE is the mean absolute error between predictions and truth.
func MAE(pred, want []float64) float64 {
	var sum float64
	for i := range pred {
		sum += math.Abs(pred[i] - want[i])
	}

	return sum / float64(len(pred))
}

// R2 is the coefficient of determination: 1 minus the ratio of residual to
// total squared error. A constant-truth input yields NaN.
func R2(pred, want []float64) float64 {
	mean := stat.Mean(want, nil)

	var res, tot float64
	for i := range pred {
		d := want[i] - pred[i]
		res += d * d
		m := want[i] - mean
		tot += m * m
	}
	if tot == 0 {
		return math.NaN()
	}

	return 1 - res/tot
}
