package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares model.
type Linear struct {
	// Intercept is the bias term.
	Intercept float64 `json:"intercept"`
	// Coef holds one weight per feature column.
	Coef []float64 `json:"coef"`
}

// rcond is the relative singular value cutoff of the least squares solve.
const rcond = 1e-12

// FitLinear solves the least squares problem min ||y - Xw|| with an implicit
// intercept column. The design matrix is rank deficient whenever a full
// one-hot block is present (the dummies sum to the intercept column), so the
// solve goes through a thin SVD with small singular values truncated, giving
// the minimum-norm solution.
func FitLinear(X [][]float64, y []float64) (*Linear, error) {
	if err := checkMatrix(X, y); err != nil {
		return nil, err
	}

	rows, cols := len(X), len(X[0])
	a := mat.NewDense(rows, cols+1, nil)
	for i, row := range X {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("could not factorize design matrix")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	// z[j] = (u_j . y) / s_j for the kept singular values.
	tol := rcond * s[0]
	z := make([]float64, len(s))
	for j := range z {
		if s[j] <= tol {
			continue
		}

		var dot float64
		for i := range rows {
			dot += u.At(i, j) * y[i]
		}
		z[j] = dot / s[j]
	}

	// w = V z.
	w := make([]float64, cols+1)
	for i := range w {
		var dot float64
		for j := range z {
			dot += v.At(i, j) * z[j]
		}
		w[i] = dot
	}

	return &Linear{Intercept: w[0], Coef: w[1:]}, nil
}

// Predict implements Regressor.
func (l *Linear) Predict(x []float64) float64 {
	out := l.Intercept
	for j, w := range l.Coef {
		out += w * x[j]
	}

	return out
}
