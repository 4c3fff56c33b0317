package model_test

import (
	"math"
	"testing"
	"trainer/pkg/dataset"
	"trainer/pkg/model"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func housingRow(bedrooms float64, ocean string) dataset.Row {
	return dataset.Row{
		Longitude:        -122.0,
		Latitude:         37.5,
		HousingMedianAge: 20,
		TotalRooms:       1000,
		TotalBedrooms:    bedrooms,
		Population:       600,
		Households:       200,
		MedianIncome:     3.5,
		MedianHouseValue: 250000,
		OceanProximity:   ocean,
	}
}

func TestPreprocessorImputesBedroomsMedian(t *testing.T) {
	t.Parallel()

	table := dataset.Table{
		housingRow(100, "INLAND"),
		housingRow(200, "INLAND"),
		housingRow(400, "INLAND"),
		housingRow(math.NaN(), "INLAND"),
	}

	pre, err := model.FitPreprocessor(table, false)
	require.NoError(t, err)
	require.Equal(t, 200.0, pre.BedroomsMedian, "median of {100,200,400}")

	X, err := pre.Transform(table)
	require.NoError(t, err)
	require.Equal(t, 200.0, X[3][4], "missing total_bedrooms should take the median")
	require.Equal(t, 100.0, X[0][4], "present values stay untouched")
}

func TestPreprocessorDerivedAndOneHot(t *testing.T) {
	t.Parallel()

	table := dataset.Table{housingRow(250, "NEAR BAY")}
	pre, err := model.FitPreprocessor(table, false)
	require.NoError(t, err)

	X, err := pre.Transform(table)
	require.NoError(t, err)
	require.Len(t, X[0], 16, "11 numeric features plus 5 one-hot columns")

	require.InDelta(t, 5.0, X[0][8], 1e-12, "rooms_per_household = 1000/200")
	require.InDelta(t, 0.25, X[0][9], 1e-12, "bedrooms_per_room = 250/1000")
	require.InDelta(t, 3.0, X[0][10], 1e-12, "population_per_household = 600/200")

	// One-hot block: exactly the NEAR BAY column is set.
	names := pre.FeatureNames()
	require.Len(t, names, 16)
	for i, cat := range dataset.OceanCategories {
		want := 0.0
		if cat == "NEAR BAY" {
			want = 1.0
		}
		require.Equal(t, want, X[0][11+i], "one-hot column %s", names[11+i])
	}
}

func TestPreprocessorRejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	table := dataset.Table{housingRow(250, "INLAND")}
	pre, err := model.FitPreprocessor(table, false)
	require.NoError(t, err)

	_, err = pre.Transform(dataset.Table{housingRow(250, "ATLANTIS")})
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestPreprocessorScaler(t *testing.T) {
	t.Parallel()

	table := dataset.Table{
		housingRow(100, "INLAND"),
		housingRow(300, "NEAR BAY"),
		housingRow(500, "INLAND"),
		housingRow(700, "NEAR OCEAN"),
	}

	pre, err := model.FitPreprocessor(table, true)
	require.NoError(t, err)
	require.NotNil(t, pre.Scaler)

	X, err := pre.Transform(table)
	require.NoError(t, err)

	// The scaled training bedrooms column has zero mean and unit variance.
	var mean float64
	for _, row := range X {
		mean += row[4]
	}
	mean /= float64(len(X))
	require.InDelta(t, 0, mean, 1e-9)

	var variance float64
	for _, row := range X {
		variance += (row[4] - mean) * (row[4] - mean)
	}
	variance /= float64(len(X))
	require.InDelta(t, 1, variance, 1e-9)

	// Constant columns survive scaling without NaN.
	for _, row := range X {
		for j, v := range row {
			require.False(t, math.IsNaN(v), "column %d became NaN", j)
		}
	}
}

func TestPreprocessorFeatures(t *testing.T) {
	t.Parallel()

	table := dataset.Table{housingRow(100, "INLAND"), housingRow(300, "ISLAND")}
	pre, err := model.FitPreprocessor(table, false)
	require.NoError(t, err)

	x, err := pre.Features(housingRow(300, "ISLAND"))
	require.NoError(t, err)

	X, err := pre.Transform(table)
	require.NoError(t, err)
	require.Equal(t, X[1], x, "single-row path must match the batch path")
}
