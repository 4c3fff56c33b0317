package dataset_test

import (
	"math"
	"testing"
	"trainer/pkg/dataset"
	"trainer/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestIncomeCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		income float64
		want   int
	}{
		{income: 0.5, want: 1},
		{income: 1.5, want: 1},
		{income: 1.5001, want: 2},
		{income: 3.0, want: 2},
		{income: 4.5, want: 3},
		{income: 6.0, want: 4},
		{income: 6.0001, want: 5},
		{income: 15.0, want: 5},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, dataset.IncomeCategory(tt.income), "income %v", tt.income)
	}
}

func TestProportions(t *testing.T) {
	t.Parallel()

	table := tableWithIncomes(1.0, 2.0, 3.2, 4.0, 5.0, 6.0, 7.0)

	got := dataset.Proportions(table)
	want := map[int]float64{
		1: 1.0 / 7,
		2: 1.0 / 7,
		3: 2.0 / 7,
		4: 2.0 / 7,
		5: 1.0 / 7,
	}
	require.Len(t, got, len(want))
	for cat, share := range want {
		require.InDelta(t, share, got[cat], 1e-12, "category %d", cat)
	}

	require.Empty(t, dataset.Proportions(nil))
}

func TestSplitStratified(t *testing.T) {
	t.Parallel()

	table := syntheticTable(1000)
	train, test, err := dataset.Split(table, dataset.SplitOptions{TestFraction: 0.2, Seed: dataset.DefaultSeed})
	require.NoError(t, err)

	require.Len(t, test, 200, "test split should honor the fraction exactly")
	require.Len(t, train, 800)

	// Every source row ends up in exactly one split.
	seen := map[float64]int{}
	for _, r := range train {
		seen[r.Longitude]++
	}
	for _, r := range test {
		seen[r.Longitude]++
	}
	require.Len(t, seen, len(table))
	for key, n := range seen {
		require.Equal(t, 1, n, "row %v duplicated or lost", key)
	}

	// Test split mirrors the category proportions of the full table.
	all := dataset.Proportions(table)
	sample := dataset.Proportions(test)
	for cat, share := range all {
		require.InDelta(t, share, sample[cat], 0.02, "category %d drifted", cat)
	}
}

func TestSplitDeterministic(t *testing.T) {
	t.Parallel()

	table := syntheticTable(500)

	train1, test1, err := dataset.Split(table, dataset.SplitOptions{TestFraction: 0.25, Seed: 43})
	require.NoError(t, err)
	train2, test2, err := dataset.Split(table, dataset.SplitOptions{TestFraction: 0.25, Seed: 43})
	require.NoError(t, err)

	require.Equal(t, train1, train2, "same seed must reproduce the train split")
	require.Equal(t, test1, test2, "same seed must reproduce the test split")

	_, test3, err := dataset.Split(table, dataset.SplitOptions{TestFraction: 0.25, Seed: 44})
	require.NoError(t, err)
	require.NotEqual(t, test1, test3, "another seed should shuffle differently")
}

func TestSplitRejectsBadInput(t *testing.T) {
	t.Parallel()

	table := syntheticTable(10)

	for _, fraction := range []float64{0, -0.1, 0.5, 0.9} {
		_, _, err := dataset.Split(table, dataset.SplitOptions{TestFraction: fraction, Seed: 1})
		require.ErrorIs(t, err, serrors.ErrBadRequest, "fraction %v", fraction)
	}

	_, _, err := dataset.Split(nil, dataset.SplitOptions{TestFraction: 0.2, Seed: 1})
	require.ErrorIs(t, err, serrors.ErrBadRequest, "empty table")
}

// tableWithIncomes builds one row per income with a unique longitude.
func tableWithIncomes(incomes ...float64) dataset.Table {
	table := make(dataset.Table, len(incomes))
	for i, income := range incomes {
		table[i] = dataset.Row{
			Longitude:        float64(i),
			MedianIncome:     income,
			MedianHouseValue: 100000 + float64(i),
			OceanProximity:   "INLAND",
		}
	}

	return table
}

// syntheticTable spreads n rows over all five income categories with a
// deterministic pattern; Longitude doubles as a unique row key.
func syntheticTable(n int) dataset.Table {
	incomes := []float64{1.0, 2.0, 4.0, 5.5, 8.0}
	table := make(dataset.Table, n)
	for i := range n {
		table[i] = dataset.Row{
			Longitude:        float64(i),
			Latitude:         math.Mod(float64(i), 10),
			MedianIncome:     incomes[i%len(incomes)],
			MedianHouseValue: 50000 + float64(i)*13,
			OceanProximity:   "NEAR BAY",
		}
	}

	return table
}
