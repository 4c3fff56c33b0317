package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"trainer/pkg/serrors"
)

// DefaultSeed is the historical shuffle seed of the pipeline. Splits with the
// same seed and fraction reproduce byte-identical train and test files.
const DefaultSeed int64 = 43

// DefaultTestFraction is the share of rows held out for the test split.
const DefaultTestFraction = 0.2

// IncomeCategory buckets a median income (in tens of thousands of dollars)
// into the five strata used for splitting: (0,1.5], (1.5,3], (3,4.5],
// (4.5,6], (6,inf).
func IncomeCategory(income float64) int {
	switch {
	case income <= 1.5:
		return 1
	case income <= 3.0:
		return 2
	case income <= 4.5:
		return 3
	case income <= 6.0:
		return 4
	default:
		return 5
	}
}

// Proportions returns the share of each income category in the table.
// Stratification is verified by comparing the proportions of the full table
// against those of the test split.
func Proportions(table Table) map[int]float64 {
	if len(table) == 0 {
		return map[int]float64{}
	}

	counts := map[int]int{}
	for _, row := range table {
		counts[IncomeCategory(row.MedianIncome)]++
	}

	out := make(map[int]float64, len(counts))
	for cat, n := range counts {
		out[cat] = float64(n) / float64(len(table))
	}

	return out
}

// SplitOptions controls a stratified split.
type SplitOptions struct {
	// TestFraction is the share of rows held out, must be in (0, 0.5).
	TestFraction float64
	// Seed drives the shuffle inside each stratum.
	Seed int64
}

// Split partitions the table into train and test rows, stratified by income
// category: each stratum is shuffled with the seeded generator and contributes
// rows to the test split in proportion to its size (largest remainder
// rounding keeps the overall fraction exact). No row is lost or duplicated
// and the result is deterministic for a given seed.
func Split(table Table, opts SplitOptions) (train, test Table, err error) {
	if opts.TestFraction <= 0 || opts.TestFraction >= 0.5 {
		return nil, nil, serrors.With(serrors.ErrBadRequest,
			"test fraction %v out of range (0, 0.5)", opts.TestFraction)
	}
	if len(table) == 0 {
		return nil, nil, serrors.With(serrors.ErrBadRequest, "cannot split an empty table")
	}

	// Strata in ascending category order so the rng consumption is stable.
	groups := map[int][]int{}
	for i, row := range table {
		cat := IncomeCategory(row.MedianIncome)
		groups[cat] = append(groups[cat], i)
	}
	cats := make([]int, 0, len(groups))
	for cat := range groups {
		cats = append(cats, cat)
	}
	sort.Ints(cats)

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	for _, cat := range cats {
		idx := groups[cat]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
	}

	counts := testCounts(groups, cats, len(table), opts.TestFraction)

	train = make(Table, 0, len(table))
	test = make(Table, 0, len(table))
	for _, cat := range cats {
		idx := groups[cat]
		n := counts[cat]
		for _, i := range idx[:n] {
			test = append(test, table[i])
		}
		for _, i := range idx[n:] {
			train = append(train, table[i])
		}
	}

	return train, test, nil
}

// testCounts allocates the overall test row budget across strata by largest
// remainder. Each stratum keeps at least one training row.
func testCounts(groups map[int][]int, cats []int, total int, fraction float64) map[int]int {
	budget := int(math.Round(fraction * float64(total)))
	if budget < 1 {
		budget = 1
	}

	type share struct {
		cat  int
		frac float64
	}

	counts := make(map[int]int, len(cats))
	used := 0
	shares := make([]share, 0, len(cats))
	for _, cat := range cats {
		exact := fraction * float64(len(groups[cat]))
		n := int(math.Floor(exact))
		counts[cat] = n
		used += n
		shares = append(shares, share{cat: cat, frac: exact - math.Floor(exact)})
	}

	sort.SliceStable(shares, func(a, b int) bool { return shares[a].frac > shares[b].frac })
	for i := 0; used < budget && i < len(shares); i++ {
		cat := shares[i].cat
		if counts[cat]+1 < len(groups[cat]) {
			counts[cat]++
			used++
		}
	}

	return counts
}
