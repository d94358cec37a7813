package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// NewRand returns the deterministic generator for a derived seed. Both
// halves of a replicate (resample and split) are seeded from the same
// derived value, so re-running with the same base seed regenerates
// identical replicates regardless of execution order.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Resample draws a same-size sample of rows with replacement.
func Resample(d *ImputedDataset, rng *rand.Rand) *ImputedDataset {
	n := d.Rows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rng.IntN(n)
	}
	return d.Subset(indices)
}

// StratifiedSplit splits d into train and test subsets, stratified by the
// treatment-group label so every group keeps (approximately) the same
// train fraction. trainFraction must lie strictly between 0 and 1.
func StratifiedSplit(d *ImputedDataset, trainFraction float64, rng *rand.Rand) (train, test *ImputedDataset, err error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, errors.NewValidationError("trainFraction", "must be in (0, 1)", trainFraction)
	}

	groups := groupIndices(d.GroupLabels())

	var trainIdx, testIdx []int
	for _, indices := range groups {
		shuffled := make([]int, len(indices))
		copy(shuffled, indices)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		nTrain := int(math.Round(trainFraction * float64(len(shuffled))))
		if nTrain == len(shuffled) && len(shuffled) > 1 {
			nTrain-- // keep at least one test row per group
		}
		trainIdx = append(trainIdx, shuffled[:nTrain]...)
		testIdx = append(testIdx, shuffled[nTrain:]...)
	}

	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, errors.NewValueError("StratifiedSplit", "split produced an empty subset")
	}
	return d.Subset(trainIdx), d.Subset(testIdx), nil
}

// AssignFolds assigns one of k cross-validation folds to every row,
// stratified per treatment group: within each group a random permutation
// of 0..k-1 is replicated to cover the group size, so fold sizes within a
// group differ by at most one.
func AssignFolds(d *ImputedDataset, k int, rng *rand.Rand) ([]int, error) {
	if k < 2 {
		return nil, errors.NewValidationError("k", "need at least 2 folds", k)
	}
	folds := make([]int, d.Rows())
	for _, indices := range groupIndices(d.GroupLabels()) {
		perm := rng.Perm(k)
		order := make([]int, len(indices))
		copy(order, indices)
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for pos, row := range order {
			folds[row] = perm[pos%k]
		}
	}
	return folds, nil
}

// groupIndices collects row indices per label, with deterministic
// iteration order (ascending label).
func groupIndices(labels []int) [][]int {
	maxLabel := 0
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}
	groups := make([][]int, maxLabel+1)
	for i, l := range labels {
		groups[l] = append(groups[l], i)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
