package penalized

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/clintrials/metrics"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// CVResult holds the cross-validated deviance over a penalty path.
type CVResult struct {
	Lambdas      []float64
	MeanDeviance []float64
	BestIndex    int
	BestLambda   float64
}

// CrossValidate evaluates the penalty path by K-fold cross-validated
// binomial deviance using the caller-provided fold assignment (one fold
// index per row of X), and selects the penalty minimizing the mean
// deviance across folds.
//
// A fold whose held-in or held-out rows contain a single outcome class
// makes the deviance path undefined for that replicate; the error is
// returned so the replicate can be excluded and counted upstream.
func (m *LogisticLasso) CrossValidate(X *mat.Dense, y []float64, folds []int, lambdas []float64) (*CVResult, error) {
	rows, _ := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("CrossValidate", rows, len(y), 0)
	}
	if len(folds) != rows {
		return nil, errors.NewDimensionError("CrossValidate", rows, len(folds), 0)
	}
	if len(lambdas) == 0 {
		var err error
		lambdas, err = m.LambdaPath(X, y)
		if err != nil {
			return nil, err
		}
	}

	k := 0
	for _, f := range folds {
		if f < 0 {
			return nil, errors.NewValidationError("folds", "fold index must be non-negative", f)
		}
		if f+1 > k {
			k = f + 1
		}
	}
	if k < 2 {
		return nil, errors.NewValidationError("folds", "need at least 2 distinct folds", k)
	}

	devianceSum := make([]float64, len(lambdas))
	for fold := 0; fold < k; fold++ {
		trainIdx := make([]int, 0, rows)
		testIdx := make([]int, 0, rows)
		for i, f := range folds {
			if f == fold {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		if len(testIdx) == 0 {
			continue // permitted: a fold index may be unused in tiny groups
		}

		trainX, trainY := subset(X, y, trainIdx)
		testX, testY := subset(X, y, testIdx)

		if pos, neg, err := metrics.CountClasses("CrossValidate", testY); err != nil {
			return nil, err
		} else if pos == 0 || neg == 0 {
			return nil, errors.NewDegenerateSplitError("fold", fold, pos, neg)
		}

		solutions, err := m.FitPath(trainX, trainY, lambdas)
		if err != nil {
			var degenerate *errors.DegenerateSplitError
			if errors.As(err, &degenerate) {
				return nil, errors.NewDegenerateSplitError("fold", fold, degenerate.Positives, degenerate.Negatives)
			}
			return nil, errors.Wrapf(err, "cross-validation fold %d", fold)
		}
		for li := range solutions {
			dev, err := metrics.BinomialDeviance(testY, solutions[li].Probabilities(testX))
			if err != nil {
				return nil, errors.Wrapf(err, "cross-validation fold %d", fold)
			}
			devianceSum[li] += dev
		}
	}

	result := &CVResult{
		Lambdas:      lambdas,
		MeanDeviance: make([]float64, len(lambdas)),
	}
	for li := range lambdas {
		result.MeanDeviance[li] = devianceSum[li] / float64(k)
		if result.MeanDeviance[li] < result.MeanDeviance[result.BestIndex] {
			result.BestIndex = li
		}
	}
	result.BestLambda = lambdas[result.BestIndex]
	return result, nil
}

func subset(X *mat.Dense, y []float64, indices []int) (*mat.Dense, []float64) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(indices), cols, nil)
	outY := make([]float64, len(indices))
	for i, idx := range indices {
		outX.SetRow(i, X.RawRowView(idx))
		outY[i] = y[idx]
	}
	return outX, outY
}
