// Package metrics implements the evaluation metrics used by the bootstrap
// pipeline: ROC/AUC for held-out scoring and binomial deviance for
// cross-validated penalty selection.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// ROCPoint is one point of a receiver operating characteristic curve.
type ROCPoint struct {
	FPR       float64
	TPR       float64
	Threshold float64
}

// AUC computes the area under the ROC curve for binary labels (0/1) and
// real-valued scores. A split holding only one outcome class makes the
// curve undefined; such splits return a DegenerateSplitError so the
// caller can exclude and count the replicate instead of averaging a
// coerced value.
func AUC(yTrue, scores []float64) (float64, error) {
	if _, err := validateLabels("AUC", yTrue, scores); err != nil {
		return 0, err
	}
	auc, _, err := rocAUC(yTrue, scores)
	return auc, err
}

// ROC computes the ROC curve and its AUC. The curve is returned in
// ascending false-positive-rate order.
func ROC(yTrue, scores []float64) ([]ROCPoint, float64, error) {
	if _, err := validateLabels("ROC", yTrue, scores); err != nil {
		return nil, 0, err
	}
	auc, points, err := rocAUC(yTrue, scores)
	return points, auc, err
}

func rocAUC(yTrue, scores []float64) (float64, []ROCPoint, error) {
	n := len(yTrue)
	y := make([]float64, n)
	copy(y, scores)
	classes := make([]bool, n)
	for i, v := range yTrue {
		classes[i] = v == 1
	}

	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, thresh := stat.ROC(nil, y, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)

	points := make([]ROCPoint, len(tpr))
	for i := range tpr {
		points[i] = ROCPoint{FPR: fpr[i], TPR: tpr[i], Threshold: thresh[i]}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].FPR != points[j].FPR {
			return points[i].FPR < points[j].FPR
		}
		return points[i].TPR < points[j].TPR
	})
	return auc, points, nil
}

// BinomialDeviance computes -2 times the Bernoulli log-likelihood of the
// predicted probabilities, averaged over observations. Probabilities are
// clipped away from 0 and 1 so a saturated prediction cannot produce Inf.
func BinomialDeviance(yTrue, probs []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("BinomialDeviance", "empty vector")
	}
	if len(probs) != n {
		return 0, errors.NewDimensionError("BinomialDeviance", n, len(probs), 0)
	}

	const eps = 1e-15
	var ll float64
	for i := 0; i < n; i++ {
		p := probs[i]
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}
		if yTrue[i] == 1 {
			ll += math.Log(p)
		} else {
			ll += math.Log(1 - p)
		}
	}
	return -2 * ll / float64(n), nil
}

// CountClasses returns the number of positive and negative labels, and an
// error for anything that is not 0 or 1.
func CountClasses(op string, yTrue []float64) (pos, neg int, err error) {
	for _, v := range yTrue {
		switch v {
		case 0:
			neg++
		case 1:
			pos++
		default:
			return 0, 0, errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return pos, neg, nil
}

func validateLabels(op string, yTrue, scores []float64) (n int, err error) {
	n = len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if len(scores) != n {
		return 0, errors.NewDimensionError(op, n, len(scores), 0)
	}
	pos, neg, err := CountClasses(op, yTrue)
	if err != nil {
		return 0, err
	}
	if pos == 0 || neg == 0 {
		return 0, errors.NewDegenerateSplitError("test", -1, pos, neg)
	}
	return n, nil
}
