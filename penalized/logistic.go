// Package penalized implements L1-penalized logistic regression with
// cross-validated penalty selection, the model underlying the
// bootstrap-validated treatment-moderator analysis.
//
// The fit uses proximal gradient descent: a gradient step on the logistic
// log-loss followed by soft-thresholding of the penalized coefficients.
// The intercept is carried unpenalized. A whole path of penalty strengths
// is fitted with warm starts from the previous solution, glmnet-style.
package penalized

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/clintrials/metrics"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// LogisticLasso fits L1-penalized logistic regression.
type LogisticLasso struct {
	maxIter        int
	tol            float64
	nLambda        int
	lambdaMinRatio float64
}

// Option is a functional option for LogisticLasso.
type Option func(*LogisticLasso)

// NewLogisticLasso creates a LogisticLasso with glmnet-like defaults:
// a 100-value penalty path down to 1% of the largest useful penalty.
func NewLogisticLasso(opts ...Option) *LogisticLasso {
	m := &LogisticLasso{
		maxIter:        1000,
		tol:            1e-6,
		nLambda:        100,
		lambdaMinRatio: 0.01,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithMaxIter sets the iteration cap of the proximal gradient loop.
func WithMaxIter(maxIter int) Option {
	return func(m *LogisticLasso) { m.maxIter = maxIter }
}

// WithTol sets the convergence tolerance on the coefficient update.
func WithTol(tol float64) Option {
	return func(m *LogisticLasso) { m.tol = tol }
}

// WithLambdaPath sets the penalty-path length and the ratio of the
// smallest to the largest penalty.
func WithLambdaPath(nLambda int, minRatio float64) Option {
	return func(m *LogisticLasso) {
		m.nLambda = nLambda
		m.lambdaMinRatio = minRatio
	}
}

// Solution is a fitted model at one penalty value.
type Solution struct {
	Lambda    float64
	Intercept float64
	Coef      []float64
}

// Probabilities returns the predicted event probabilities for X.
func (s *Solution) Probabilities(X *mat.Dense) []float64 {
	rows, cols := X.Dims()
	probs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		z := s.Intercept
		for j := 0; j < cols; j++ {
			z += X.At(i, j) * s.Coef[j]
		}
		probs[i] = sigmoid(z)
	}
	return probs
}

// LambdaPath returns a log-spaced descending penalty path. The largest
// value is the smallest penalty that zeroes every coefficient.
func (m *LogisticLasso) LambdaPath(X *mat.Dense, y []float64) ([]float64, error) {
	rows, cols := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("LambdaPath", rows, len(y), 0)
	}
	yMean := floats.Sum(y) / float64(rows)

	// lambdaMax = max_j |x_j' (y - ybar)| / n
	lambdaMax := 0.0
	colBuf := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(colBuf, j, X)
		var dot float64
		for i, v := range colBuf {
			dot += v * (y[i] - yMean)
		}
		if abs := math.Abs(dot) / float64(rows); abs > lambdaMax {
			lambdaMax = abs
		}
	}
	if lambdaMax == 0 {
		return nil, errors.NewValueError("LambdaPath", "all columns are orthogonal to the outcome")
	}

	path := make([]float64, m.nLambda)
	logMax := math.Log(lambdaMax)
	logMin := math.Log(lambdaMax * m.lambdaMinRatio)
	for i := range path {
		frac := float64(i) / float64(m.nLambda-1)
		path[i] = math.Exp(logMax + frac*(logMin-logMax))
	}
	return path, nil
}

// Fit fits the model at a single penalty value. A training set holding
// only one outcome class cannot be fitted and returns a
// DegenerateSplitError.
func (m *LogisticLasso) Fit(X *mat.Dense, y []float64, lambda float64) (*Solution, error) {
	solutions, err := m.FitPath(X, y, []float64{lambda})
	if err != nil {
		return nil, err
	}
	return &solutions[0], nil
}

// FitPath fits the model at every penalty in lambdas, warm-starting each
// solution from the previous one. lambdas should be in descending order
// for the warm starts to help; the solutions are returned in input order.
func (m *LogisticLasso) FitPath(X *mat.Dense, y []float64, lambdas []float64) ([]Solution, error) {
	rows, cols := X.Dims()
	if len(y) != rows {
		return nil, errors.NewDimensionError("FitPath", rows, len(y), 0)
	}
	if len(lambdas) == 0 {
		return nil, errors.NewValueError("FitPath", "empty lambda path")
	}
	pos, neg, err := metrics.CountClasses("FitPath", y)
	if err != nil {
		return nil, err
	}
	if pos == 0 || neg == 0 {
		return nil, errors.NewDegenerateSplitError("train", -1, pos, neg)
	}

	// Lipschitz bound on the logistic gradient, with the implicit
	// intercept column included: (||X||_F^2 + n) / (4n).
	var frob float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := X.At(i, j)
			frob += v * v
		}
	}
	step := 1.0 / ((frob + float64(rows)) / (4 * float64(rows)))

	coef := make([]float64, cols)
	intercept := math.Log(float64(pos) / float64(neg)) // log-odds of the base rate

	probs := make([]float64, rows)
	grad := make([]float64, cols)
	solutions := make([]Solution, len(lambdas))

	for li, lambda := range lambdas {
		if lambda < 0 {
			return nil, errors.NewValidationError("lambda", "must be non-negative", lambda)
		}
		for iter := 0; iter < m.maxIter; iter++ {
			for i := 0; i < rows; i++ {
				z := intercept
				for j := 0; j < cols; j++ {
					z += X.At(i, j) * coef[j]
				}
				probs[i] = sigmoid(z)
			}

			var gradIntercept float64
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < rows; i++ {
				residual := probs[i] - y[i]
				gradIntercept += residual
				for j := 0; j < cols; j++ {
					grad[j] += residual * X.At(i, j)
				}
			}
			gradIntercept /= float64(rows)
			for j := range grad {
				grad[j] /= float64(rows)
			}

			maxDelta := math.Abs(step * gradIntercept)
			intercept -= step * gradIntercept
			for j := range coef {
				updated := softThreshold(coef[j]-step*grad[j], step*lambda)
				if d := math.Abs(updated - coef[j]); d > maxDelta {
					maxDelta = d
				}
				coef[j] = updated
			}

			if maxDelta < m.tol {
				break
			}
		}

		if !isFinite(intercept) || !allFinite(coef) {
			return nil, errors.NewFitError("FitPath", "numerical overflow in proximal gradient loop", nil)
		}

		out := make([]float64, cols)
		copy(out, coef)
		solutions[li] = Solution{Lambda: lambda, Intercept: intercept, Coef: out}
	}

	return solutions, nil
}

func softThreshold(v, threshold float64) float64 {
	switch {
	case v > threshold:
		return v - threshold
	case v < -threshold:
		return v + threshold
	default:
		return 0
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !isFinite(v) {
			return false
		}
	}
	return true
}
