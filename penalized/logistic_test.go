package penalized

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// syntheticLogistic draws n samples from a two-feature logistic model
// with known coefficients.
func syntheticLogistic(n int, seed uint64) (*mat.Dense, []float64) {
	src := rand.NewPCG(seed, seed)
	rng := rand.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	X := mat.NewDense(n, 3, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x0 := normal.Rand()
		x1 := normal.Rand()
		x2 := normal.Rand() // noise feature, true coefficient 0
		X.SetRow(i, []float64{x0, x1, x2})
		logit := 0.5 + 2*x0 - 1.5*x1
		if rng.Float64() < 1/(1+math.Exp(-logit)) {
			y[i] = 1
		}
	}
	return X, y
}

func TestLambdaPathShape(t *testing.T) {
	X, y := syntheticLogistic(200, 1)
	m := NewLogisticLasso(WithLambdaPath(20, 0.01))

	path, err := m.LambdaPath(X, y)
	require.NoError(t, err)
	require.Len(t, path, 20)

	for i := 1; i < len(path); i++ {
		assert.Less(t, path[i], path[i-1], "path must be descending")
	}
	assert.InDelta(t, path[0]*0.01, path[len(path)-1], 1e-12)
}

func TestFitAtLargePenaltyZeroesEverything(t *testing.T) {
	X, y := syntheticLogistic(300, 2)
	m := NewLogisticLasso()

	fit, err := m.Fit(X, y, 1e6)
	require.NoError(t, err)

	for j, c := range fit.Coef {
		assert.Zero(t, c, "coefficient %d should be eliminated", j)
	}

	// With every coefficient zeroed the intercept is the base-rate log-odds.
	var pos float64
	for _, v := range y {
		pos += v
	}
	wantIntercept := math.Log(pos / (float64(len(y)) - pos))
	assert.InDelta(t, wantIntercept, fit.Intercept, 0.05)
}

func TestFitRecoversSigns(t *testing.T) {
	X, y := syntheticLogistic(800, 3)
	m := NewLogisticLasso()

	path, err := m.LambdaPath(X, y)
	require.NoError(t, err)
	// A light penalty near the end of the path keeps the true signal.
	fit, err := m.Fit(X, y, path[len(path)-1])
	require.NoError(t, err)

	assert.Greater(t, fit.Coef[0], 0.5, "x0 has true coefficient +2")
	assert.Less(t, fit.Coef[1], -0.3, "x1 has true coefficient -1.5")
	assert.InDelta(t, 0, fit.Coef[2], 0.3, "x2 is noise")
}

func TestFitPathWarmStartMatchesColdFit(t *testing.T) {
	X, y := syntheticLogistic(300, 4)
	m := NewLogisticLasso(WithTol(1e-8), WithMaxIter(5000))

	path, err := m.LambdaPath(X, y)
	require.NoError(t, err)
	lambdas := []float64{path[0], path[len(path)/2], path[len(path)-1]}

	warm, err := m.FitPath(X, y, lambdas)
	require.NoError(t, err)
	cold, err := m.Fit(X, y, lambdas[2])
	require.NoError(t, err)

	for j := range cold.Coef {
		assert.InDelta(t, cold.Coef[j], warm[2].Coef[j], 1e-3)
	}
}

func TestFitSingleClassIsDegenerate(t *testing.T) {
	X, _ := syntheticLogistic(50, 5)
	y := make([]float64, 50) // all zeros

	_, err := NewLogisticLasso().Fit(X, y, 0.1)
	var degenerate *errors.DegenerateSplitError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, "train", degenerate.Split)
}

func TestCrossValidateSelectsFromPath(t *testing.T) {
	X, y := syntheticLogistic(400, 6)
	m := NewLogisticLasso(WithLambdaPath(15, 0.02), WithMaxIter(300))

	folds := make([]int, 400)
	for i := range folds {
		folds[i] = i % 5
	}

	cv, err := m.CrossValidate(X, y, folds, nil)
	require.NoError(t, err)
	require.Len(t, cv.Lambdas, 15)
	require.Len(t, cv.MeanDeviance, 15)

	assert.Equal(t, cv.Lambdas[cv.BestIndex], cv.BestLambda)
	for _, dev := range cv.MeanDeviance {
		assert.GreaterOrEqual(t, dev, cv.MeanDeviance[cv.BestIndex])
	}
	// The model has real signal, so some shrinkage beats the fully
	// penalized null model at the head of the path.
	assert.Greater(t, cv.MeanDeviance[0], cv.MeanDeviance[cv.BestIndex])
}

func TestCrossValidateDegenerateFold(t *testing.T) {
	X, y := syntheticLogistic(60, 7)
	// Fold 0 collects only positive rows: deviance there is undefined.
	folds := make([]int, 60)
	next := 1
	for i := range folds {
		if y[i] == 1 {
			folds[i] = 0
		} else {
			folds[i] = 1 + next%3
			next++
		}
	}

	_, err := NewLogisticLasso(WithLambdaPath(5, 0.1)).CrossValidate(X, y, folds, nil)
	var degenerate *errors.DegenerateSplitError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, "fold", degenerate.Split)
}

func TestCrossValidateValidation(t *testing.T) {
	X, y := syntheticLogistic(30, 8)
	m := NewLogisticLasso()

	_, err := m.CrossValidate(X, y, make([]int, 10), nil)
	assert.Error(t, err, "fold vector length mismatch")

	_, err = m.CrossValidate(X, y, make([]int, 30), nil)
	assert.Error(t, err, "a single fold index is not cross-validation")
}
