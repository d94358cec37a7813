package bootstrap

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/dataset"
	"github.com/YuminosukeSato/clintrials/penalized"
)

var testSchema = dataset.Schema{
	Outcome:    "abstinent",
	Treatments: []string{"trt_a", "trt_b"},
	Covariates: []string{"motivation", "depression"},
}

// syntheticImputations draws m completed datasets from a known moderated
// logistic model.
func syntheticImputations(t *testing.T, m, n int) []*dataset.ImputedDataset {
	t.Helper()
	names := []string{"abstinent", "trt_a", "trt_b", "motivation", "depression"}

	out := make([]*dataset.ImputedDataset, m)
	for imp := 0; imp < m; imp++ {
		src := rand.NewPCG(uint64(imp+1), uint64(imp+1))
		rng := rand.New(src)
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

		data := mat.NewDense(n, len(names), nil)
		for i := 0; i < n; i++ {
			var a, b float64
			switch i % 3 {
			case 1:
				a = 1
			case 2:
				b = 1
			}
			motivation := normal.Rand()
			depression := normal.Rand()
			logit := -0.3 + 0.8*a + 0.5*b + 0.6*motivation - 0.4*depression + 0.5*a*motivation
			var outcome float64
			if rng.Float64() < 1/(1+math.Exp(-logit)) {
				outcome = 1
			}
			data.SetRow(i, []float64{outcome, a, b, motivation, depression})
		}
		ds, err := dataset.New(testSchema, names, data)
		require.NoError(t, err)
		out[imp] = ds
	}
	return out
}

// fastConfig keeps the penalty path short so the test suite stays quick.
func fastConfig() Config {
	return Config{
		Iterations: 3,
		Seed:       99,
		Folds:      4,
		Lasso:      penalized.NewLogisticLasso(penalized.WithLambdaPath(8, 0.05), penalized.WithMaxIter(300)),
	}
}

func TestRunProducesReplicatesAndAverages(t *testing.T) {
	datasets := syntheticImputations(t, 2, 240)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	res, err := Run(datasets, spec, fastConfig())
	require.NoError(t, err)

	assert.Equal(t, 2*3, len(res.Replicates)+res.Excluded)
	require.NotEmpty(t, res.Replicates)

	// One averaged entry per term plus the intercept.
	wantTerms := len(spec.TermNames()) + 1
	assert.Len(t, res.Terms, wantTerms)
	assert.Contains(t, res.Terms, InterceptTerm)
	assert.Len(t, res.AverageCoef, wantTerms)

	for _, rep := range res.Replicates {
		assert.GreaterOrEqual(t, rep.AUC, 0.0)
		assert.LessOrEqual(t, rep.AUC, 1.0)
		assert.Greater(t, rep.Lambda, 0.0)
		assert.Len(t, rep.Coef, wantTerms)
	}
	assert.Len(t, res.AUCs, len(res.Replicates))
	assert.Nil(t, res.Frames, "frames are opt-in")
}

func TestRunDeterminism(t *testing.T) {
	datasets := syntheticImputations(t, 2, 240)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	first, err := Run(datasets, spec, fastConfig())
	require.NoError(t, err)
	second, err := Run(datasets, spec, fastConfig())
	require.NoError(t, err)

	require.Equal(t, len(first.Replicates), len(second.Replicates))
	for i := range first.Replicates {
		assert.Equal(t, first.Replicates[i].Key, second.Replicates[i].Key)
		assert.Equal(t, first.Replicates[i].Lambda, second.Replicates[i].Lambda)
		assert.Equal(t, first.Replicates[i].AUC, second.Replicates[i].AUC)
		assert.Equal(t, first.Replicates[i].Coef, second.Replicates[i].Coef)
	}
	assert.Equal(t, first.AverageCoef, second.AverageCoef)
}

func TestRunParallelMatchesSerial(t *testing.T) {
	datasets := syntheticImputations(t, 2, 240)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	serial, err := Run(datasets, spec, fastConfig())
	require.NoError(t, err)

	parallelCfg := fastConfig()
	parallelCfg.Parallel = true
	parallel, err := Run(datasets, spec, parallelCfg)
	require.NoError(t, err)

	require.Equal(t, len(serial.Replicates), len(parallel.Replicates))
	for i := range serial.Replicates {
		assert.Equal(t, serial.Replicates[i], parallel.Replicates[i])
	}
	assert.Equal(t, serial.AverageCoef, parallel.AverageCoef)
	assert.Equal(t, serial.Excluded, parallel.Excluded)
}

func TestRunCollectFrames(t *testing.T) {
	datasets := syntheticImputations(t, 1, 150)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	cfg := fastConfig()
	cfg.CollectFrames = true
	res, err := Run(datasets, spec, cfg)
	require.NoError(t, err)

	require.Len(t, res.Frames, len(res.Replicates))
	for key, frames := range res.Frames {
		assert.Equal(t, 1, key.Imputation)
		require.NotNil(t, frames.Train)
		require.NotNil(t, frames.Test)
		assert.Equal(t, 150, frames.Train.Rows()+frames.Test.Rows())
	}
}

func TestRunSharedSeedSequenceAcrossImputations(t *testing.T) {
	// The derived seed depends on the bootstrap index only, so replicate
	// b of every imputation resamples the same row positions.
	datasets := syntheticImputations(t, 2, 150)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	cfg := fastConfig()
	cfg.CollectFrames = true
	res, err := Run(datasets, spec, cfg)
	require.NoError(t, err)

	a, okA := res.Frames[ReplicateKey{Imputation: 1, Bootstrap: 1}]
	b, okB := res.Frames[ReplicateKey{Imputation: 2, Bootstrap: 1}]
	if okA && okB {
		assert.Equal(t, a.Train.Rows(), b.Train.Rows())
		assert.Equal(t, a.Test.Rows(), b.Test.Rows())
	}
}

func TestRunValidation(t *testing.T) {
	datasets := syntheticImputations(t, 1, 60)
	spec := dataset.NewInteractionSpec(testSchema.Treatments, testSchema.Covariates)

	_, err := Run(nil, spec, fastConfig())
	assert.Error(t, err, "no datasets")

	cfg := fastConfig()
	cfg.Iterations = 0
	_, err = Run(datasets, spec, cfg)
	assert.Error(t, err, "zero iterations")

	cfg = fastConfig()
	cfg.TrainFraction = 1.2
	_, err = Run(datasets, spec, cfg)
	assert.Error(t, err, "bad train fraction")
}

func TestAverageCoefficientsTreatsAbsentTermsAsZero(t *testing.T) {
	replicates := []Replicate{
		{Key: ReplicateKey{1, 1}, Coef: map[string]float64{"a": 2, "b": 4}},
		{Key: ReplicateKey{1, 2}, Coef: map[string]float64{"a": 4}},
	}
	terms, avg := averageCoefficients(replicates)

	assert.Equal(t, []string{"a", "b"}, terms)
	assert.Equal(t, 3.0, avg["a"])
	assert.Equal(t, 2.0, avg["b"], "absent term contributes 0, not a missing value")
}
