// Package bootstrap implements the bootstrap-validated penalized
// regression procedure: for every (imputed dataset, bootstrap iteration)
// pair it resamples, splits, selects an L1 penalty by cross-validation,
// refits, and scores the held-out split by AUC, then averages the named
// coefficients across all valid replicates.
//
// Each replicate is an independent pure function of its key and derived
// seed, so the loop can run in parallel without changing any result.
package bootstrap

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/clintrials/core/parallel"
	"github.com/YuminosukeSato/clintrials/dataset"
	"github.com/YuminosukeSato/clintrials/metrics"
	"github.com/YuminosukeSato/clintrials/penalized"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
	"github.com/YuminosukeSato/clintrials/pkg/log"
)

// InterceptTerm is the name under which the unpenalized intercept is
// reported alongside the design-matrix terms.
const InterceptTerm = "(Intercept)"

// ReplicateKey identifies one bootstrap replicate.
type ReplicateKey struct {
	Imputation int // 1-based imputed-dataset index
	Bootstrap  int // 1-based bootstrap-iteration index
}

// Replicate is the result of one successful bootstrap replicate.
type Replicate struct {
	Key    ReplicateKey
	Lambda float64            // penalty selected by cross-validated deviance
	Coef   map[string]float64 // named coefficients; eliminated terms are 0
	AUC    float64            // held-out AUC
}

// Failure records a replicate excluded from aggregation, with the typed
// error explaining why (degenerate split, failed path fit).
type Failure struct {
	Key ReplicateKey
	Err error
}

// SplitFrames holds the train/test subsets of one replicate, retained for
// diagnostic inspection only; the modelling path never reads them back.
type SplitFrames struct {
	Train *dataset.ImputedDataset
	Test  *dataset.ImputedDataset
}

// Config parameterizes a bootstrap run.
type Config struct {
	// Iterations is the number of bootstrap resamples per imputed dataset.
	Iterations int
	// Seed is the base seed. Replicate b derives its seed as Seed + b,
	// and the same derived seed re-seeds the resample and the split.
	Seed int64
	// Folds is the number of cross-validation folds (default 10).
	Folds int
	// TrainFraction is the stratified train share (default 0.7).
	TrainFraction float64
	// Lasso overrides the default path-fitting model.
	Lasso *penalized.LogisticLasso
	// Parallel fans replicates out across CPU cores.
	Parallel bool
	// CollectFrames retains each replicate's train/test frames.
	CollectFrames bool
}

// Validate checks the configuration, applying defaults for zero values.
func (c *Config) Validate() error {
	if c.Iterations < 1 {
		return errors.NewValidationError("Iterations", "must be at least 1", c.Iterations)
	}
	if c.Folds == 0 {
		c.Folds = 10
	}
	if c.Folds < 2 {
		return errors.NewValidationError("Folds", "need at least 2 folds", c.Folds)
	}
	if c.TrainFraction == 0 {
		c.TrainFraction = 0.7
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return errors.NewValidationError("TrainFraction", "must be in (0, 1)", c.TrainFraction)
	}
	if c.Lasso == nil {
		c.Lasso = penalized.NewLogisticLasso()
	}
	return nil
}

// Result aggregates a full bootstrap run.
type Result struct {
	// Replicates holds every valid replicate, ordered by key.
	Replicates []Replicate
	// Failures holds every excluded replicate, ordered by key.
	Failures []Failure
	// Terms lists the coefficient names in report order.
	Terms []string
	// AverageCoef is the across-replicate mean of every term, with
	// absent terms contributing 0 to each replicate's row.
	AverageCoef map[string]float64
	// AUCs holds the held-out AUC of every valid replicate, in
	// Replicates order.
	AUCs []float64
	// Excluded counts replicates left out of the aggregates.
	Excluded int
	// Frames holds the diagnostic train/test frames when requested.
	Frames map[ReplicateKey]SplitFrames
}

// MeanAUC returns the mean held-out AUC across valid replicates.
func (r *Result) MeanAUC() float64 {
	if len(r.AUCs) == 0 {
		return 0
	}
	return stat.Mean(r.AUCs, nil)
}

// Run executes the bootstrap procedure over all imputed datasets.
// datasets are the multiple-imputation instances (conventionally five);
// spec enumerates the treatment-by-covariate interaction terms.
func Run(datasets []*dataset.ImputedDataset, spec dataset.InteractionSpec, cfg Config) (*Result, error) {
	if len(datasets) == 0 {
		return nil, errors.ErrEmptyData
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default().With(
		slog.String(log.PipelineKey, "bootstrap"),
		slog.Int64(log.SeedKey, cfg.Seed),
	)
	started := time.Now()
	logger.Info("bootstrap run started",
		slog.Int("datasets", len(datasets)),
		slog.Int("iterations", cfg.Iterations),
	)

	type task struct {
		key ReplicateKey
		ds  *dataset.ImputedDataset
	}
	tasks := make([]task, 0, len(datasets)*cfg.Iterations)
	for i, ds := range datasets {
		for b := 1; b <= cfg.Iterations; b++ {
			tasks = append(tasks, task{key: ReplicateKey{Imputation: i + 1, Bootstrap: b}, ds: ds})
		}
	}

	type outcome struct {
		replicate *Replicate
		frames    SplitFrames
		err       error
	}
	outcomes := make([]outcome, len(tasks))

	runTask := func(t int) {
		rep, frames, err := runReplicate(tasks[t].key, tasks[t].ds, spec, cfg)
		outcomes[t] = outcome{replicate: rep, frames: frames, err: err}
	}
	if cfg.Parallel {
		parallel.Parallelize(len(tasks), func(start, end int) {
			for t := start; t < end; t++ {
				runTask(t)
			}
		})
	} else {
		for t := range tasks {
			runTask(t)
		}
	}

	// Aggregation happens strictly after the barrier above.
	result := &Result{}
	if cfg.CollectFrames {
		result.Frames = make(map[ReplicateKey]SplitFrames, len(tasks))
	}
	for t, out := range outcomes {
		key := tasks[t].key
		if out.err != nil {
			result.Failures = append(result.Failures, Failure{Key: key, Err: out.err})
			logger.Warn("replicate excluded",
				slog.Int(log.ImputationKey, key.Imputation),
				slog.Int(log.BootstrapKey, key.Bootstrap),
				log.ErrAttr(out.err),
			)
			errors.Warn(out.err)
			continue
		}
		result.Replicates = append(result.Replicates, *out.replicate)
		result.AUCs = append(result.AUCs, out.replicate.AUC)
		if cfg.CollectFrames {
			result.Frames[key] = out.frames
		}
	}
	result.Excluded = len(result.Failures)
	result.Terms, result.AverageCoef = averageCoefficients(result.Replicates)

	logger.Info("bootstrap run finished",
		slog.Int("replicates", len(result.Replicates)),
		slog.Int(log.ExcludedKey, result.Excluded),
		slog.Int64(log.DurationMSKey, time.Since(started).Milliseconds()),
	)
	return result, nil
}

// runReplicate is the pure per-replicate procedure: resample, split,
// assign folds, select the penalty, refit, score.
func runReplicate(key ReplicateKey, ds *dataset.ImputedDataset, spec dataset.InteractionSpec, cfg Config) (*Replicate, SplitFrames, error) {
	seed := uint64(cfg.Seed) + uint64(key.Bootstrap)

	resampled := dataset.Resample(ds, dataset.NewRand(seed))
	train, test, err := dataset.StratifiedSplit(resampled, cfg.TrainFraction, dataset.NewRand(seed))
	if err != nil {
		return nil, SplitFrames{}, err
	}
	folds, err := dataset.AssignFolds(train, cfg.Folds, dataset.NewRand(seed))
	if err != nil {
		return nil, SplitFrames{}, err
	}

	trainX, names, err := dataset.BuildDesign(train, spec)
	if err != nil {
		return nil, SplitFrames{}, err
	}
	trainY := train.Outcome()

	cv, err := cfg.Lasso.CrossValidate(trainX, trainY, folds, nil)
	if err != nil {
		return nil, SplitFrames{}, err
	}
	fit, err := cfg.Lasso.Fit(trainX, trainY, cv.BestLambda)
	if err != nil {
		return nil, SplitFrames{}, err
	}

	testX, _, err := dataset.BuildDesign(test, spec)
	if err != nil {
		return nil, SplitFrames{}, err
	}
	auc, err := metrics.AUC(test.Outcome(), fit.Probabilities(testX))
	if err != nil {
		return nil, SplitFrames{}, err
	}

	coef := make(map[string]float64, len(names)+1)
	coef[InterceptTerm] = fit.Intercept
	for j, name := range names {
		coef[name] = fit.Coef[j]
	}
	replicate := &Replicate{Key: key, Lambda: cv.BestLambda, Coef: coef, AUC: auc}
	return replicate, SplitFrames{Train: train, Test: test}, nil
}

// averageCoefficients stacks the replicate coefficient vectors aligned by
// term name (absent terms contribute 0) and returns the row-wise mean.
func averageCoefficients(replicates []Replicate) ([]string, map[string]float64) {
	if len(replicates) == 0 {
		return nil, map[string]float64{}
	}

	seen := make(map[string]bool)
	var terms []string
	for _, rep := range replicates {
		for name := range rep.Coef {
			if !seen[name] {
				seen[name] = true
				terms = append(terms, name)
			}
		}
	}
	sort.Strings(terms)

	avg := make(map[string]float64, len(terms))
	for _, name := range terms {
		var sum float64
		for _, rep := range replicates {
			sum += rep.Coef[name] // zero value stands in for absent terms
		}
		avg[name] = sum / float64(len(replicates))
	}
	return terms, avg
}
