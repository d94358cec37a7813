package crt

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
	"github.com/YuminosukeSato/clintrials/pkg/log"
)

// Metrics aggregates the treatment-effect estimates of one design point
// over its converged simulated trials.
type Metrics struct {
	Clusters      int
	ObsPerCluster int
	CostRatio     float64

	NSim     int
	Failures int // non-converged replicates, excluded from every figure below

	MeanEstimate float64
	MinEstimate  float64
	MaxEstimate  float64
	Bias         float64 // mean estimate minus true beta
	Variance     float64 // sample variance of the estimates
	Power        float64 // fraction of replicates with p below the alpha level
	Coverage     float64 // fraction of intervals containing true beta
}

// Result is the evaluation of one design point.
type Result struct {
	Metrics Metrics
	// Example is the first simulated trial, kept for inspection.
	Example *Trial
}

// simulate runs the shared simulation loop: generate a trial, fit it,
// collect the summary, and exclude (with a count) every replicate whose
// fit fails to converge. It errors only when no replicate converges at
// all, since every aggregate would then be undefined.
func simulate(model string, nSim int, trueBeta, alphaLevel float64,
	generate func(sim int) *Trial, fit func(t *Trial) (*FitSummary, error)) (*Result, error) {

	result := &Result{}
	estimates := make([]float64, 0, nSim)
	var powerHits, coverHits int

	for sim := 0; sim < nSim; sim++ {
		trial := generate(sim)
		if sim == 0 {
			result.Example = trial
		}

		summary, err := fit(trial)
		if err != nil {
			result.Metrics.Failures++
			warning := errors.NewConvergenceWarning(model, sim, err.Error())
			errors.Warn(warning)
			slog.Default().Warn("replicate excluded",
				slog.String(log.ComponentKey, "crt"),
				slog.Int(log.SimulationKey, sim),
				log.ErrAttr(err),
			)
			continue
		}

		estimates = append(estimates, summary.Estimate)
		if summary.PValue < alphaLevel {
			powerHits++
		}
		if summary.Lower <= trueBeta && trueBeta <= summary.Upper {
			coverHits++
		}
	}

	if len(estimates) == 0 {
		return nil, errors.NewFitError("crt.simulate", "no replicate converged", nil)
	}

	converged := float64(len(estimates))
	result.Metrics.NSim = nSim
	result.Metrics.MeanEstimate = stat.Mean(estimates, nil)
	result.Metrics.MinEstimate = floats.Min(estimates)
	result.Metrics.MaxEstimate = floats.Max(estimates)
	result.Metrics.Bias = result.Metrics.MeanEstimate - trueBeta
	if len(estimates) > 1 {
		result.Metrics.Variance = stat.Variance(estimates, nil)
	}
	result.Metrics.Power = float64(powerHits) / converged
	result.Metrics.Coverage = float64(coverHits) / converged
	return result, nil
}
