package crt

import (
	"log/slog"
	"time"

	"github.com/YuminosukeSato/clintrials/core/parallel"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
	"github.com/YuminosukeSato/clintrials/pkg/log"
)

// Grid is a sweep over cluster counts and cost ratios. Every other
// parameter is shared across the grid.
type Grid struct {
	Clusters   []int
	CostRatios []float64
	// Parallel evaluates design points across CPU cores. Row order and
	// per-point seeding are independent of the execution schedule.
	Parallel bool
}

// Validate checks the grid axes.
func (g Grid) Validate() error {
	if len(g.Clusters) == 0 {
		return errors.NewValidationError("Clusters", "empty grid axis", g.Clusters)
	}
	if len(g.CostRatios) == 0 {
		return errors.NewValidationError("CostRatios", "empty grid axis", g.CostRatios)
	}
	return nil
}

// GridRow is the evaluation of one design point. An infeasible or failed
// design point carries its error and a nil Metrics; the grid still emits
// its row so output ordering and row count stay fixed.
type GridRow struct {
	Clusters  int
	CostRatio float64
	Metrics   *Metrics
	Err       error
}

// Failed reports whether the design point produced no metrics.
func (r GridRow) Failed() bool { return r.Err != nil }

// RunGridNormal evaluates the grid under the Normal-outcome model. The
// cluster axis is the outer loop and the cost-ratio axis the inner loop;
// this row ordering is part of the contract so downstream reports are
// reproducible.
func RunGridNormal(grid Grid, base NormalParams) ([]GridRow, error) {
	return runGrid(grid, "normal", func(clusters int, ratio float64) (*Result, error) {
		params := base
		params.Design.Clusters = clusters
		params.Design.CostRatio = ratio
		return SimulateNormal(params)
	})
}

// RunGridPoisson evaluates the grid under the Poisson-outcome model, with
// the same ordering contract as RunGridNormal.
func RunGridPoisson(grid Grid, base PoissonParams) ([]GridRow, error) {
	return runGrid(grid, "poisson", func(clusters int, ratio float64) (*Result, error) {
		params := base
		params.Design.Clusters = clusters
		params.Design.CostRatio = ratio
		return SimulatePoisson(params)
	})
}

func runGrid(grid Grid, family string, evaluate func(clusters int, ratio float64) (*Result, error)) ([]GridRow, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default().With(
		slog.String(log.PipelineKey, "crt"),
		slog.String("family", family),
	)
	started := time.Now()
	logger.Info("grid search started",
		slog.Int("design_points", len(grid.Clusters)*len(grid.CostRatios)),
	)

	rows := make([]GridRow, len(grid.Clusters)*len(grid.CostRatios))
	evaluatePoint := func(idx int) {
		clusters := grid.Clusters[idx/len(grid.CostRatios)]
		ratio := grid.CostRatios[idx%len(grid.CostRatios)]
		row := GridRow{Clusters: clusters, CostRatio: ratio}

		result, err := evaluate(clusters, ratio)
		if err != nil {
			// Partial-failure tolerant: record and move on.
			row.Err = err
			logger.Warn("design point failed",
				slog.Int(log.ClustersKey, clusters),
				slog.Float64(log.CostRatioKey, ratio),
				log.ErrAttr(err),
			)
		} else {
			row.Metrics = &result.Metrics
		}
		rows[idx] = row
	}

	if grid.Parallel {
		parallel.Parallelize(len(rows), func(start, end int) {
			for idx := start; idx < end; idx++ {
				evaluatePoint(idx)
			}
		})
	} else {
		for idx := range rows {
			evaluatePoint(idx)
		}
	}

	logger.Info("grid search finished",
		slog.Int64(log.DurationMSKey, time.Since(started).Milliseconds()),
	)
	return rows, nil
}
