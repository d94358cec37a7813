// Package report persists analysis results as delimited tabular
// artifacts: a coefficient summary, an AUC distribution and a
// design-performance table, plus diagnostic plots.
package report

import (
	"math"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/clintrials/bootstrap"
	"github.com/YuminosukeSato/clintrials/crt"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// CoefficientRow is one line of the averaged-coefficient table, on both
// the log-odds and the exponentiated scale.
type CoefficientRow struct {
	Term      string  `csv:"term"`
	Estimate  float64 `csv:"estimate"`
	OddsRatio float64 `csv:"odds_ratio"`
}

// CoefficientRows flattens a bootstrap result into report rows, in the
// result's term order.
func CoefficientRows(res *bootstrap.Result) []CoefficientRow {
	rows := make([]CoefficientRow, 0, len(res.Terms))
	for _, term := range res.Terms {
		est := res.AverageCoef[term]
		rows = append(rows, CoefficientRow{
			Term:      term,
			Estimate:  est,
			OddsRatio: math.Exp(est),
		})
	}
	return rows
}

// WriteCoefficients writes the averaged-coefficient table to path.
func WriteCoefficients(res *bootstrap.Result, path string) error {
	return writeCSV(path, CoefficientRows(res))
}

// AUCRow is one replicate's held-out AUC.
type AUCRow struct {
	Imputation int     `csv:"imputation"`
	Bootstrap  int     `csv:"bootstrap"`
	AUC        float64 `csv:"auc"`
}

// AUCRows flattens the per-replicate AUC distribution. Excluded
// replicates do not appear; their count lives in the result.
func AUCRows(res *bootstrap.Result) []AUCRow {
	rows := make([]AUCRow, 0, len(res.Replicates))
	for _, rep := range res.Replicates {
		rows = append(rows, AUCRow{
			Imputation: rep.Key.Imputation,
			Bootstrap:  rep.Key.Bootstrap,
			AUC:        rep.AUC,
		})
	}
	return rows
}

// WriteAUCs writes the AUC distribution to path.
func WriteAUCs(res *bootstrap.Result, path string) error {
	return writeCSV(path, AUCRows(res))
}

// DesignRow is one line of the design-performance table. Failed design
// points keep their identifying columns and carry the error text in the
// status column.
type DesignRow struct {
	Clusters      int     `csv:"n_clusters"`
	ObsPerCluster int     `csv:"n_obs_per_cluster"`
	CostRatio     float64 `csv:"c1_c2_ratio"`
	NSim          int     `csv:"n_sim"`
	Failures      int     `csv:"n_failures"`
	MeanEstimate  float64 `csv:"mean_estimate"`
	MinEstimate   float64 `csv:"min_estimate"`
	MaxEstimate   float64 `csv:"max_estimate"`
	Bias          float64 `csv:"bias"`
	Variance      float64 `csv:"variance"`
	Power         float64 `csv:"power"`
	Coverage      float64 `csv:"coverage"`
	Status        string  `csv:"status"`
}

// DesignRows flattens grid output preserving its row order.
func DesignRows(gridRows []crt.GridRow) []DesignRow {
	rows := make([]DesignRow, 0, len(gridRows))
	for _, gr := range gridRows {
		row := DesignRow{
			Clusters:  gr.Clusters,
			CostRatio: gr.CostRatio,
			Status:    "ok",
		}
		if gr.Failed() {
			row.Status = gr.Err.Error()
		} else {
			m := gr.Metrics
			row.ObsPerCluster = m.ObsPerCluster
			row.NSim = m.NSim
			row.Failures = m.Failures
			row.MeanEstimate = m.MeanEstimate
			row.MinEstimate = m.MinEstimate
			row.MaxEstimate = m.MaxEstimate
			row.Bias = m.Bias
			row.Variance = m.Variance
			row.Power = m.Power
			row.Coverage = m.Coverage
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteDesignTable writes the design-performance table to path.
func WriteDesignTable(gridRows []crt.GridRow, path string) error {
	return writeCSV(path, DesignRows(gridRows))
}

func writeCSV[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating report file %q", path)
	}
	defer f.Close()
	if err := gocsv.Marshal(&rows, f); err != nil {
		return errors.Wrapf(err, "writing report file %q", path)
	}
	return nil
}
