package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/clintrials/crt"
	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// SaveAUCHistogram writes a histogram of the replicate AUC distribution.
// The file format follows the path extension (png, pdf, svg, ...).
func SaveAUCHistogram(aucs []float64, path string) error {
	if len(aucs) == 0 {
		return errors.ErrEmptyData
	}

	p := plot.New()
	p.Title.Text = "Held-out AUC across bootstrap replicates"
	p.X.Label.Text = "AUC"
	p.Y.Label.Text = "Replicates"

	hist, err := plotter.NewHist(plotter.Values(aucs), 20)
	if err != nil {
		return errors.Wrap(err, "building AUC histogram")
	}
	p.Add(hist)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot %q", path)
	}
	return nil
}

// SavePowerCurves plots power against cluster count, one line per cost
// ratio, from a grid result. Failed design points are skipped.
func SavePowerCurves(gridRows []crt.GridRow, path string) error {
	if len(gridRows) == 0 {
		return errors.ErrEmptyData
	}

	p := plot.New()
	p.Title.Text = "Power by cluster count and cost ratio"
	p.X.Label.Text = "Clusters"
	p.Y.Label.Text = "Power"
	p.Y.Min, p.Y.Max = 0, 1

	byRatio := make(map[float64]plotter.XYs)
	var ratios []float64
	for _, row := range gridRows {
		if row.Failed() {
			continue
		}
		if _, ok := byRatio[row.CostRatio]; !ok {
			ratios = append(ratios, row.CostRatio)
		}
		byRatio[row.CostRatio] = append(byRatio[row.CostRatio], plotter.XY{
			X: float64(row.Clusters),
			Y: row.Metrics.Power,
		})
	}
	if len(ratios) == 0 {
		return errors.New("no successful design points to plot")
	}

	args := make([]interface{}, 0, 2*len(ratios))
	for _, ratio := range ratios {
		args = append(args, fmt.Sprintf("c1/c2 = %g", ratio), byRatio[ratio])
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		return errors.Wrap(err, "building power curves")
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot %q", path)
	}
	return nil
}
