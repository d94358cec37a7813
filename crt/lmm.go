package crt

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// fitNormalLMM fits the two-level linear mixed model with a fixed
// intercept, a fixed treatment effect and a random intercept per cluster.
//
// The simulator only produces balanced trials (equal cluster sizes,
// treatment constant within cluster), for which the REML solution reduces
// to the cluster-mean analysis: the treatment coefficient is the
// difference of arm means of the cluster means, and its standard error
// comes from the pooled within-arm variance of the cluster means on G-2
// degrees of freedom. The Wald interval and p-value use the matching t
// distribution.
func fitNormalLMM(t *Trial, alphaLevel float64) (*FitSummary, error) {
	treated, control := t.arms()
	if len(treated) == 0 || len(control) == 0 {
		return nil, errors.NewValueError("fitNormalLMM", "both arms need at least one cluster")
	}
	g := len(t.Clusters)
	if g < 3 {
		return nil, errors.NewValueError("fitNormalLMM", "need at least 3 clusters for a standard error")
	}
	obs := len(t.Clusters[0].Y)
	for _, c := range t.Clusters {
		if len(c.Y) != obs {
			return nil, errors.NewValueError("fitNormalLMM", "cluster sizes must be equal")
		}
	}

	means := make([]float64, g)
	for i, c := range t.Clusters {
		means[i] = stat.Mean(c.Y, nil)
	}

	armMean := func(indices []int) float64 {
		var sum float64
		for _, i := range indices {
			sum += means[i]
		}
		return sum / float64(len(indices))
	}
	meanT := armMean(treated)
	meanC := armMean(control)
	estimate := meanT - meanC

	// Pooled within-arm spread of the cluster means, on G-2 df.
	var ss float64
	for _, i := range treated {
		d := means[i] - meanT
		ss += d * d
	}
	for _, i := range control {
		d := means[i] - meanC
		ss += d * d
	}
	df := float64(g - 2)
	clusterVar := ss / df

	if clusterVar <= 0 || !finite(clusterVar) || !finite(estimate) {
		return nil, errors.NewFitError("fitNormalLMM", "degenerate between-cluster variance", nil)
	}

	se := math.Sqrt(clusterVar * (1/float64(len(treated)) + 1/float64(len(control))))

	// Variance components: within-cluster residual MS, and the excess of
	// the cluster-mean variance over its sampling noise.
	var sigma2 float64
	if obs > 1 {
		var wss float64
		for i, c := range t.Clusters {
			for _, y := range c.Y {
				d := y - means[i]
				wss += d * d
			}
		}
		sigma2 = wss / float64(g*(obs-1))
	}
	gamma2 := clusterVar - sigma2/float64(obs)
	if gamma2 < 0 {
		gamma2 = 0 // variance component on the boundary
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	tq := tDist.Quantile(1 - alphaLevel/2)
	tStat := estimate / se

	return &FitSummary{
		Estimate: estimate,
		SE:       se,
		Lower:    estimate - tq*se,
		Upper:    estimate + tq*se,
		PValue:   2 * tDist.CDF(-math.Abs(tStat)),
		Sigma2:   sigma2,
		Gamma2:   gamma2,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
