package crt

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// PoissonParams parameterizes the count-outcome simulator. Alpha, Beta
// and the cluster effects live on the log scale: the mean count of a
// cluster is exp(Alpha + Beta*treatment + effect).
type PoissonParams struct {
	Design Design

	Alpha float64
	Beta  float64
	// Gamma2 is the variance of the cluster-level effects on the log scale.
	Gamma2 float64

	NSim       int
	AlphaLevel float64
	Seed       uint64
}

// Validate checks the parameters, applying the default alpha level.
func (p *PoissonParams) Validate() error {
	if err := p.Design.Validate(); err != nil {
		return err
	}
	if p.Design.Clusters%2 != 0 {
		return errors.NewValidationError("Clusters", "alternating treatment assignment requires an even cluster count", p.Design.Clusters)
	}
	if p.Gamma2 < 0 {
		return errors.NewValidationError("Gamma2", "must be non-negative", p.Gamma2)
	}
	if p.NSim < 1 {
		return errors.NewValidationError("NSim", "must be at least 1", p.NSim)
	}
	if p.AlphaLevel == 0 {
		p.AlphaLevel = 0.05
	}
	if p.AlphaLevel <= 0 || p.AlphaLevel >= 1 {
		return errors.NewValidationError("AlphaLevel", "must be in (0, 1)", p.AlphaLevel)
	}
	return nil
}

// SimulatePoisson evaluates one design point under the hierarchical
// Poisson model. Each simulated trial is fitted with a Poisson
// generalized linear mixed model with a random intercept per cluster;
// non-converged fits are excluded and counted.
func SimulatePoisson(p PoissonParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	obs, err := p.Design.ObsPerCluster()
	if err != nil {
		return nil, err
	}

	result, err := simulate("PoissonGLMM", p.NSim, p.Beta, p.AlphaLevel,
		func(sim int) *Trial { return generatePoissonTrial(p, obs, sim) },
		func(t *Trial) (*FitSummary, error) { return fitPoissonGLMM(t, p.AlphaLevel) },
	)
	if err != nil {
		return nil, err
	}
	result.Metrics.Clusters = p.Design.Clusters
	result.Metrics.ObsPerCluster = obs
	result.Metrics.CostRatio = p.Design.CostRatio
	return result, nil
}

func generatePoissonTrial(p PoissonParams, obs, sim int) *Trial {
	src := rand.NewPCG(p.Seed, uint64(sim))
	clusterEffect := distuv.Normal{Mu: 0, Sigma: math.Sqrt(p.Gamma2), Src: src}

	trial := &Trial{Clusters: make([]Cluster, p.Design.Clusters)}
	for g := 0; g < p.Design.Clusters; g++ {
		treatment := g % 2
		mean := math.Exp(p.Alpha + p.Beta*float64(treatment) + clusterEffect.Rand())
		counts := distuv.Poisson{Lambda: mean, Src: src}
		y := make([]float64, obs)
		for i := range y {
			y[i] = counts.Rand()
		}
		trial.Clusters[g] = Cluster{ID: g + 1, Treatment: treatment, Y: y}
	}
	return trial
}
