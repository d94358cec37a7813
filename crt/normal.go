package crt

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// NormalParams parameterizes the Normal-outcome simulator.
type NormalParams struct {
	Design Design

	// Alpha is the true intercept, Beta the true treatment effect.
	Alpha float64
	Beta  float64
	// Gamma2 is the between-cluster (random intercept) variance,
	// Sigma2 the within-cluster residual variance.
	Gamma2 float64
	Sigma2 float64

	// NSim is the number of simulated trials.
	NSim int
	// AlphaLevel is the two-sided test level (default 0.05).
	AlphaLevel float64
	// Seed is the base seed; simulation s draws from an independent
	// stream keyed by (Seed, s).
	Seed uint64
}

// Validate checks the parameters, applying the default alpha level.
func (p *NormalParams) Validate() error {
	if err := p.Design.Validate(); err != nil {
		return err
	}
	if p.Design.Clusters%2 != 0 {
		return errors.NewValidationError("Clusters", "alternating treatment assignment requires an even cluster count", p.Design.Clusters)
	}
	if p.Gamma2 < 0 {
		return errors.NewValidationError("Gamma2", "must be non-negative", p.Gamma2)
	}
	if p.Sigma2 <= 0 {
		return errors.NewValidationError("Sigma2", "must be positive", p.Sigma2)
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

// SimulateNormal evaluates one design point under the hierarchical Normal
// model: cluster effects ~ N(0, Gamma2), observations ~ N(Alpha +
// Beta*treatment + effect, Sigma2). Each simulated trial is fitted with a
// two-level random-intercept linear mixed model; non-converged fits are
// excluded and counted.
func SimulateNormal(p NormalParams) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	obs, err := p.Design.ObsPerCluster()
	if err != nil {
		return nil, err
	}

	result, err := simulate("NormalLMM", p.NSim, p.Beta, p.AlphaLevel,
		func(sim int) *Trial { return generateNormalTrial(p, obs, sim) },
		func(t *Trial) (*FitSummary, error) { return fitNormalLMM(t, p.AlphaLevel) },
	)
	if err != nil {
		return nil, err
	}
	result.Metrics.Clusters = p.Design.Clusters
	result.Metrics.ObsPerCluster = obs
	result.Metrics.CostRatio = p.Design.CostRatio
	return result, nil
}

// generateNormalTrial draws one trial. Clusters alternate
// treatment/control so both arms hold exactly half the clusters.
func generateNormalTrial(p NormalParams, obs, sim int) *Trial {
	src := rand.NewPCG(p.Seed, uint64(sim))
	clusterEffect := distuv.Normal{Mu: 0, Sigma: math.Sqrt(p.Gamma2), Src: src}
	residualSigma := math.Sqrt(p.Sigma2)

	trial := &Trial{Clusters: make([]Cluster, p.Design.Clusters)}
	for g := 0; g < p.Design.Clusters; g++ {
		treatment := g % 2
		mean := p.Alpha + p.Beta*float64(treatment) + clusterEffect.Rand()
		within := distuv.Normal{Mu: mean, Sigma: residualSigma, Src: src}
		y := make([]float64, obs)
		for i := range y {
			y[i] = within.Rand()
		}
		trial.Clusters[g] = Cluster{ID: g + 1, Treatment: treatment, Y: y}
	}
	return trial
}
