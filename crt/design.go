// Package crt simulates cluster-randomized trials under a budget
// constraint. Given a total budget and the cost ratio between the first
// and each additional observation in a cluster, it derives the per-cluster
// sample size, simulates trials from a hierarchical Normal or Poisson
// model, fits a random-intercept mixed model to each, and aggregates the
// bias, variance, power and confidence-interval coverage of the
// treatment-effect estimate. A grid driver sweeps cluster-count and
// cost-ratio combinations.
package crt

import (
	"math"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// Design is one budget-constrained trial design.
type Design struct {
	// Clusters is the number of clusters G.
	Clusters int
	// Budget is the total budget B.
	Budget float64
	// FirstCost is the cost c1 of the first observation in a cluster.
	FirstCost float64
	// CostRatio is c1/c2, the ratio of the first-observation cost to
	// the cost c2 of each additional observation.
	CostRatio float64
}

// SecondCost returns c2, the cost of each additional observation.
func (d Design) SecondCost() float64 { return d.FirstCost / d.CostRatio }

// Validate checks the design parameters (not feasibility).
func (d Design) Validate() error {
	if d.Clusters < 2 {
		return errors.NewValidationError("Clusters", "need at least 2 clusters", d.Clusters)
	}
	if d.Budget <= 0 {
		return errors.NewValidationError("Budget", "must be positive", d.Budget)
	}
	if d.FirstCost <= 0 {
		return errors.NewValidationError("FirstCost", "must be positive", d.FirstCost)
	}
	if d.CostRatio <= 0 {
		return errors.NewValidationError("CostRatio", "must be positive", d.CostRatio)
	}
	return nil
}

// ObsPerCluster derives R, the number of observations the budget buys in
// each cluster:
//
//	R = floor((B - G*c1) / (G*c2)) + 1
//
// A derived R below one means the budget cannot open every cluster; the
// design point is infeasible and an InfeasibleDesignError is returned
// rather than a non-positive sample size.
func (d Design) ObsPerCluster() (int, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	g := float64(d.Clusters)
	r := int(math.Floor((d.Budget-g*d.FirstCost)/(g*d.SecondCost()))) + 1
	if r < 1 {
		return 0, errors.NewInfeasibleDesignError(d.Clusters, d.Budget, d.FirstCost, d.CostRatio, r)
	}
	return r, nil
}
