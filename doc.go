// Package clintrials provides statistical machinery for two clinical-trial
// analysis pipelines: bootstrap-validated L1-penalized logistic regression
// over multiply-imputed datasets, and a Monte-Carlo simulator for
// budget-constrained cluster-randomized-trial design.
//
// The two pipelines share no state and are exposed as plain functions over
// explicit parameter structs.
//
// # Bootstrap-validated penalized regression
//
// For each imputed dataset and each bootstrap iteration, the bootstrap
// package resamples rows with replacement, performs a stratified 70/30
// train/test split, assigns stratified cross-validation folds, fits an
// L1-penalized logistic model with treatment-by-covariate interactions
// across a penalty path, selects the penalty by cross-validated deviance,
// and scores the held-out split by ROC AUC. Coefficients are averaged
// across all replicates, with absent terms contributing zero.
//
//	cfg := bootstrap.Config{Iterations: 200, Seed: 42, Folds: 10, TrainFraction: 0.7}
//	res, err := bootstrap.Run(datasets, spec, cfg)
//
// # Cluster-trial design simulator
//
// Given a total budget and the cost ratio between the first and each
// additional observation in a cluster, the crt package derives the
// per-cluster sample size, simulates trials under a hierarchical Normal or
// Poisson model, fits a random-intercept mixed model per trial, and
// aggregates bias, variance, power and coverage of the treatment effect.
// A grid driver sweeps (cluster count, cost ratio) combinations.
//
//	grid := crt.Grid{Clusters: []int{10, 20, 30}, CostRatios: []float64{2, 5, 10}}
//	rows, err := crt.RunGridNormal(grid, params)
//
// Degenerate splits, infeasible designs and non-converged fits are never
// folded silently into aggregates: they surface as typed errors from
// pkg/errors and explicit exclusion counts on the result records.
package clintrials
