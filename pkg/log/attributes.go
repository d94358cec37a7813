// Standard attribute keys for analysis pipelines.
//
// Using fixed keys keeps replicate-level log lines filterable: every
// bootstrap replicate carries its (imputation, bootstrap) pair, every
// simulated design point carries its (clusters, cost_ratio) pair.

package log

// Pipeline and component context.
const (
	// PipelineKey names the top-level analysis pipeline.
	// Values: "bootstrap", "crt".
	PipelineKey = "pipeline"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "penalized", "dataset", "crt", "report"
	ComponentKey = "component"

	// PhaseKey indicates the phase inside a pipeline.
	// Examples: "resample", "cv", "refit", "score", "aggregate"
	PhaseKey = "phase"
)

// Replicate identity.
const (
	// ImputationKey is the 1-based imputed-dataset index.
	ImputationKey = "imputation"

	// BootstrapKey is the 1-based bootstrap-iteration index.
	BootstrapKey = "bootstrap"

	// SimulationKey is the 0-based simulated-trial index.
	SimulationKey = "simulation"
)

// Design-point identity.
const (
	// ClustersKey is the number of clusters in a trial design.
	ClustersKey = "clusters"

	// CostRatioKey is the c1/c2 cost ratio of a trial design.
	CostRatioKey = "cost_ratio"

	// ObsPerClusterKey is the derived per-cluster observation count.
	ObsPerClusterKey = "obs_per_cluster"
)

// Result summaries.
const (
	// ExcludedKey counts replicates excluded from an aggregate.
	ExcludedKey = "excluded"

	// SeedKey is the base random seed of a run.
	SeedKey = "seed"

	// DurationMSKey is the wall time of a phase in milliseconds.
	DurationMSKey = "duration_ms"
)
