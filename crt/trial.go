package crt

// Cluster is one cluster of a simulated trial.
type Cluster struct {
	ID        int
	Treatment int // 1 for treatment, 0 for control
	Y         []float64
}

// Trial is one simulated cluster-randomized trial. Trials are ephemeral:
// the simulators discard them after the fitted-model summary is
// extracted, keeping only one example per design point.
type Trial struct {
	Clusters []Cluster
}

// Size returns the total number of observations.
func (t *Trial) Size() int {
	n := 0
	for _, c := range t.Clusters {
		n += len(c.Y)
	}
	return n
}

// arms partitions cluster indices by treatment assignment.
func (t *Trial) arms() (treated, control []int) {
	for i, c := range t.Clusters {
		if c.Treatment == 1 {
			treated = append(treated, i)
		} else {
			control = append(control, i)
		}
	}
	return treated, control
}

// FitSummary is the extract of one fitted mixed model: the treatment
// coefficient, its Wald interval and p-value, and the estimated variance
// components.
type FitSummary struct {
	Estimate float64
	SE       float64
	Lower    float64
	Upper    float64
	PValue   float64
	Sigma2   float64 // residual (within-cluster) variance, Normal model only
	Gamma2   float64 // between-cluster variance (log scale for Poisson)
}
