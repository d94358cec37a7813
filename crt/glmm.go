package crt

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// clusterStats are the sufficient statistics of one cluster under the
// Poisson model with a cluster-constant linear predictor.
type clusterStats struct {
	sum   float64 // sum of counts
	n     float64 // observations
	treat float64 // 0 or 1
}

// fitPoissonGLMM fits the Poisson generalized linear mixed model with a
// fixed intercept, fixed treatment effect and a Normal random intercept
// per cluster, by maximizing the Laplace-approximated marginal
// log-likelihood over (alpha, beta, log sigma_u) with Nelder-Mead. The
// random-effect mode of each cluster is found by an inner 1-D Newton
// iteration. The Wald standard error of beta comes from the inverse of a
// finite-difference Hessian at the optimum.
//
// Any failure along the way (optimizer error, non-finite objective,
// non-invertible or non-positive-definite Hessian) is reported as a fit
// error so the replicate can be excluded and counted.
func fitPoissonGLMM(t *Trial, alphaLevel float64) (*FitSummary, error) {
	treated, control := t.arms()
	if len(treated) == 0 || len(control) == 0 {
		return nil, errors.NewValueError("fitPoissonGLMM", "both arms need at least one cluster")
	}

	stats := make([]clusterStats, len(t.Clusters))
	var sumT, nT, sumC, nC float64
	for i, c := range t.Clusters {
		var s float64
		for _, y := range c.Y {
			s += y
		}
		stats[i] = clusterStats{sum: s, n: float64(len(c.Y)), treat: float64(c.Treatment)}
		if c.Treatment == 1 {
			sumT += s
			nT += float64(len(c.Y))
		} else {
			sumC += s
			nC += float64(len(c.Y))
		}
	}

	negLogLik := func(x []float64) float64 {
		alpha, beta, logSigmaU := x[0], x[1], x[2]
		if logSigmaU < -15 || logSigmaU > 15 {
			return math.Inf(1)
		}
		sigmaU := math.Exp(logSigmaU)
		gamma2 := sigmaU * sigmaU

		var ll float64
		for _, cs := range stats {
			eta := alpha + beta*cs.treat
			u, ok := clusterMode(cs, eta, gamma2)
			if !ok {
				return math.Inf(1)
			}
			rate := cs.n * math.Exp(eta+u)
			h := cs.sum*(eta+u) - rate - u*u/(2*gamma2)
			ll += h - 0.5*math.Log(gamma2*rate+1)
		}
		if math.IsNaN(ll) {
			return math.Inf(1)
		}
		return -ll
	}

	const eps = 1e-8
	x0 := []float64{
		math.Log(math.Max(sumC/nC, eps)),
		math.Log(math.Max(sumT/nT, eps)) - math.Log(math.Max(sumC/nC, eps)),
		math.Log(0.5),
	}

	problem := optimize.Problem{Func: negLogLik}
	res, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, errors.NewFitError("fitPoissonGLMM", "optimizer failed", err)
	}
	if err := res.Status.Err(); err != nil {
		return nil, errors.NewFitError("fitPoissonGLMM", "optimizer did not converge", err)
	}
	if !finite(res.F) {
		return nil, errors.NewFitError("fitPoissonGLMM", "non-finite log-likelihood at optimum", nil)
	}

	hessian := mat.NewSymDense(3, nil)
	fd.Hessian(hessian, negLogLik, res.X, nil)
	var cov mat.Dense
	if err := cov.Inverse(hessian); err != nil {
		return nil, errors.NewFitError("fitPoissonGLMM", "singular Hessian", err)
	}
	varBeta := cov.At(1, 1)
	if varBeta <= 0 || !finite(varBeta) {
		return nil, errors.NewFitError("fitPoissonGLMM", "Hessian not positive definite", nil)
	}

	estimate := res.X[1]
	se := math.Sqrt(varBeta)
	sigmaU := math.Exp(res.X[2])
	zq := distuv.UnitNormal.Quantile(1 - alphaLevel/2)
	z := estimate / se

	return &FitSummary{
		Estimate: estimate,
		SE:       se,
		Lower:    estimate - zq*se,
		Upper:    estimate + zq*se,
		PValue:   2 * distuv.UnitNormal.CDF(-math.Abs(z)),
		Gamma2:   sigmaU * sigmaU,
	}, nil
}

// clusterMode finds the mode of the random-effect conditional posterior
// of one cluster by Newton iteration on
//
//	h'(u) = sum - n*exp(eta+u) - u/gamma2.
//
// h is strictly concave in u, so the damped iteration converges fast.
func clusterMode(cs clusterStats, eta, gamma2 float64) (float64, bool) {
	u := 0.0
	for iter := 0; iter < 100; iter++ {
		ex := math.Exp(eta + u)
		if math.IsInf(ex, 0) {
			return 0, false
		}
		d1 := cs.sum - cs.n*ex - u/gamma2
		if math.Abs(d1) < 1e-9*(1+cs.sum) {
			return u, true
		}
		d2 := -cs.n*ex - 1/gamma2
		step := d1 / d2
		if step > 10 {
			step = 10
		} else if step < -10 {
			step = -10
		}
		u -= step
	}
	return u, finite(u)
}
