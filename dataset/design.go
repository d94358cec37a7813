package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// TermPair is one treatment-by-covariate interaction term.
type TermPair struct {
	Treatment string
	Covariate string
}

// Name returns the design-matrix column name of the interaction term.
func (p TermPair) Name() string { return p.Treatment + ":" + p.Covariate }

// InteractionSpec enumerates the terms of the treatment-moderator model:
// every treatment and covariate as a main effect, plus the full set of
// treatment-by-covariate interactions. The pair list is built once from
// the schema rather than parsed from a formula at fit time.
type InteractionSpec struct {
	Treatments []string
	Covariates []string
	Pairs      []TermPair
}

// NewInteractionSpec builds the interaction spec for the given treatment
// indicators and covariates.
func NewInteractionSpec(treatments, covariates []string) InteractionSpec {
	pairs := make([]TermPair, 0, len(treatments)*len(covariates))
	for _, t := range treatments {
		for _, c := range covariates {
			pairs = append(pairs, TermPair{Treatment: t, Covariate: c})
		}
	}
	return InteractionSpec{Treatments: treatments, Covariates: covariates, Pairs: pairs}
}

// TermNames returns the design-matrix column names in order: treatments,
// covariates, then interaction pairs. There is no intercept column; the
// fitting routine carries an unpenalized intercept itself.
func (s InteractionSpec) TermNames() []string {
	names := make([]string, 0, len(s.Treatments)+len(s.Covariates)+len(s.Pairs))
	names = append(names, s.Treatments...)
	names = append(names, s.Covariates...)
	for _, p := range s.Pairs {
		names = append(names, p.Name())
	}
	return names
}

// BuildDesign constructs the model matrix for d under the interaction
// spec. The identical call on a train and a test split yields column-wise
// identical term layouts, which the scoring step relies on.
func BuildDesign(d *ImputedDataset, spec InteractionSpec) (*mat.Dense, []string, error) {
	names := spec.TermNames()
	rows := d.Rows()
	X := mat.NewDense(rows, len(names), nil)

	col := 0
	setColumn := func(values []float64) {
		for i, v := range values {
			X.Set(i, col, v)
		}
		col++
	}

	treatCols := make(map[string][]float64, len(spec.Treatments))
	for _, t := range spec.Treatments {
		values, err := d.Column(t)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "building design matrix: treatment %q", t)
		}
		treatCols[t] = values
		setColumn(values)
	}
	covCols := make(map[string][]float64, len(spec.Covariates))
	for _, c := range spec.Covariates {
		values, err := d.Column(c)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "building design matrix: covariate %q", c)
		}
		covCols[c] = values
		setColumn(values)
	}
	for _, p := range spec.Pairs {
		t := treatCols[p.Treatment]
		c := covCols[p.Covariate]
		if t == nil || c == nil {
			return nil, nil, errors.NewValidationError("Pairs", "interaction names a term outside the spec", p.Name())
		}
		product := make([]float64, rows)
		for i := range product {
			product[i] = t[i] * c[i]
		}
		setColumn(product)
	}

	return X, names, nil
}
