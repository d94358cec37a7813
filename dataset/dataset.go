// Package dataset provides the in-memory table type shared by the
// analysis pipelines: one completed (imputed) version of a subject-level
// study table with named covariates, a binary outcome column and
// treatment indicator columns, together with the resampling and
// splitting operations the bootstrap procedure is built from.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

// Schema names the columns an imputed dataset must provide.
type Schema struct {
	// Outcome is the binary abstinence indicator column (0/1).
	Outcome string
	// Treatments are the treatment indicator columns (0/1 each,
	// mutually exclusive; all zero means control).
	Treatments []string
	// Covariates are the demographic, psychological and smoking-history
	// columns entering the model.
	Covariates []string
}

// Validate checks that the schema is usable.
func (s Schema) Validate() error {
	if s.Outcome == "" {
		return errors.NewValidationError("Outcome", "must be set", s.Outcome)
	}
	if len(s.Treatments) == 0 {
		return errors.NewValidationError("Treatments", "must name at least one treatment indicator", s.Treatments)
	}
	if len(s.Covariates) == 0 {
		return errors.NewValidationError("Covariates", "must name at least one covariate", s.Covariates)
	}
	seen := make(map[string]bool)
	for _, name := range s.columns() {
		if seen[name] {
			return errors.NewValidationError("Schema", "duplicate column name", name)
		}
		seen[name] = true
	}
	return nil
}

func (s Schema) columns() []string {
	cols := make([]string, 0, 1+len(s.Treatments)+len(s.Covariates))
	cols = append(cols, s.Outcome)
	cols = append(cols, s.Treatments...)
	cols = append(cols, s.Covariates...)
	return cols
}

// ImputedDataset is one completed version of the study table. It is
// immutable once constructed; resampling and splitting return new tables
// backed by copied data.
type ImputedDataset struct {
	schema Schema
	names  []string
	index  map[string]int
	data   *mat.Dense
}

// New constructs an ImputedDataset from column names and a row-per-subject
// matrix. Every column the schema names must be present.
func New(schema Schema, names []string, data *mat.Dense) (*ImputedDataset, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	rows, cols := data.Dims()
	if rows == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(names) != cols {
		return nil, errors.NewDimensionError("dataset.New", len(names), cols, 1)
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	for _, name := range schema.columns() {
		if _, ok := index[name]; !ok {
			return nil, errors.NewValidationError("names", "schema column missing from data", name)
		}
	}
	return &ImputedDataset{schema: schema, names: names, index: index, data: data}, nil
}

// Schema returns the dataset's column schema.
func (d *ImputedDataset) Schema() Schema { return d.schema }

// Rows returns the number of subjects.
func (d *ImputedDataset) Rows() int {
	r, _ := d.data.Dims()
	return r
}

// Column returns a copy of the named column.
func (d *ImputedDataset) Column(name string) ([]float64, error) {
	j, ok := d.index[name]
	if !ok {
		return nil, errors.NewValidationError("name", "no such column", name)
	}
	col := make([]float64, d.Rows())
	mat.Col(col, j, d.data)
	return col, nil
}

// Outcome returns a copy of the binary outcome column.
func (d *ImputedDataset) Outcome() []float64 {
	col, _ := d.Column(d.schema.Outcome) // schema validated at construction
	return col
}

// GroupLabels returns the treatment-group label of every subject:
// 0 for control, i for subjects with the i-th treatment indicator set
// (1-based). Splits and folds stratify on these labels.
func (d *ImputedDataset) GroupLabels() []int {
	labels := make([]int, d.Rows())
	for t, name := range d.schema.Treatments {
		col, _ := d.Column(name)
		for i, v := range col {
			if v != 0 {
				labels[i] = t + 1
			}
		}
	}
	return labels
}

// Subset returns a new dataset holding the given rows, in order. Indices
// may repeat, which is how bootstrap resamples are materialized.
func (d *ImputedDataset) Subset(indices []int) *ImputedDataset {
	_, cols := d.data.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		out.SetRow(i, d.data.RawRowView(idx))
	}
	return &ImputedDataset{schema: d.schema, names: d.names, index: d.index, data: out}
}
