// Package errors provides the error handling and warning system for the
// whole project. Analysis code distinguishes between hard errors (invalid
// input, infeasible designs) and warnings (replicates that had to be
// excluded from an aggregate), and both carry structured fields.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("clintrials-warning: %v\n", w)
	}
)

// SetWarningHandler sets the warning handler for the whole library.
// Drivers use warnings for replicates that are excluded from aggregates
// (non-converged fits, degenerate splits) rather than aborting a batch.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn raises a warning through the configured handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warning types
//
// ===========================================================================

// ConvergenceWarning is raised when a model fit fails to converge for a
// single simulated replicate. The replicate is excluded from aggregate
// statistics and counted, never folded in silently.
type ConvergenceWarning struct {
	Model      string
	Simulation int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge on simulation %d: %s", w.Model, w.Simulation, w.Message)
	}
	return fmt.Sprintf("%s failed to converge on simulation %d", w.Model, w.Simulation)
}

// MarshalZerologObject adds the structured warning fields to a zerolog event.
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", w.Model).
		Int("simulation", w.Simulation).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning creates a new ConvergenceWarning.
func NewConvergenceWarning(model string, simulation int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Model: model, Simulation: simulation, Message: message}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// InfeasibleDesignError reports a cluster-trial design whose derived
// per-cluster observation count falls below one: the budget cannot buy at
// least one observation in every cluster. The grid driver records it and
// continues with the remaining design points.
type InfeasibleDesignError struct {
	Clusters      int
	Budget        float64
	FirstCost     float64
	CostRatio     float64
	ObsPerCluster int
}

func (e *InfeasibleDesignError) Error() string {
	return fmt.Sprintf(
		"clintrials: infeasible design: %d clusters with budget %.2f (c1=%.2f, c1/c2=%.2f) yields %d observations per cluster, need >= 1",
		e.Clusters, e.Budget, e.FirstCost, e.CostRatio, e.ObsPerCluster)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *InfeasibleDesignError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("clusters", e.Clusters).
		Float64("budget", e.Budget).
		Float64("first_cost", e.FirstCost).
		Float64("cost_ratio", e.CostRatio).
		Int("obs_per_cluster", e.ObsPerCluster).
		Str("type", "InfeasibleDesignError")
}

// NewInfeasibleDesignError creates a new InfeasibleDesignError with a stack trace.
func NewInfeasibleDesignError(clusters int, budget, firstCost, costRatio float64, obsPerCluster int) error {
	err := &InfeasibleDesignError{
		Clusters:      clusters,
		Budget:        budget,
		FirstCost:     firstCost,
		CostRatio:     costRatio,
		ObsPerCluster: obsPerCluster,
	}
	return errors.WithStack(err)
}

// DegenerateSplitError reports a data split with fewer than two outcome
// classes, which makes AUC and cross-validated deviance undefined. The
// affected replicate is excluded from aggregation and counted.
type DegenerateSplitError struct {
	Split     string // "train", "test", or "fold"
	Fold      int    // fold index when Split == "fold", otherwise -1
	Positives int
	Negatives int
}

func (e *DegenerateSplitError) Error() string {
	if e.Split == "fold" {
		return fmt.Sprintf("clintrials: degenerate fold %d: %d positives, %d negatives", e.Fold, e.Positives, e.Negatives)
	}
	return fmt.Sprintf("clintrials: degenerate %s split: %d positives, %d negatives", e.Split, e.Positives, e.Negatives)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DegenerateSplitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("split", e.Split).
		Int("fold", e.Fold).
		Int("positives", e.Positives).
		Int("negatives", e.Negatives).
		Str("type", "DegenerateSplitError")
}

// NewDegenerateSplitError creates a new DegenerateSplitError with a stack trace.
func NewDegenerateSplitError(split string, fold, positives, negatives int) error {
	err := &DegenerateSplitError{Split: split, Fold: fold, Positives: positives, Negatives: negatives}
	return errors.WithStack(err)
}

// DimensionError reports an input whose dimensions differ from what an
// operation expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("clintrials: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a new DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError reports a parameter whose value fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("clintrials: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a new ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is unusable for an operation,
// for example an empty vector passed to a metric.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("clintrials: %s: %s", e.Op, e.Message)
}

// NewValueError creates a new ValueError with a stack trace.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// FitError reports a model-fitting failure for one replicate.
type FitError struct {
	Op   string
	Kind string
	Err  error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("clintrials: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("clintrials: %s: %s", e.Op, e.Kind)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// NewFitError creates a new FitError with a stack trace.
func NewFitError(op, kind string, err error) error {
	fitErr := &FitError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(fitErr)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As reports whether err can be cast to the target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to an error.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Common error values
//
// ===========================================================================

var (
	// ErrEmptyData is returned when empty data is passed to a procedure.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a matrix inversion fails.
	ErrSingularMatrix = New("singular matrix")
)
