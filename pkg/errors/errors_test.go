package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewFitError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "fitPoissonGLMM",
			kind:     "optimizer failed",
			err:      fmt.Errorf("test error"),
			wantMsg:  "clintrials: fitPoissonGLMM: optimizer failed: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "fitNormalLMM",
			kind:     "degenerate between-cluster variance",
			err:      nil,
			wantMsg:  "clintrials: fitNormalLMM: degenerate between-cluster variance",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFitError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var fitErr *FitError
			if !As(err, &fitErr) {
				t.Error("Error should be castable to *FitError")
			}
			if tt.err != nil && !Is(err, tt.err) {
				t.Error("Is() should find the wrapped cause")
			}
		})
	}
}

func TestNewInfeasibleDesignError(t *testing.T) {
	err := NewInfeasibleDesignError(120, 2000, 20, 5, -4)

	want := "clintrials: infeasible design: 120 clusters with budget 2000.00 (c1=20.00, c1/c2=5.00) yields -4 observations per cluster, need >= 1"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var designErr *InfeasibleDesignError
	if !As(err, &designErr) {
		t.Fatal("Error should be castable to *InfeasibleDesignError")
	}
	if designErr.Clusters != 120 || designErr.ObsPerCluster != -4 {
		t.Errorf("structured fields lost: %+v", designErr)
	}
}

func TestNewDegenerateSplitError(t *testing.T) {
	tests := []struct {
		name    string
		split   string
		fold    int
		wantMsg string
	}{
		{
			name:    "fold split names the fold",
			split:   "fold",
			fold:    3,
			wantMsg: "clintrials: degenerate fold 3: 12 positives, 0 negatives",
		},
		{
			name:    "train split",
			split:   "train",
			fold:    -1,
			wantMsg: "clintrials: degenerate train split: 12 positives, 0 negatives",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDegenerateSplitError(tt.split, tt.fold, 12, 0)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			var splitErr *DegenerateSplitError
			if !As(err, &splitErr) {
				t.Fatal("Error should be castable to *DegenerateSplitError")
			}
			if splitErr.Split != tt.split {
				t.Errorf("Split = %q, want %q", splitErr.Split, tt.split)
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("AUC", 10, 8, 0)

	want := "clintrials: AUC: dimension mismatch on axis 0 (rows). Expected 10, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("TrainFraction", "must be in (0, 1)", 1.5)

	want := "clintrials: validation failed for parameter 'TrainFraction': must be in (0, 1) (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValidationError")
	}
}

func TestWarningHandler(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) {
		captured = append(captured, w)
	})
	defer SetWarningHandler(nil)

	warning := NewConvergenceWarning("PoissonGLMM", 17, "singular Hessian")
	Warn(warning)

	if len(captured) != 1 {
		t.Fatalf("handler received %d warnings, want 1", len(captured))
	}
	want := "PoissonGLMM failed to converge on simulation 17: singular Hessian"
	if captured[0].Error() != want {
		t.Errorf("warning = %v, want %v", captured[0], want)
	}

	// A nil handler drops warnings instead of panicking.
	SetWarningHandler(nil)
	Warn(warning)
}
