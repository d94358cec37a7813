package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/clintrials/pkg/errors"
)

func TestAUC(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		scores  []float64
		want    float64
		wantErr bool
	}{
		{
			name:   "Perfect separation",
			yTrue:  []float64{0, 0, 0, 1, 1, 1},
			scores: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:   1.0,
		},
		{
			name:   "Perfectly wrong",
			yTrue:  []float64{1, 1, 1, 0, 0, 0},
			scores: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:   0.0,
		},
		{
			name:   "One misranked pair",
			yTrue:  []float64{0, 0, 1, 0, 1},
			scores: []float64{0.1, 0.2, 0.3, 0.4, 0.5},
			want:   5.0 / 6.0, // 5 of 6 (pos, neg) pairs correctly ordered
		},
		{
			name:   "Constant scores",
			yTrue:  []float64{0, 1, 0, 1},
			scores: []float64{0.5, 0.5, 0.5, 0.5},
			want:   0.5,
		},
		{
			name:    "Single-class labels",
			yTrue:   []float64{1, 1, 1},
			scores:  []float64{0.2, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			scores:  []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty input",
			yTrue:   nil,
			scores:  nil,
			wantErr: true,
		},
		{
			name:    "Non-binary label",
			yTrue:   []float64{0, 1, 2},
			scores:  []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.yTrue, tt.scores)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AUC() expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("AUC() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AUC() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAUCSingleClassIsDegenerateSplit(t *testing.T) {
	_, err := AUC([]float64{1, 1, 1}, []float64{0.1, 0.5, 0.9})
	var degenerate *errors.DegenerateSplitError
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected DegenerateSplitError, got %v", err)
	}
	if degenerate.Positives != 3 || degenerate.Negatives != 0 {
		t.Errorf("class counts = (%d, %d), want (3, 0)", degenerate.Positives, degenerate.Negatives)
	}
}

func TestAUCDoesNotReorderInputs(t *testing.T) {
	yTrue := []float64{0, 1, 0, 1}
	scores := []float64{0.9, 0.8, 0.1, 0.7}
	wantY := append([]float64(nil), yTrue...)
	wantScores := append([]float64(nil), scores...)

	if _, err := AUC(yTrue, scores); err != nil {
		t.Fatalf("AUC() unexpected error: %v", err)
	}
	for i := range yTrue {
		if yTrue[i] != wantY[i] || scores[i] != wantScores[i] {
			t.Fatal("AUC() mutated its inputs")
		}
	}
}

func TestROCCurveEndpoints(t *testing.T) {
	points, auc, err := ROC([]float64{0, 0, 1, 1}, []float64{0.2, 0.4, 0.6, 0.8})
	if err != nil {
		t.Fatalf("ROC() unexpected error: %v", err)
	}
	if auc != 1.0 {
		t.Errorf("AUC = %v, want 1", auc)
	}
	first := points[0]
	last := points[len(points)-1]
	if first.FPR != 0 || last.FPR != 1 || last.TPR != 1 {
		t.Errorf("curve endpoints = (%v,%v)..(%v,%v)", first.FPR, first.TPR, last.FPR, last.TPR)
	}
}

func TestBinomialDeviance(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		probs   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Half probabilities",
			yTrue: []float64{0, 1},
			probs: []float64{0.5, 0.5},
			want:  -2 * math.Log(0.5),
		},
		{
			name:  "Confident and correct",
			yTrue: []float64{1, 0},
			probs: []float64{0.9, 0.1},
			want:  -2 * math.Log(0.9),
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			probs:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty input",
			yTrue:   nil,
			probs:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinomialDeviance(tt.yTrue, tt.probs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BinomialDeviance() expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BinomialDeviance() unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BinomialDeviance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinomialDevianceSaturatedPredictionIsFinite(t *testing.T) {
	dev, err := BinomialDeviance([]float64{1, 0}, []float64{0, 1})
	if err != nil {
		t.Fatalf("BinomialDeviance() unexpected error: %v", err)
	}
	if math.IsInf(dev, 0) || math.IsNaN(dev) {
		t.Errorf("BinomialDeviance() = %v, want finite", dev)
	}
}
