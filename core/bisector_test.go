package core

import (
	"math"
	"testing"
)

func gaussianDip(center float64) (rv, profile []float64) {
	rv = Linspace(-1, 1, 101)
	profile = make([]float64, len(rv))
	for i, x := range rv {
		profile[i] = -math.Exp(-(x - center) * (x - center))
	}
	return rv, profile
}

func TestBisectorOfSymmetricLineIsFlat(t *testing.T) {
	rv, profile := gaussianDip(0.5)
	bisector := ComputeBisector(rv, profile)
	if len(bisector) != BisectorSamples {
		t.Fatalf("len(bisector) = %d, want %d", len(bisector), BisectorSamples)
	}
	for i, v := range bisector[10:] {
		if math.Abs(v-0.5) > 1e-4 {
			t.Fatalf("bisector[%d] = %v, want 0.5 ± 1e-4", i+10, v)
		}
	}
}

func TestBisectorWingsIncludeTheCore(t *testing.T) {
	rv, profile := gaussianDip(0.5)
	bisector := ComputeBisector(rv, profile)
	// The first level is the minimum itself, shared by both wings.
	if bisector[0] != 0.5 {
		t.Fatalf("bisector[0] = %v, want the core velocity 0.5", bisector[0])
	}
}

func TestBisectorTiltsForAsymmetricLine(t *testing.T) {
	rv := Linspace(-1, 1, 201)
	profile := make([]float64, len(rv))
	for i, x := range rv {
		w := 0.3
		if x > 0 {
			w = 0.5
		}
		profile[i] = -math.Exp(-x * x / (2 * w * w))
	}
	bisector := ComputeBisector(rv, profile)
	if bisector == nil {
		t.Fatalf("ComputeBisector returned nil")
	}
	if !(bisector[len(bisector)-1] > bisector[100]) {
		t.Fatalf("bisector does not lean toward the broad wing: %v .. %v", bisector[100], bisector[len(bisector)-1])
	}
}

func TestBisectorNeedsTwoWings(t *testing.T) {
	rv := []float64{0, 1, 2, 3}
	rising := []float64{0, 1, 2, 3}
	if got := ComputeBisector(rv, rising); got != nil {
		t.Fatalf("ComputeBisector(monotone) = %v, want nil", got)
	}
	if got := ComputeBisector(rv, rising[:3]); got != nil {
		t.Fatalf("ComputeBisector(mismatched) = %v, want nil", got)
	}
}
