package core

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// BisectorSamples is the number of depth levels ComputeBisector evaluates.
const BisectorSamples = 1000

// ComputeBisector returns the line bisector of an absorption profile: the
// mean velocity of the two line wings at BisectorSamples depths from the line
// core up to the lower of the two wing tops. It returns nil when either wing
// has fewer than two samples.
func ComputeBisector(rv, profile []float64) []float64 {
	if len(rv) != len(profile) || len(profile) < 2 {
		return nil
	}
	minIdx := floats.MinIdx(profile)

	var right, left wing
	right.add(profile[minIdx], rv[minIdx])
	for i := minIdx; i+1 < len(profile) && profile[i+1] >= profile[i]; i++ {
		right.add(profile[i+1], rv[i+1])
	}
	left.add(profile[minIdx], rv[minIdx])
	for i := minIdx; i-1 >= 0 && profile[i-1] >= profile[i]; i-- {
		left.add(profile[i-1], rv[i-1])
	}
	if len(right.depth) < 2 || len(left.depth) < 2 {
		return nil
	}

	var rightFit, leftFit interp.FritschButland
	if err := rightFit.Fit(right.depth, right.rv); err != nil {
		return nil
	}
	if err := leftFit.Fit(left.depth, left.rv); err != nil {
		return nil
	}

	top := math.Min(right.depth[len(right.depth)-1], left.depth[len(left.depth)-1])
	levels := Linspace(profile[minIdx], top, BisectorSamples)
	out := make([]float64, len(levels))
	for i, d := range levels {
		out[i] = (rightFit.Predict(d) + leftFit.Predict(d)) / 2
	}
	return out
}

// wing collects one side of a line as a depth to velocity map. Depths must
// arrive in non-decreasing order; repeats are dropped so the interpolant sees
// strictly increasing abscissae.
type wing struct {
	depth []float64
	rv    []float64
}

func (w *wing) add(depth, rv float64) {
	if n := len(w.depth); n > 0 && depth <= w.depth[n-1] {
		return
	}
	w.depth = append(w.depth, depth)
	w.rv = append(w.rv, rv)
}
