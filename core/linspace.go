package core

import (
	"iter"
	"math"
)

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// floatRangeLen is the number of values FloatRange yields.
func floatRangeLen(start, stop, step float64) int {
	if step == 0 {
		return 1
	}
	span := (stop - start) / step
	if math.IsNaN(span) || span < 0 {
		return 1
	}
	if math.IsInf(span, 1) || span > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(span) + 1
}

// FloatRange yields start, start+step, ... up to and including the last value
// that does not pass stop. It always yields at least start.
func FloatRange(start, stop, step float64) iter.Seq[float64] {
	n := floatRangeLen(start, stop, step)
	return func(yield func(float64) bool) {
		for i := 0; i < n; i++ {
			if !yield(start + step*float64(i)) {
				return
			}
		}
	}
}
