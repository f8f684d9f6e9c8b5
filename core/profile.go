package core

import (
	"fmt"
	"math"
)

// Profile is a cross-correlation function sampled on an evenly spaced radial
// velocity grid. It precomputes the forward-difference derivative so the line
// can be Doppler shifted by linear interpolation in O(1) per sample.
type Profile struct {
	rv         []float64
	ccf        []float64
	derivative []float64
	stepsize   float64
}

// NewProfile builds a Profile. rv and ccf must have the same length of at
// least two samples and rv must be evenly spaced; violations panic.
func NewProfile(rv, ccf []float64) *Profile {
	if len(rv) != len(ccf) {
		panic(fmt.Sprintf("core: profile rv/ccf length mismatch: %d != %d", len(rv), len(ccf)))
	}
	if len(rv) < 2 {
		panic(fmt.Sprintf("core: profile needs at least 2 samples, got %d", len(rv)))
	}
	step := rv[1] - rv[0]
	if step == 0 || math.IsNaN(step) {
		panic("core: profile rv grid is not strictly monotonic")
	}
	tol := 1e-9 * math.Abs(step)
	for i := 1; i < len(rv)-1; i++ {
		if math.Abs((rv[i+1]-rv[i])-step) > tol {
			panic(fmt.Sprintf("core: profile rv grid is not evenly spaced at index %d", i))
		}
	}

	derivative := make([]float64, len(ccf))
	for i := 0; i < len(ccf)-1; i++ {
		derivative[i] = (ccf[i] - ccf[i+1]) / (rv[i] - rv[i+1])
	}
	// derivative[len-1] stays 0.

	return &Profile{
		rv:         append([]float64(nil), rv...),
		ccf:        append([]float64(nil), ccf...),
		derivative: derivative,
		stepsize:   math.Abs(step),
	}
}

// Len returns the number of samples.
func (p *Profile) Len() int { return len(p.ccf) }

// RV returns the velocity grid. Callers must not modify it.
func (p *Profile) RV() []float64 { return p.rv }

// CCF returns the unshifted profile. Callers must not modify it.
func (p *Profile) CCF() []float64 { return p.ccf }

// Stepsize returns the grid spacing.
func (p *Profile) Stepsize() float64 { return p.stepsize }

// ShiftInto writes the profile Doppler shifted by velocity into out, which
// must have length Len. The shift is split into a whole number of grid steps
// and a sub-step remainder corrected with the derivative. Positions vacated
// by the whole-step shift repeat the nearest boundary sample of the profile.
func (p *Profile) ShiftInto(velocity float64, out []float64) {
	n := len(p.ccf)
	if len(out) != n {
		panic(fmt.Sprintf("core: shift output length %d != profile length %d", len(out), n))
	}
	quotient := math.Round(velocity / p.stepsize)
	remainder := velocity - quotient*p.stepsize

	var q int
	switch {
	case quotient >= float64(n):
		q = n
	case quotient <= -float64(n):
		q = -n
	default:
		q = int(quotient)
	}

	if q >= 0 {
		for i := 0; i < q; i++ {
			out[i] = p.ccf[0]
		}
		for i := 0; i < n-q; i++ {
			out[i+q] = p.ccf[i] - remainder*p.derivative[i]
		}
		return
	}

	s := -q
	for i := s; i < n; i++ {
		out[i-s] = p.ccf[i] - remainder*p.derivative[i]
	}
	for i := n - s; i < n; i++ {
		out[i] = p.ccf[n-1]
	}
}

// Shift is ShiftInto with a freshly allocated output.
func (p *Profile) Shift(velocity float64) []float64 {
	out := make([]float64, len(p.ccf))
	p.ShiftInto(velocity, out)
	return out
}
