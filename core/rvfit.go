package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/starspot-simulator/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RVFitter estimates the line-centre velocity of an absorption profile.
type RVFitter interface {
	FitRV(rv, ccf []float64) float64
}

// NewRVFitter returns the fitter for method. The empty method selects the
// quadratic fit.
func NewRVFitter(method model.RVFitMethod) (RVFitter, error) {
	switch method {
	case "", model.RVFitQuadratic:
		return QuadraticFit{}, nil
	case model.RVFitGaussian:
		return GaussianFit{}, nil
	default:
		return nil, fmt.Errorf("unknown rv_fit %q (want %s or %s)", method, model.RVFitQuadratic, model.RVFitGaussian)
	}
}

// quadraticWindow is the number of samples around the minimum the parabola
// is fitted to.
const quadraticWindow = 7

// QuadraticFit fits a parabola to the samples nearest the profile minimum and
// returns its vertex.
type QuadraticFit struct{}

// FitRV implements RVFitter.
func (QuadraticFit) FitRV(rv, ccf []float64) float64 {
	n := len(ccf)
	if n == 0 || len(rv) != n {
		return math.NaN()
	}
	minIdx := floats.MinIdx(ccf)
	if n < 3 {
		return rv[minIdx]
	}

	lo := minIdx - quadraticWindow/2
	hi := lo + quadraticWindow
	if lo < 0 {
		lo, hi = 0, min(quadraticWindow, n)
	}
	if hi > n {
		lo, hi = max(n-quadraticWindow, 0), n
	}

	// Normal equations in x - x0 keep the system well scaled.
	x0 := rv[minIdx]
	var sums [5]float64
	var rhs [3]float64
	for i := lo; i < hi; i++ {
		x := rv[i] - x0
		xp := 1.0
		for k := range sums {
			sums[k] += xp
			if k < len(rhs) {
				rhs[k] += xp * ccf[i]
			}
			xp *= x
		}
	}
	// Unknowns ordered (c, b, a) for y = a x² + b x + c.
	normal := mat.NewSymDense(3, []float64{
		sums[0], sums[1], sums[2],
		sums[1], sums[2], sums[3],
		sums[2], sums[3], sums[4],
	})
	var coef mat.VecDense
	if err := coef.SolveVec(normal, mat.NewVecDense(3, rhs[:])); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return x0
		}
	}
	a, b := coef.AtVec(2), coef.AtVec(1)
	if !(a > 0) {
		return x0
	}
	return x0 - b/(2*a)
}

const (
	gaussianMaxIterations = 100
	gaussianTolerance     = 1e-5
)

// GaussianFit fits offset + height·exp(-(x-centroid)²/(2·width²)) by
// Levenberg-Marquardt and returns the centroid.
type GaussianFit struct{}

// FitRV implements RVFitter.
func (GaussianFit) FitRV(rv, ccf []float64) float64 {
	n := len(ccf)
	if n == 0 || len(rv) != n {
		return math.NaN()
	}
	minIdx := floats.MinIdx(ccf)
	if n < 4 {
		return rv[minIdx]
	}
	p := gaussianInitialGuess(rv, ccf, minIdx)
	p = levenbergMarquardt(rv, ccf, p)
	if math.IsNaN(p[1]) || math.IsInf(p[1], 0) {
		return rv[minIdx]
	}
	return p[1]
}

// gaussianParams is (height, centroid, width, offset).
type gaussianParams [4]float64

func gaussianInitialGuess(rv, ccf []float64, minIdx int) gaussianParams {
	offset := floats.Max(ccf)
	height := ccf[minIdx] - offset
	half := offset + height/2

	width := math.Abs(rv[len(rv)-1]-rv[0]) / 10
	lo, hi := minIdx, minIdx
	for lo > 0 && ccf[lo] < half {
		lo--
	}
	for hi < len(ccf)-1 && ccf[hi] < half {
		hi++
	}
	if fwhm := math.Abs(rv[hi] - rv[lo]); fwhm > 0 {
		width = fwhm / (2 * math.Sqrt(2*math.Ln2))
	}
	return gaussianParams{height, rv[minIdx], width, offset}
}

func (p gaussianParams) eval(x float64) (value float64, grad [4]float64) {
	height, centroid, width, offset := p[0], p[1], p[2], p[3]
	dx := x - centroid
	e := math.Exp(-dx * dx / (2 * width * width))
	grad[0] = e
	grad[1] = height * e * dx / (width * width)
	grad[2] = height * e * dx * dx / (width * width * width)
	grad[3] = 1
	return offset + height*e, grad
}

func (p gaussianParams) residual(rv, ccf []float64) float64 {
	var sse float64
	for i, x := range rv {
		v, _ := p.eval(x)
		r := ccf[i] - v
		sse += r * r
	}
	return sse
}

// levenbergMarquardt refines p until the relative parameter step drops below
// gaussianTolerance or the iteration budget is spent.
func levenbergMarquardt(rv, ccf []float64, p gaussianParams) gaussianParams {
	lambda := 1e-3
	sse := p.residual(rv, ccf)

	jtj := mat.NewSymDense(4, nil)
	jtr := mat.NewVecDense(4, nil)
	damped := mat.NewSymDense(4, nil)
	var step mat.VecDense

	for iter := 0; iter < gaussianMaxIterations; iter++ {
		jtj.Zero()
		jtr.Zero()
		for i, x := range rv {
			v, g := p.eval(x)
			r := ccf[i] - v
			for j := 0; j < 4; j++ {
				jtr.SetVec(j, jtr.AtVec(j)+g[j]*r)
				for k := j; k < 4; k++ {
					jtj.SetSym(j, k, jtj.At(j, k)+g[j]*g[k])
				}
			}
		}

		accepted := false
		for attempt := 0; attempt < 10; attempt++ {
			damped.CopySym(jtj)
			for j := 0; j < 4; j++ {
				d := jtj.At(j, j)
				damped.SetSym(j, j, d+lambda*math.Max(d, 1e-12))
			}
			if err := step.SolveVec(damped, jtr); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					lambda *= 10
					continue
				}
			}
			var next gaussianParams
			for j := range next {
				next[j] = p[j] + step.AtVec(j)
			}
			if nextSSE := next.residual(rv, ccf); nextSSE <= sse {
				p, sse = next, nextSSE
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				break
			}
			lambda *= 10
		}
		if !accepted {
			return p
		}
		if relativeStep(step.RawVector().Data, p) < gaussianTolerance {
			return p
		}
	}
	return p
}

func relativeStep(step []float64, p gaussianParams) float64 {
	var num, den float64
	for j, s := range step {
		num += s * s
		den += p[j] * p[j]
	}
	if den == 0 {
		return math.Sqrt(num)
	}
	return math.Sqrt(num / den)
}
