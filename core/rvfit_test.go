package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/starspot-simulator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFittersRecoverCentroid(t *testing.T) {
	rv, profile := gaussianDip(0.5)
	cases := []struct {
		name   string
		fitter RVFitter
		tol    float64
	}{
		{"quadratic", QuadraticFit{}, 1e-6},
		{"gaussian", GaussianFit{}, 1e-4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, 0.5, tc.fitter.FitRV(rv, profile), tc.tol)
		})
	}
}

func TestFittersAgreeOnReferenceLine(t *testing.T) {
	quiet, spot := ReferenceProfiles()
	for _, p := range []*Profile{quiet, spot} {
		q := QuadraticFit{}.FitRV(p.RV(), p.CCF())
		g := GaussianFit{}.FitRV(p.RV(), p.CCF())
		assert.InDelta(t, q, g, 5, "quadratic %v vs gaussian %v", q, g)
	}
	assert.InDelta(t, 350, GaussianFit{}.FitRV(spot.RV(), spot.CCF()), 1e-3)
}

func TestQuadraticFitNearEdge(t *testing.T) {
	rv := Linspace(0, 1, 20)
	profile := make([]float64, len(rv))
	for i, x := range rv {
		profile[i] = (x - 0.02) * (x - 0.02)
	}
	// The window slides inward; an exact parabola is still recovered.
	assert.InDelta(t, 0.02, QuadraticFit{}.FitRV(rv, profile), 1e-9)
}

func TestFittersHandleDegenerateInput(t *testing.T) {
	assert.True(t, math.IsNaN(QuadraticFit{}.FitRV(nil, nil)))
	assert.True(t, math.IsNaN(GaussianFit{}.FitRV(nil, nil)))
	assert.Equal(t, 1.0, QuadraticFit{}.FitRV([]float64{0, 1}, []float64{1, 0}))
}

func TestNewRVFitter(t *testing.T) {
	f, err := NewRVFitter("")
	require.NoError(t, err)
	assert.IsType(t, QuadraticFit{}, f)

	f, err = NewRVFitter(model.RVFitGaussian)
	require.NoError(t, err)
	assert.IsType(t, GaussianFit{}, f)

	_, err = NewRVFitter("cubic")
	assert.ErrorContains(t, err, "cubic")
}
