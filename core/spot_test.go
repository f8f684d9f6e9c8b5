package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/starspot-simulator/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpot(t *testing.T) {
	star := newTestStar(t, nil)
	spot := newTestSpot(t, star, 30, 180, 0.01)

	assert.InDelta(t, math.Pi/6, spot.Latitude, 1e-15)
	assert.InDelta(t, math.Pi, spot.Longitude, 1e-15)
	assert.InDelta(t, math.Sqrt(0.02), spot.Radius, 1e-15)
	assert.InDelta(t, 0.01, spot.FillFactor(), 1e-15)
	assert.Equal(t, 5778.0-663.0, spot.Temperature)
	assert.False(t, spot.Mortality.Mortal)
	assert.Same(t, star, spot.Star())

	hot := 6500.0
	plage, err := NewSpot(star, model.SpotConfig{FillFactor: 0.01, Plage: true, Temperature: &hot})
	require.NoError(t, err)
	assert.Equal(t, hot, plage.Temperature)
	assert.True(t, plage.Plage)
}

func TestNewSpotRejectsBadConfig(t *testing.T) {
	star := newTestStar(t, nil)
	zero := 0.0
	for name, cfg := range map[string]model.SpotConfig{
		"latitude":    {Latitude: 91, FillFactor: 0.01},
		"longitude":   {Longitude: math.Inf(1), FillFactor: 0.01},
		"no coverage": {FillFactor: 0},
		"too large":   {FillFactor: 0.6},
		"cold":        {FillFactor: 0.01, Temperature: &zero},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewSpot(star, cfg)
			assert.Error(t, err)
		})
	}
}

func TestSpotLifecycle(t *testing.T) {
	star := newTestStar(t, nil)
	spot := newTestSpot(t, star, 0, 0, 0.01)
	assert.True(t, spot.Alive(-1e6))
	assert.Equal(t, spot.Radius, spot.RadiusAt(123))

	spot.Mortality = Mortality{Mortal: true, Lifetime: Bounds{Lower: 10, Upper: 20}}
	assert.False(t, spot.Alive(9.99))
	assert.True(t, spot.Alive(10))
	assert.True(t, spot.Alive(20))
	assert.False(t, spot.Alive(20.01))

	cases := []struct {
		t    float64
		want float64
	}{
		{10, 0},
		{10.5, 0.5},
		{11, 1},
		{15, 1},
		{19.5, 0.5},
		{20, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want*spot.Radius, spot.RadiusAt(tc.t), 1e-12, "t=%v", tc.t)
	}

	_, ok := spot.Shape(10).YBounds()
	assert.False(t, ok, "a spot of zero size covers nothing")
}

func TestSetBand(t *testing.T) {
	star := newTestStar(t, nil)
	spot := newTestSpot(t, star, 0, 0, 0.01)
	assert.Zero(t, spot.Intensity())

	spot.SetBand(model.VisibleBand)
	assert.InDelta(t, 0.5452, spot.Intensity(), 1e-3)

	spot.SetBand(model.WavelengthBand{Min: 10000e-10, Max: 20000e-10})
	assert.Greater(t, spot.Intensity(), 0.5452, "spots are brighter relative to the star in the infrared")

	spot.Temperature = star.Temperature
	spot.SetBand(model.VisibleBand)
	assert.InDelta(t, 1, spot.Intensity(), 1e-12)
}

func TestSpotFlux(t *testing.T) {
	star := newTestStar(t, nil)
	front := newTestSpot(t, star, 0, 0, 0.01)
	back := newTestSpot(t, star, 0, 180, 0.01)
	front.SetBand(model.VisibleBand)
	back.SetBand(model.VisibleBand)

	assert.Zero(t, back.Flux(0))
	f := front.Flux(0)
	assert.Positive(t, f)
	assert.Less(t, f/star.FluxQuiet, 0.05)

	front.Temperature = star.Temperature
	front.hasBand = false
	front.SetBand(model.VisibleBand)
	assert.InDelta(t, 0, front.Flux(0), 1e-12, "a spot at photosphere temperature removes no light")
}

func TestSpotCCF(t *testing.T) {
	star := newTestStar(t, nil)
	front := newTestSpot(t, star, 0, 0, 0.01)
	back := newTestSpot(t, star, 0, 180, 0.01)
	front.SetBand(model.VisibleBand)
	back.SetBand(model.VisibleBand)

	for _, v := range back.CCF(0) {
		require.Zero(t, v)
	}
	ccf := front.CCF(0)
	require.Len(t, ccf, star.ProfileQuiet.Len())
	// Far from the line both profiles sit near the continuum, so the change is
	// the flux deficit up to what the broad spot line still absorbs there.
	assert.InEpsilon(t, front.Flux(0), ccf[0], 1e-8)

	assert.Panics(t, func() { front.AccumulateCCF(0, make([]float64, 3)) })
}
