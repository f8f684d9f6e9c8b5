package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/starspot-simulator/model"
)

// Mortality bounds the life of a spot. The zero value is an immortal spot.
type Mortality struct {
	Mortal   bool
	Lifetime Bounds // appearance and disappearance, in days
}

// Spot is a circular cool region on a Star. Geometry is fixed at creation;
// the band intensity is refreshed by SetBand before each observation.
type Spot struct {
	ID          string
	Latitude    float64 // radians
	Longitude   float64 // radians
	Radius      float64 // chord radius in stellar radii
	Temperature float64 // kelvin
	Plage       bool
	Mortality   Mortality

	star      *Star
	intensity float64
	band      model.WavelengthBand
	hasBand   bool
}

// NewSpot places a spot described by cfg on star. The spot starts immortal
// with zero intensity.
func NewSpot(star *Star, cfg model.SpotConfig) (*Spot, error) {
	if err := validateSpotConfig(cfg); err != nil {
		return nil, err
	}
	temperature := star.Temperature - star.SpotTempDiff
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	return &Spot{
		Latitude:    cfg.Latitude * math.Pi / 180,
		Longitude:   cfg.Longitude * math.Pi / 180,
		Radius:      math.Sqrt(2 * cfg.FillFactor),
		Temperature: temperature,
		Plage:       cfg.Plage,
		star:        star,
	}, nil
}

func validateSpotConfig(cfg model.SpotConfig) error {
	switch {
	case math.IsNaN(cfg.Latitude) || cfg.Latitude < -90 || cfg.Latitude > 90:
		return fmt.Errorf("latitude must be in [-90, 90], got %v", cfg.Latitude)
	case math.IsNaN(cfg.Longitude) || math.IsInf(cfg.Longitude, 0):
		return fmt.Errorf("longitude must be finite, got %v", cfg.Longitude)
	case !(cfg.FillFactor > 0) || cfg.FillFactor > 0.5:
		return fmt.Errorf("fill_factor must be in (0, 0.5], got %v", cfg.FillFactor)
	case cfg.Temperature != nil && !(*cfg.Temperature > 0):
		return fmt.Errorf("temperature must be positive, got %v", *cfg.Temperature)
	}
	return nil
}

// Star returns the star the spot lives on.
func (s *Spot) Star() *Star { return s.star }

// Intensity returns the spot to photosphere brightness ratio in the last band
// passed to SetBand.
func (s *Spot) Intensity() float64 { return s.intensity }

// FillFactor returns the share of the disk the full-size spot covers.
func (s *Spot) FillFactor() float64 { return s.Radius * s.Radius / 2 }

// SetBand recomputes the intensity ratio for band. It is a no-op when the
// band has not changed. Callers must not run it concurrently with readers of
// the same spot.
func (s *Spot) SetBand(band model.WavelengthBand) {
	if s.hasBand && s.band == band {
		return
	}
	s.intensity = PlanckIntegral(s.Temperature, band.Min, band.Max) /
		PlanckIntegral(s.star.Temperature, band.Min, band.Max)
	s.band, s.hasBand = band, true
}

// Alive reports whether the spot exists at time t. The lifetime is inclusive.
func (s *Spot) Alive(t float64) bool {
	return !s.Mortality.Mortal || s.Mortality.Lifetime.Contains(t)
}

// RadiusAt returns the radius at time t, ramping linearly from zero over the
// first and last tenth of a mortal spot's life.
func (s *Spot) RadiusAt(t float64) float64 {
	if !s.Mortality.Mortal {
		return s.Radius
	}
	growth := growthFraction * s.Mortality.Lifetime.Width()
	if growth <= 0 {
		return s.Radius
	}
	if d := math.Abs(t - s.Mortality.Lifetime.Lower); d < growth {
		return s.Radius * d / growth
	}
	if d := math.Abs(t - s.Mortality.Lifetime.Upper); d < growth {
		return s.Radius * d / growth
	}
	return s.Radius
}

// Shape returns the footprint of the spot at time t.
func (s *Spot) Shape(t float64) BoundingShape {
	return NewBoundingShape(s, t)
}

// Flux returns the flux the spot removes from the quiet disk at time t, in
// the units of Star.FluxQuiet.
func (s *Spot) Flux(t float64) float64 {
	shape := s.Shape(t)
	yb, ok := shape.YBounds()
	if !ok {
		return 0
	}
	var (
		sweep ZSweep
		spans [2]Bounds
		sum   float64
	)
	for y := range FloatRange(yb.Lower, yb.Upper, 2/float64(s.star.GridSize)) {
		sum += s.rowWeight(shape, y, &sweep, spans[:0])
	}
	return (1 - s.intensity) * sum
}

// rowWeight is the limb-darkened area the spot covers on row y.
func (s *Spot) rowWeight(shape BoundingShape, y float64, sweep *ZSweep, buf []Bounds) float64 {
	var weight float64
	for _, zb := range shape.ZSpans(y, sweep, buf) {
		weight += s.star.LimbIntegral(zb, y)
	}
	return weight
}

// AccumulateCCF adds the change the spot makes to the disk-integrated line at
// time t into out, which must have the reference profile length. The quiet
// line under the spot is added and the spot line weighted by intensity is
// subtracted, so the caller subtracts out from the quiet CCF.
func (s *Spot) AccumulateCCF(t float64, out []float64) {
	quiet, active := s.star.ProfileQuiet, s.star.ProfileSpot
	if len(out) != quiet.Len() {
		panic(fmt.Sprintf("core: ccf buffer length %d != profile length %d", len(out), quiet.Len()))
	}
	shape := s.Shape(t)
	yb, ok := shape.YBounds()
	if !ok {
		return
	}

	quietShifted := make([]float64, quiet.Len())
	activeShifted := make([]float64, active.Len())
	var (
		sweep ZSweep
		spans [2]Bounds
	)
	for y := range FloatRange(yb.Lower, yb.Upper, 2/float64(s.star.GridSize)) {
		weight := s.rowWeight(shape, y, &sweep, spans[:0])
		if weight == 0 {
			continue
		}
		v := y * s.star.EquatorialVelocity
		quiet.ShiftInto(v, quietShifted)
		active.ShiftInto(v, activeShifted)
		for i := range out {
			out[i] += (quietShifted[i] - s.intensity*activeShifted[i]) * weight
		}
	}
}

// CCF is AccumulateCCF into a fresh buffer.
func (s *Spot) CCF(t float64) []float64 {
	out := make([]float64, s.star.ProfileQuiet.Len())
	s.AccumulateCCF(t, out)
	return out
}

// CollidesWith reports whether the full-size footprints of s and other
// overlap when both are placed at t = 0.
func (s *Spot) CollidesWith(other *Spot) bool {
	return newBoundingShape(s, 0, s.Radius).CollidesWith(newBoundingShape(other, 0, other.Radius))
}
