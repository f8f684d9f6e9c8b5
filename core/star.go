package core

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/starspot-simulator/model"
	"gonum.org/v1/gonum/floats"
)

// ImageSize is the edge length in pixels of rendered frames.
const ImageSize = 1000

// Star holds the physical parameters of the host star together with state
// derived once at construction: the disk-integrated quiet line profile and
// the total quiet flux. A Star is read-only after NewStar returns and may be
// shared by any number of spots and goroutines.
type Star struct {
	Period        float64 // days
	Inclination   float64 // radians
	Temperature   float64 // kelvin
	SpotTempDiff  float64 // kelvin
	LimbLinear    float64
	LimbQuadratic float64
	GridSize      int

	FluxQuiet          float64
	EquatorialVelocity float64 // m/s, projected by sin(inclination)
	TargetFillFactor   float64

	IntegratedCCF []float64
	ProfileQuiet  *Profile
	ProfileSpot   *Profile

	LatitudeDistribution   Distribution
	LongitudeDistribution  Distribution
	FillFactorDistribution Distribution
	LifetimeDistribution   Distribution

	diskOnce  sync.Once
	diskImage []byte // RGBA, ImageSize×ImageSize
}

// NewStar validates cfg and integrates the quiet star over the disk.
func NewStar(cfg model.StarConfig) (*Star, error) {
	if err := validateStarConfig(cfg); err != nil {
		return nil, err
	}

	edgeVelocity := 2 * math.Pi * cfg.Radius * SolarRadius / (cfg.Period * DaysToSeconds)
	inclination := cfg.Inclination * math.Pi / 180
	equatorialVelocity := edgeVelocity * math.Sin(inclination)

	quiet, spot := ReferenceProfiles()

	star := &Star{
		Period:             cfg.Period,
		Inclination:        inclination,
		Temperature:        cfg.Temperature,
		SpotTempDiff:       cfg.SpotTempDiff,
		LimbLinear:         cfg.LimbLinear,
		LimbQuadratic:      cfg.LimbQuadratic,
		GridSize:           cfg.GridSize,
		EquatorialVelocity: equatorialVelocity,
		TargetFillFactor:   cfg.FillFactorTarget(),
		ProfileQuiet:       quiet,
		ProfileSpot:        spot,
	}

	var err error
	if star.LatitudeDistribution, err = distributionOrDefault(cfg.LatitudeDistribution, DefaultLatitudeDistribution); err != nil {
		return nil, fmt.Errorf("latitude_distribution: %w", err)
	}
	if star.LongitudeDistribution, err = distributionOrDefault(cfg.LongitudeDistribution, DefaultLongitudeDistribution); err != nil {
		return nil, fmt.Errorf("longitude_distribution: %w", err)
	}
	if star.FillFactorDistribution, err = distributionOrDefault(cfg.FillFactorDistribution, DefaultFillFactorDistribution); err != nil {
		return nil, fmt.Errorf("fillfactor_distribution: %w", err)
	}
	if star.LifetimeDistribution, err = distributionOrDefault(cfg.LifetimeDistribution, DefaultLifetimeDistribution); err != nil {
		return nil, fmt.Errorf("lifetime_distribution: %w", err)
	}

	star.integrate()
	return star, nil
}

// integrate accumulates the quiet flux and the Doppler-broadened quiet line
// over GridSize chords of the disk.
func (s *Star) integrate() {
	s.IntegratedCCF = make([]float64, s.ProfileQuiet.Len())
	shifted := make([]float64, s.ProfileQuiet.Len())

	for _, y := range Linspace(-1, 1, s.GridSize) {
		zBound := math.Sqrt(1 - y*y)
		if !(zBound >= epsilon) {
			continue
		}
		s.ProfileQuiet.ShiftInto(y*s.EquatorialVelocity, shifted)
		weight := s.LimbIntegral(Bounds{Lower: -zBound, Upper: zBound}, y)
		floats.AddScaled(s.IntegratedCCF, weight, shifted)
		s.FluxQuiet += weight
	}
}

// epsilon is the float64 machine epsilon.
const epsilon = 2.220446049250313e-16

// LimbIntegral integrates the limb-darkened intensity along z at fixed y
// between zBounds, in closed form.
func (s *Star) LimbIntegral(zBounds Bounds, y float64) float64 {
	return LimbIntegral(zBounds, y, s.LimbLinear, s.LimbQuadratic)
}

// LimbBrightness evaluates the quadratic limb-darkening law at mu, the cosine
// of the angle from disk centre.
func (s *Star) LimbBrightness(mu float64) float64 {
	return 1 - s.LimbLinear*(1-mu) - s.LimbQuadratic*(1-mu)*(1-mu)
}

// LimbIntegral is the antiderivative of I(mu) = 1 - u1(1-mu) - u2(1-mu)^2 over z
// at fixed y, with mu = sqrt(1 - y^2 - z^2), evaluated between the bounds.
func LimbIntegral(zBounds Bounds, y, u1, u2 float64) float64 {
	if zBounds.Lower == zBounds.Upper {
		return 0
	}
	v := (limbAntiderivative(zBounds.Upper, y, u1, u2) - limbAntiderivative(zBounds.Lower, y, u1, u2)) / 6
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func limbAntiderivative(z, y, u1, u2 float64) float64 {
	y2 := y * y
	x := math.Sqrt(1 - math.Min(z*z+y2, 1))
	return z*(3*u1*(x-2)+2*(u2*(3*x+3*y2+z*z-6)+3)) -
		3*(y2-1)*(u1+2*u2)*math.Atan2(z, x)
}

// drawDisk renders the quiet disk into an RGBA buffer. It runs once per star.
func (s *Star) drawDisk() []byte {
	s.diskOnce.Do(func() {
		img := make([]byte, 4*ImageSize*ImageSize)
		c := TemperatureColor(s.Temperature)
		coords := Linspace(-1, 1, ImageSize)
		for row := 0; row < ImageSize; row++ {
			z := -coords[row]
			for col := 0; col < ImageSize; col++ {
				y := coords[col]
				r2 := y*y + z*z
				i := 4 * (row*ImageSize + col)
				img[i+3] = 255
				if r2 > 1 {
					continue
				}
				b := s.LimbBrightness(math.Sqrt(1 - r2))
				img[i] = channel(float64(c.R) * b)
				img[i+1] = channel(float64(c.G) * b)
				img[i+2] = channel(float64(c.B) * b)
			}
		}
		s.diskImage = img
	})
	return s.diskImage
}

// DrawRGBA copies the quiet disk into buf, which must hold ImageSize×ImageSize
// RGBA pixels.
func (s *Star) DrawRGBA(buf []byte) error {
	if len(buf) != 4*ImageSize*ImageSize {
		return fmt.Errorf("DrawRGBA: buffer length %d, want %d", len(buf), 4*ImageSize*ImageSize)
	}
	copy(buf, s.drawDisk())
	return nil
}

func rgbaToBGR(src, dst []byte) {
	for p, q := 0, 0; p < len(src); p, q = p+4, q+3 {
		dst[q] = src[p+2]
		dst[q+1] = src[p+1]
		dst[q+2] = src[p]
	}
}

var errStarConfig = errors.New("invalid star configuration")

func validateStarConfig(cfg model.StarConfig) error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

	check(cfg.GridSize >= 2, "grid_size must be at least 2, got %d", cfg.GridSize)
	check(finite(cfg.Radius) && cfg.Radius > 0, "radius must be positive, got %v", cfg.Radius)
	check(finite(cfg.Period) && cfg.Period > 0, "period must be positive, got %v", cfg.Period)
	check(finite(cfg.Inclination), "inclination must be finite, got %v", cfg.Inclination)
	check(finite(cfg.Temperature) && cfg.Temperature > 0, "temperature must be positive, got %v", cfg.Temperature)
	check(finite(cfg.SpotTempDiff) && cfg.SpotTempDiff < cfg.Temperature,
		"spot_temp_diff must be below the star temperature, got %v", cfg.SpotTempDiff)
	check(finite(cfg.LimbLinear), "limb_linear must be finite, got %v", cfg.LimbLinear)
	check(finite(cfg.LimbQuadratic), "limb_quadratic must be finite, got %v", cfg.LimbQuadratic)
	if cfg.MinimumFillFactor != nil {
		v := *cfg.MinimumFillFactor
		check(finite(v) && v >= 0 && v < 1, "minimum_fill_factor must be in [0, 1), got %v", v)
	}
	if cfg.TargetFillFactor != nil {
		v := *cfg.TargetFillFactor
		check(finite(v) && v >= 0 && v < 1, "target_fill_factor must be in [0, 1), got %v", v)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", errStarConfig, errors.Join(problems...))
}
