package core

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// Physical constants in SI units.
const (
	SpeedOfLight      = 299792458.0
	PlanckConstant    = 6.62606896e-34
	BoltzmannConstant = 1.380e-23

	SolarRadius   = 6.96e8
	DaysToSeconds = 86400.0
)

// planckNodes is the Gauss-Legendre order used for band integrals. The
// integrand is smooth over any optical band, so a fixed rule is exact to well
// below 1e-9 relative.
const planckNodes = 64

// Planck returns the blackbody spectral radiance at wavelength (m) and
// temperature (K).
func Planck(wavelength, temperature float64) float64 {
	hc := PlanckConstant * SpeedOfLight
	return 2 * hc * SpeedOfLight / (math.Pow(wavelength, 5) * math.Expm1(hc/(wavelength*BoltzmannConstant*temperature)))
}

// PlanckIntegral integrates Planck over the band between two wavelengths,
// given in either order.
func PlanckIntegral(temperature, wavelengthA, wavelengthB float64) float64 {
	band := NewBounds(wavelengthA, wavelengthB)
	if band.Width() == 0 {
		return 0
	}
	return quad.Fixed(func(l float64) float64 {
		return Planck(l, temperature)
	}, band.Lower, band.Upper, planckNodes, quad.Legendre{}, 0)
}
