package core

import (
	"math"
	"sync"
)

// Reference line profiles. The velocity grid spans ±20 km/s in 100 m/s steps.
// The quiet-photosphere line is a Gaussian dip with a solar-like width; the
// spot line is shallower and broader and sits redward because convective
// blueshift is suppressed inside spots.
const (
	referenceRVMin     = -2.0e4
	referenceRVMax     = 2.0e4
	referenceRVSamples = 401

	quietLineDepth  = 0.55
	quietLineSigma  = 2900.0
	quietLineCenter = 0.0

	spotLineDepth  = 0.45
	spotLineSigma  = 3200.0
	spotLineCenter = 350.0
)

var (
	referenceOnce  sync.Once
	referenceQuiet *Profile
	referenceSpot  *Profile
)

// ReferenceProfiles returns the shared quiet and spot reference profiles.
func ReferenceProfiles() (quiet, spot *Profile) {
	referenceOnce.Do(func() {
		rv := Linspace(referenceRVMin, referenceRVMax, referenceRVSamples)
		referenceQuiet = NewProfile(rv, gaussianLine(rv, quietLineDepth, quietLineCenter, quietLineSigma))
		referenceSpot = NewProfile(rv, gaussianLine(rv, spotLineDepth, spotLineCenter, spotLineSigma))
	})
	return referenceQuiet, referenceSpot
}

func gaussianLine(rv []float64, depth, center, sigma float64) []float64 {
	out := make([]float64, len(rv))
	for i, v := range rv {
		d := (v - center) / sigma
		out[i] = 1 - depth*math.Exp(-0.5*d*d)
	}
	return out
}
