package model

// Observation is the radial velocity and line bisector seen at one epoch.
// Both are in m/s relative to the quiet star.
type Observation struct {
	Time     float64   `json:"time"`
	RV       float64   `json:"rv"`
	Bisector []float64 `json:"bisector"`
}

// WavelengthBand is an observing passband in metres.
type WavelengthBand struct {
	Min float64 `toml:"min" yaml:"min" json:"min"`
	Max float64 `toml:"max" yaml:"max" json:"max"`
}

// VisibleBand is the 400-700 nm band used for drawing.
var VisibleBand = WavelengthBand{Min: 4000e-10, Max: 7000e-10}
