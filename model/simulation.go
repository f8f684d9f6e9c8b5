package model

// RVFitMethod names the line-centre estimator used for radial velocities.
type RVFitMethod string

const (
	RVFitQuadratic RVFitMethod = "quadratic"
	RVFitGaussian  RVFitMethod = "gaussian"
)

// SimulationConfig is the declarative description of a simulation run: one
// star, an optional list of spots and an optional RNG seed.
type SimulationConfig struct {
	Star  StarConfig   `toml:"star" yaml:"star" json:"star"`
	Spots []SpotConfig `toml:"spots,omitempty" yaml:"spots,omitempty" json:"spots,omitempty"`
	Seed  *Seed        `toml:"seed,omitempty" yaml:"seed,omitempty" json:"seed,omitempty"`
	RVFit RVFitMethod  `toml:"rv_fit,omitempty" yaml:"rv_fit,omitempty" json:"rv_fit,omitempty"`
}

// ExampleConfig returns a valid configuration modelled on the Sun with a
// single spot.
func ExampleConfig() SimulationConfig {
	minimum := 0.0
	return SimulationConfig{
		Star: StarConfig{
			GridSize:          1000,
			Radius:            1.0,
			Period:            25.05,
			Inclination:       90.0,
			Temperature:       5778.0,
			SpotTempDiff:      663.0,
			LimbLinear:        0.29,
			LimbQuadratic:     0.34,
			MinimumFillFactor: &minimum,
		},
		Spots: []SpotConfig{
			{Latitude: 30.0, Longitude: 180.0, FillFactor: 0.01},
		},
		RVFit: RVFitQuadratic,
	}
}

// SunConfig is ExampleConfig without spots.
func SunConfig() SimulationConfig {
	cfg := ExampleConfig()
	cfg.Spots = nil
	return cfg
}
