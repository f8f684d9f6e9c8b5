package model

// StarConfig describes the host star. Angles are in degrees, the period in
// days and the radius in solar radii.
type StarConfig struct {
	GridSize      int     `toml:"grid_size" yaml:"grid_size" json:"grid_size"`
	Radius        float64 `toml:"radius" yaml:"radius" json:"radius"`
	Period        float64 `toml:"period" yaml:"period" json:"period"`
	Inclination   float64 `toml:"inclination" yaml:"inclination" json:"inclination"`
	Temperature   float64 `toml:"temperature" yaml:"temperature" json:"temperature"`
	SpotTempDiff  float64 `toml:"spot_temp_diff" yaml:"spot_temp_diff" json:"spot_temp_diff"`
	LimbLinear    float64 `toml:"limb_linear" yaml:"limb_linear" json:"limb_linear"`
	LimbQuadratic float64 `toml:"limb_quadratic" yaml:"limb_quadratic" json:"limb_quadratic"`

	// MinimumFillFactor takes precedence over TargetFillFactor when both are set.
	MinimumFillFactor *float64 `toml:"minimum_fill_factor,omitempty" yaml:"minimum_fill_factor,omitempty" json:"minimum_fill_factor,omitempty"`
	TargetFillFactor  *float64 `toml:"target_fill_factor,omitempty" yaml:"target_fill_factor,omitempty" json:"target_fill_factor,omitempty"`

	LatitudeDistribution   *DistributionConfig `toml:"latitude_distribution,omitempty" yaml:"latitude_distribution,omitempty" json:"latitude_distribution,omitempty"`
	LongitudeDistribution  *DistributionConfig `toml:"longitude_distribution,omitempty" yaml:"longitude_distribution,omitempty" json:"longitude_distribution,omitempty"`
	FillFactorDistribution *DistributionConfig `toml:"fillfactor_distribution,omitempty" yaml:"fillfactor_distribution,omitempty" json:"fillfactor_distribution,omitempty"`
	LifetimeDistribution   *DistributionConfig `toml:"lifetime_distribution,omitempty" yaml:"lifetime_distribution,omitempty" json:"lifetime_distribution,omitempty"`
}

// StarRequiredKeys lists the star keys a configuration file must define.
var StarRequiredKeys = []string{
	"grid_size",
	"radius",
	"period",
	"inclination",
	"temperature",
	"spot_temp_diff",
	"limb_linear",
	"limb_quadratic",
}

// FillFactorTarget resolves the coverage the simulation maintains.
func (c StarConfig) FillFactorTarget() float64 {
	switch {
	case c.MinimumFillFactor != nil:
		return *c.MinimumFillFactor
	case c.TargetFillFactor != nil:
		return *c.TargetFillFactor
	default:
		return 0
	}
}
