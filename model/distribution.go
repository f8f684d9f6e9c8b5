package model

// DistributionName selects the family of a DistributionConfig.
type DistributionName string

const (
	DistributionStandardNormal DistributionName = "standard_normal"
	DistributionLogNormal      DistributionName = "lognormal"
	DistributionUniform        DistributionName = "uniform"
	DistributionNormal         DistributionName = "normal"
)

// DistributionConfig is the on-disk form of a random distribution, tagged by
// Name. Only the parameters of the named family are read.
type DistributionConfig struct {
	Name   DistributionName `toml:"name" yaml:"name" json:"name"`
	Mean   float64          `toml:"mean,omitempty" yaml:"mean,omitempty" json:"mean,omitempty"`
	StdDev float64          `toml:"std_dev,omitempty" yaml:"std_dev,omitempty" json:"std_dev,omitempty"`
	Min    float64          `toml:"min,omitempty" yaml:"min,omitempty" json:"min,omitempty"`
	Max    float64          `toml:"max,omitempty" yaml:"max,omitempty" json:"max,omitempty"`
}
