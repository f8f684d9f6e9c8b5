package core

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/signalsfoundry/starspot-simulator/model"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution is one of StandardNormal, LogNormal, Uniform or Normal.
// Sampling is done by Sample, which switches on the concrete variant.
type Distribution interface {
	isDistribution()
}

// StandardNormal is the unit normal distribution.
type StandardNormal struct{}

// LogNormal is a distribution whose logarithm is normal with the given
// parameters.
type LogNormal struct {
	Mu, Sigma float64
}

// Uniform is the continuous uniform distribution on [Min, Max).
type Uniform struct {
	Min, Max float64
}

// Normal is the normal distribution.
type Normal struct {
	Mean, StdDev float64
}

func (StandardNormal) isDistribution() {}
func (LogNormal) isDistribution()      {}
func (Uniform) isDistribution()        {}
func (Normal) isDistribution()         {}

// Default spot-population distributions. Angles are in degrees, lifetimes in
// days; the fill-factor draw is scaled by fillFactorScale before use.
var (
	DefaultLatitudeDistribution   Distribution = Uniform{Min: -30, Max: 30}
	DefaultLongitudeDistribution  Distribution = Uniform{Min: 0, Max: 360}
	DefaultFillFactorDistribution Distribution = LogNormal{Mu: 0.5, Sigma: 4.0}
	DefaultLifetimeDistribution   Distribution = Uniform{Min: 10, Max: 20}
)

// NewDistribution converts a configuration entry into a Distribution.
func NewDistribution(cfg model.DistributionConfig) (Distribution, error) {
	switch cfg.Name {
	case model.DistributionStandardNormal:
		return StandardNormal{}, nil
	case model.DistributionLogNormal:
		if !(cfg.StdDev > 0) || math.IsInf(cfg.StdDev, 0) || math.IsNaN(cfg.Mean) {
			return nil, fmt.Errorf("lognormal distribution needs finite mean and std_dev > 0, got mean=%v std_dev=%v", cfg.Mean, cfg.StdDev)
		}
		return LogNormal{Mu: cfg.Mean, Sigma: cfg.StdDev}, nil
	case model.DistributionNormal:
		if !(cfg.StdDev > 0) || math.IsInf(cfg.StdDev, 0) || math.IsNaN(cfg.Mean) {
			return nil, fmt.Errorf("normal distribution needs finite mean and std_dev > 0, got mean=%v std_dev=%v", cfg.Mean, cfg.StdDev)
		}
		return Normal{Mean: cfg.Mean, StdDev: cfg.StdDev}, nil
	case model.DistributionUniform:
		if !(cfg.Min < cfg.Max) || math.IsInf(cfg.Min, 0) || math.IsInf(cfg.Max, 0) {
			return nil, fmt.Errorf("uniform distribution needs finite min < max, got min=%v max=%v", cfg.Min, cfg.Max)
		}
		return Uniform{Min: cfg.Min, Max: cfg.Max}, nil
	case "":
		return nil, fmt.Errorf("distribution is missing its name")
	default:
		return nil, fmt.Errorf("unknown distribution %q (want %s, %s, %s or %s)", cfg.Name,
			model.DistributionStandardNormal, model.DistributionLogNormal, model.DistributionUniform, model.DistributionNormal)
	}
}

// distributionOrDefault resolves an optional config entry.
func distributionOrDefault(cfg *model.DistributionConfig, def Distribution) (Distribution, error) {
	if cfg == nil {
		return def, nil
	}
	return NewDistribution(*cfg)
}

// Sample draws one value from d using src.
func Sample(d Distribution, src rand.Source) float64 {
	switch d := d.(type) {
	case StandardNormal:
		return distuv.Normal{Mu: 0, Sigma: 1, Src: src}.Rand()
	case LogNormal:
		return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
	case Uniform:
		return distuv.Uniform{Min: d.Min, Max: d.Max, Src: src}.Rand()
	case Normal:
		return distuv.Normal{Mu: d.Mean, Sigma: d.StdDev, Src: src}.Rand()
	default:
		panic(fmt.Sprintf("core: unknown distribution %T", d))
	}
}
