package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/signalsfoundry/starspot-simulator/model"
	"gopkg.in/yaml.v3"
)

// Sentinel errors carried by ConfigError.
var (
	// ErrMissingField indicates a required key is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField indicates a key is present but unusable.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnsupportedFormat indicates a file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)

// ConfigError describes a configuration that could not be loaded. Example
// holds a valid configuration in TOML to show the user.
type ConfigError struct {
	Path    string
	Reason  string
	Err     error
	Example string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func newConfigError(path, reason string, err error) *ConfigError {
	return &ConfigError{Path: path, Reason: reason, Err: err, Example: ExampleConfigTOML()}
}

// ConfigFormat names a configuration encoding.
type ConfigFormat string

const (
	FormatTOML ConfigFormat = "toml"
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// FormatFromPath picks the encoding from the file extension. Files without
// an extension are read as TOML.
func FormatFromPath(path string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadSimulationConfig reads and validates the configuration at path.
func LoadSimulationConfig(path string) (model.SimulationConfig, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return model.SimulationConfig{}, newConfigError(path, "cannot choose a decoder", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SimulationConfig{}, newConfigError(path, "cannot read file", err)
	}
	cfg, err := ParseSimulationConfig(data, format)
	if err != nil {
		var cerr *ConfigError
		if errors.As(err, &cerr) {
			cerr.Path = path
			return model.SimulationConfig{}, cerr
		}
		return model.SimulationConfig{}, newConfigError(path, "", err)
	}
	return cfg, nil
}

// LoadSimulation loads the configuration at path and builds a Simulation.
func LoadSimulation(path string, opts ...Option) (*Simulation, error) {
	cfg, err := LoadSimulationConfig(path)
	if err != nil {
		return nil, err
	}
	sim, err := NewSimulation(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("LoadSimulation: %w", err)
	}
	return sim, nil
}

// ParseSimulationConfig decodes data in the given format, checks that every
// required key is present and validates the values.
func ParseSimulationConfig(data []byte, format ConfigFormat) (model.SimulationConfig, error) {
	var (
		cfg model.SimulationConfig
		raw map[string]any
	)
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, newConfigError("", "cannot decode toml", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, newConfigError("", "", fmt.Errorf("%w: unknown key %q", ErrInvalidField, undecoded[0].String()))
		}
		if !md.IsDefined("star") {
			return cfg, newConfigError("", "", fmt.Errorf("%w: star", ErrMissingField))
		}
		for _, key := range model.StarRequiredKeys {
			if !md.IsDefined("star", key) {
				return cfg, newConfigError("", "", fmt.Errorf("%w: star.%s", ErrMissingField, key))
			}
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return cfg, newConfigError("", "cannot decode toml", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, newConfigError("", "cannot decode yaml", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, newConfigError("", "cannot decode yaml", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, newConfigError("", "cannot decode json", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, newConfigError("", "cannot decode json", err)
		}
	default:
		return cfg, newConfigError("", "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format))
	}

	if err := checkRequiredKeys(raw); err != nil {
		return cfg, newConfigError("", "", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// checkRequiredKeys walks the generic decode of a document.
func checkRequiredKeys(raw map[string]any) error {
	star, ok := raw["star"].(map[string]any)
	if !ok {
		return fmt.Errorf("%w: star", ErrMissingField)
	}
	for _, key := range model.StarRequiredKeys {
		if _, ok := star[key]; !ok {
			return fmt.Errorf("%w: star.%s", ErrMissingField, key)
		}
	}

	var spots []map[string]any
	switch v := raw["spots"].(type) {
	case nil:
	case []map[string]any:
		spots = v
	case []any:
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: spots[%d] is not a table", ErrInvalidField, i)
			}
			spots = append(spots, m)
		}
	default:
		return fmt.Errorf("%w: spots must be a list of tables", ErrInvalidField)
	}
	for i, spot := range spots {
		for _, key := range model.SpotRequiredKeys {
			if _, ok := spot[key]; !ok {
				return fmt.Errorf("%w: spots[%d].%s", ErrMissingField, i, key)
			}
		}
	}
	return nil
}

// ValidateConfig checks the values of a decoded configuration.
func ValidateConfig(cfg model.SimulationConfig) error {
	if err := validateStarConfig(cfg.Star); err != nil {
		return newConfigError("", "star", fmt.Errorf("%w: %w", ErrInvalidField, err))
	}
	dists := []struct {
		key string
		cfg *model.DistributionConfig
	}{
		{"latitude_distribution", cfg.Star.LatitudeDistribution},
		{"longitude_distribution", cfg.Star.LongitudeDistribution},
		{"fillfactor_distribution", cfg.Star.FillFactorDistribution},
		{"lifetime_distribution", cfg.Star.LifetimeDistribution},
	}
	for _, d := range dists {
		if d.cfg == nil {
			continue
		}
		if _, err := NewDistribution(*d.cfg); err != nil {
			return newConfigError("", "star."+d.key, fmt.Errorf("%w: %w", ErrInvalidField, err))
		}
	}
	for i, spot := range cfg.Spots {
		if err := validateSpotConfig(spot); err != nil {
			return newConfigError("", fmt.Sprintf("spots[%d]", i), fmt.Errorf("%w: %w", ErrInvalidField, err))
		}
	}
	if _, err := NewRVFitter(cfg.RVFit); err != nil {
		return newConfigError("", "rv_fit", fmt.Errorf("%w: %w", ErrInvalidField, err))
	}
	return nil
}

// ExampleConfigTOML renders model.ExampleConfig as TOML.
func ExampleConfigTOML() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(model.ExampleConfig()); err != nil {
		// The example is a fixed value; encoding cannot fail.
		panic(fmt.Sprintf("core: encode example config: %v", err))
	}
	return buf.String()
}
