package model

// SpotConfig places a circular spot on the star. Latitude is 0 at the equator;
// both angles are in degrees.
type SpotConfig struct {
	Latitude   float64 `toml:"latitude" yaml:"latitude" json:"latitude"`
	Longitude  float64 `toml:"longitude" yaml:"longitude" json:"longitude"`
	FillFactor float64 `toml:"fill_factor" yaml:"fill_factor" json:"fill_factor"`
	Plage      bool    `toml:"plage" yaml:"plage" json:"plage"`

	// Temperature overrides the star temperature minus spot_temp_diff.
	Temperature *float64 `toml:"temperature,omitempty" yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// SpotRequiredKeys lists the keys every configured spot must define.
var SpotRequiredKeys = []string{"latitude", "longitude", "fill_factor"}
