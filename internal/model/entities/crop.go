package entities

import "strings"

// Season is a cropping season of the calendar, or SeasonPerennial for crops
// that are not tied to one.
type Season string

const (
	SeasonKharif    Season = "kharif"
	SeasonRabi      Season = "rabi"
	SeasonZaid      Season = "zaid"
	SeasonPerennial Season = "perennial"
)

func ParseSeason(v string) Season { return Season(strings.ToLower(strings.TrimSpace(v))) }

// Range is a {min, optimal, max} agronomic window.
type Range struct {
	Min     float64 `yaml:"min" json:"min"`
	Optimal float64 `yaml:"optimal" json:"optimal"`
	Max     float64 `yaml:"max" json:"max"`
}

func (r Range) Ordered() bool { return r.Min <= r.Optimal && r.Optimal <= r.Max }

// Unset reports a window that was never configured.
func (r Range) Unset() bool { return r.Min == 0 && r.Optimal == 0 && r.Max == 0 }

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// CropParameters are the agronomic constants of one crop.
type CropParameters struct {
	Name           string           `yaml:"name" json:"name"`
	Season         Season           `yaml:"season" json:"season"`
	Enabled        *bool            `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	BaseTemp       float64          `yaml:"base_temp" json:"base_temp"`
	UpperTemp      float64          `yaml:"upper_temp,omitempty" json:"upper_temp,omitempty"`
	SoilTemp       Range            `yaml:"soil_temp" json:"soil_temp"`
	VWC            Range            `yaml:"vwc" json:"vwc"`
	RootDepthCm    float64          `yaml:"root_depth_cm" json:"root_depth_cm"`
	MAD            float64          `yaml:"mad" json:"mad"`
	Kc             CropCoefficients `yaml:"kc" json:"kc"`
	Stages         StageThresholds  `yaml:"gdd_stages" json:"gdd_stages"`
	PreferredSoils []SoilTexture    `yaml:"preferred_soils" json:"preferred_soils"`
}

// IsEnabled treats a missing flag as enabled.
func (c CropParameters) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

func (c CropParameters) Perennial() bool { return c.Season == SeasonPerennial }

func (c CropParameters) Prefers(t SoilTexture) bool {
	for _, s := range c.PreferredSoils {
		if s == t {
			return true
		}
	}
	return false
}
