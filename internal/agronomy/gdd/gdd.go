// Package gdd accumulates growing degree days per field and derives the
// phenological stage from the running total.
package gdd

import (
	"math"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// DefaultCeiling caps the daily maximum when a crop has no upper temperature.
const DefaultCeiling = 30.0

// Daily computes GDD with the Method 2 cut-offs: both extremes are raised to
// base, and the maximum is capped at ceiling. The result is never negative.
func Daily(minTemp, maxTemp, base, ceiling float64) float64 {
	if minTemp < base {
		minTemp = base
	}
	if maxTemp < base {
		maxTemp = base
	}
	if maxTemp > ceiling {
		maxTemp = ceiling
	}
	// a ceiling below base must not pull the mean under base
	if maxTemp < base {
		maxTemp = base
	}
	return math.Max(0, (maxTemp+minTemp)/2-base)
}

// StageFor maps cumulative GDD onto the stage whose threshold has not been reached.
func StageFor(cumulative float64, t entities.StageThresholds) entities.GrowthStage {
	switch {
	case cumulative < t.Initial:
		return entities.StageInitial
	case cumulative < t.Development:
		return entities.StageDevelopment
	case cumulative < t.MidSeason:
		return entities.StageMidSeason
	case cumulative < t.LateSeason:
		return entities.StageLateSeason
	default:
		return entities.StageHarvestReady
	}
}

// Ceiling returns the crop's upper cut-off or def when it has none.
func Ceiling(p entities.CropParameters, def float64) float64 {
	if p.UpperTemp > 0 {
		return p.UpperTemp
	}
	if def > 0 {
		return def
	}
	return DefaultCeiling
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
