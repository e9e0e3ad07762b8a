// Package suitability ranks crops for a field's current conditions with a
// weighted multi-criteria score out of 100.
package suitability

import (
	"math"
	"strings"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// Criterion weights; they sum to 100.
const (
	WeightMoisture    = 30.0
	WeightTemperature = 25.0
	WeightSeason      = 20.0
	WeightSoil        = 15.0
	WeightGDD         = 10.0

	// SuitableThreshold is the minimum total for a crop to be called suitable.
	SuitableThreshold = 60.0

	// GDDPerDay is the assumed accumulation rate used to estimate crop duration.
	GDDPerDay = 15.0

	latePlantingShare = 0.25
)

// Environment is everything a crop is scored against.
type Environment struct {
	VWC            float64
	SoilTemp       float64
	Soil           entities.SoilConstants
	Season         catalog.SeasonPosition
	CurrentCrop    string
	AccumulatedGDD float64
}

// Score rates one crop. It is a pure function of its arguments.
func Score(crop entities.CropParameters, env Environment) messages.CropScore {
	sub := messages.SubScores{
		Moisture:    round2(moistureScore(crop, env)),
		Temperature: round2(temperatureScore(crop, env.SoilTemp)),
		Season:      round2(seasonScore(crop, env.Season.Season)),
		SoilTexture: round2(soilScore(crop, env.Soil.Texture)),
		GDD:         round2(gddScore(crop, env)),
	}
	total := round2(sub.Sum())
	return messages.CropScore{
		CropName:    crop.Name,
		TotalScore:  total,
		SubScores:   sub,
		Explanation: explain(crop, env, sub),
		Suitable:    total >= SuitableThreshold,
	}
}

func moistureScore(c entities.CropParameters, env Environment) float64 {
	const w = WeightMoisture
	vwc, soil := env.VWC, env.Soil
	switch {
	case vwc > soil.FieldCapacity:
		return 0.2 * w * math.Max(0, 1-(vwc-soil.FieldCapacity)/10)
	case vwc < soil.WiltingPoint:
		return 0
	}
	return windowScore(vwc, c.VWC, w, 0.6, 0.3, 10)
}

func temperatureScore(c entities.CropParameters, t float64) float64 {
	return windowScore(t, c.SoilTemp, WeightTemperature, 0.4, 0.4, 15)
}

// windowScore gives full weight within 1 unit of the optimum, falls linearly
// to floor×w at the range boundary, and outside the range decays from
// outsideCap×w to zero over cutoff units.
func windowScore(v float64, r entities.Range, w, floor, outsideCap, cutoff float64) float64 {
	if math.Abs(v-r.Optimal) <= 1 {
		return w
	}
	if r.Contains(v) {
		var d, span float64
		if v < r.Optimal {
			d, span = r.Optimal-v, r.Optimal-r.Min
		} else {
			d, span = v-r.Optimal, r.Max-r.Optimal
		}
		frac := 1.0
		if span > 0 {
			frac = math.Min(1, d/span)
		}
		return w * (1 - (1-floor)*frac)
	}
	d := r.Min - v
	if v > r.Max {
		d = v - r.Max
	}
	return outsideCap * w * math.Max(0, 1-d/cutoff)
}

func seasonMatches(c entities.CropParameters, s entities.Season) bool {
	return c.Perennial() || c.Season == s
}

func seasonScore(c entities.CropParameters, s entities.Season) float64 {
	if seasonMatches(c, s) {
		return WeightSeason
	}
	return 0
}

func soilScore(c entities.CropParameters, t entities.SoilTexture) float64 {
	if c.Prefers(t) {
		return WeightSoil
	}
	for _, adj := range catalog.AdjacentSoils(t) {
		if c.Prefers(adj) {
			return WeightSoil / 2
		}
	}
	return 0
}

type gddFit int

const (
	fitNone gddFit = iota
	fitLate
	fitInfeasible
	fitTight
	fitAmple
)

func gddFeasibility(c entities.CropParameters, env Environment) gddFit {
	if !seasonMatches(c, env.Season.Season) {
		return fitNone
	}
	total := c.Stages.Total()
	if env.CurrentCrop != "" && !strings.EqualFold(env.CurrentCrop, c.Name) &&
		env.AccumulatedGDD > latePlantingShare*total {
		return fitLate
	}
	if c.Perennial() {
		return fitAmple
	}
	ratio := float64(env.Season.RemainingDays()) / (total / GDDPerDay)
	switch {
	case ratio >= 1.1:
		return fitAmple
	case ratio >= 0.8:
		return fitTight
	default:
		return fitInfeasible
	}
}

func gddScore(c entities.CropParameters, env Environment) float64 {
	switch gddFeasibility(c, env) {
	case fitAmple:
		return WeightGDD
	case fitTight:
		return 0.6 * WeightGDD
	case fitLate:
		return 0.2 * WeightGDD
	default:
		return 0
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
