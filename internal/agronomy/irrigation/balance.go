// Package irrigation turns a soil snapshot into an irrigation urgency and a
// suggested application using the FAO-56 root-zone water balance.
package irrigation

import (
	"math"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// WaterBalance of the root zone. Depths are mm of water.
type WaterBalance struct {
	TAW          float64
	RAW          float64
	CurrentDepth float64
	FCDepth      float64
	Depletion    float64
	DepletionPct float64
	Stress       entities.StressLevel
}

// depthMM converts a VWC percentage over the root zone into mm of water.
func depthMM(vwc, rootCm float64) float64 { return vwc / 100 * rootCm * 10 }

// Balance computes TAW, RAW and the current depletion for a root zone.
func Balance(soil entities.SoilConstants, vwc, rootCm, mad float64) WaterBalance {
	taw := (soil.FieldCapacity - soil.WiltingPoint) / 100 * rootCm * 10
	b := WaterBalance{
		TAW:          taw,
		RAW:          mad * taw,
		CurrentDepth: depthMM(vwc, rootCm),
		FCDepth:      depthMM(soil.FieldCapacity, rootCm),
	}
	b.Depletion = math.Max(0, b.FCDepth-b.CurrentDepth)
	if taw > 0 {
		b.DepletionPct = b.Depletion / taw * 100
	}

	threshold := mad * 100
	switch {
	case vwc >= soil.FieldCapacity || b.DepletionPct <= threshold:
		b.Stress = entities.StressNone
	case b.DepletionPct <= 1.2*threshold:
		b.Stress = entities.StressMild
	case b.DepletionPct <= 1.5*threshold:
		b.Stress = entities.StressModerate
	default:
		b.Stress = entities.StressSevere
	}
	return b
}

// CurrentKc interpolates the crop coefficient along the stage thresholds.
func CurrentKc(c entities.CropParameters, stage entities.GrowthStage, cumulative float64) float64 {
	kc, th := c.Kc, c.Stages
	switch stage {
	case entities.StageDevelopment:
		return lerp(kc.Initial, kc.Mid, progress(cumulative, th.Initial, th.Development))
	case entities.StageMidSeason:
		return kc.Mid
	case entities.StageLateSeason, entities.StageHarvestReady:
		return lerp(kc.Mid, kc.End, progress(cumulative, th.MidSeason, th.LateSeason))
	default:
		return kc.Initial
	}
}

func progress(v, from, to float64) float64 {
	if to <= from {
		return 1
	}
	return math.Min(1, math.Max(0, (v-from)/(to-from)))
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
