package irrigation

import (
	"fmt"
	"math"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// DetermineUrgency walks the urgency ladder; the first matching rule wins.
// It also returns the reason for the caller to report.
func DetermineUrgency(vwc float64, crop entities.CropParameters, soil entities.SoilConstants, b WaterBalance) (entities.Urgency, string) {
	r := crop.VWC
	hasRange := !r.Unset()

	// 1. excess water
	if vwc >= soil.Saturation {
		return entities.UrgencyNone, fmt.Sprintf("soil saturated: VWC %.1f%% at or above saturation %.1f%%", vwc, soil.Saturation)
	}
	if hasRange && vwc > r.Max {
		return entities.UrgencyNone, fmt.Sprintf("VWC %.1f%% above crop maximum %.1f%%", vwc, r.Max)
	}

	if hasRange {
		// 2. deficit below the crop window
		if vwc < r.Min {
			deficit := r.Min - vwc
			u := entities.UrgencyModerate
			switch {
			case deficit > 5:
				u = entities.UrgencyCritical
			case deficit > 3:
				u = entities.UrgencyHigh
			}
			return u, fmt.Sprintf("VWC %.1f%% below crop minimum %.1f%% by %.1f points", vwc, r.Min, deficit)
		}

		// 3. inside the window, by distance from the optimum
		half := (r.Max - r.Min) / 2
		rel := 0.0
		if half > 0 {
			rel = math.Abs(vwc-r.Optimal) / half
		} else if vwc != r.Optimal {
			rel = 1
		}
		switch {
		case rel <= 0.3:
			return entities.UrgencyNone, fmt.Sprintf("VWC %.1f%% within optimal band around %.1f%%", vwc, r.Optimal)
		case rel <= 0.7:
			return entities.UrgencyLow, fmt.Sprintf("VWC %.1f%% near optimal %.1f%%", vwc, r.Optimal)
		default:
			return entities.UrgencyLow, fmt.Sprintf("VWC %.1f%% approaching range edge [%.1f, %.1f]", vwc, r.Min, r.Max)
		}
	}

	// 4. no crop window: compare depletion against MAD
	threshold := crop.MAD * 100
	msg := fmt.Sprintf("depletion %.1f%% of TAW against MAD %.0f%%", b.DepletionPct, threshold)
	switch {
	case b.DepletionPct > 1.3*threshold:
		return entities.UrgencyHigh, msg
	case b.DepletionPct > 1.1*threshold:
		return entities.UrgencyModerate, msg
	case b.DepletionPct > 0.8*threshold:
		return entities.UrgencyLow, msg
	default:
		return entities.UrgencyNone, msg
	}
}

// DecisionFor maps an urgency onto the advised action.
func DecisionFor(u entities.Urgency) entities.Decision {
	switch u {
	case entities.UrgencyCritical, entities.UrgencyHigh:
		return entities.DecisionIrrigateNow
	case entities.UrgencyModerate:
		return entities.DecisionIrrigateSoon
	default:
		return entities.DecisionDoNot
	}
}

// NextCheckHours is the re-evaluation delay for a decision.
func NextCheckHours(d entities.Decision) int {
	switch d {
	case entities.DecisionIrrigateNow:
		return 6
	case entities.DecisionIrrigateSoon:
		return 12
	default:
		return 24
	}
}
