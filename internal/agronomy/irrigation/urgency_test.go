package irrigation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

func maizeCrop() entities.CropParameters {
	return entities.CropParameters{
		Name:        "maize",
		Season:      entities.SeasonKharif,
		BaseTemp:    10,
		VWC:         entities.Range{Min: 20, Optimal: 28, Max: 35},
		RootDepthCm: 100,
		MAD:         0.55,
		Kc:          entities.CropCoefficients{Initial: 0.3, Mid: 1.2, End: 0.6},
		Stages:      entities.StageThresholds{Initial: 200, Development: 700, MidSeason: 1300, LateSeason: 1700},
	}
}

func urgencyAt(vwc float64, c entities.CropParameters, soil entities.SoilConstants) (entities.Urgency, string) {
	return DetermineUrgency(vwc, c, soil, Balance(soil, vwc, c.RootDepthCm, c.MAD))
}

func TestDetermineUrgencyLadder(t *testing.T) {
	maize := maizeCrop()
	cases := []struct {
		vwc    float64
		want   entities.Urgency
		reason string
	}{
		{46, entities.UrgencyNone, "saturated"},
		{36, entities.UrgencyNone, "above crop maximum"},
		{14, entities.UrgencyCritical, "below crop minimum"},
		{16, entities.UrgencyHigh, "below crop minimum"},
		{18, entities.UrgencyModerate, "below crop minimum"},
		{28, entities.UrgencyNone, "within optimal band"},
		{30, entities.UrgencyNone, "within optimal band"},
		{32, entities.UrgencyLow, "near optimal"},
		{20, entities.UrgencyLow, "approaching range edge"},
		{35, entities.UrgencyLow, "approaching range edge"},
	}
	for _, tc := range cases {
		u, reason := urgencyAt(tc.vwc, maize, loam)
		assert.Equal(t, tc.want, u, "vwc %v", tc.vwc)
		assert.Contains(t, reason, tc.reason, "vwc %v", tc.vwc)
	}
}

func TestSaturationOverridesDeficit(t *testing.T) {
	c := maizeCrop()
	c.VWC = entities.Range{Min: 50, Optimal: 55, Max: 60}
	u, _ := urgencyAt(40, c, sandy)
	assert.Equal(t, entities.UrgencyNone, u)
}

func TestDetermineUrgencyDepletionFallback(t *testing.T) {
	c := maizeCrop()
	c.VWC = entities.Range{}
	c.MAD = 0.5
	cases := []struct {
		vwc  float64
		want entities.Urgency
	}{
		{31, entities.UrgencyNone},     // 0%
		{26, entities.UrgencyNone},     // 31.25%
		{24, entities.UrgencyLow},      // 43.75%
		{21, entities.UrgencyModerate}, // 62.5%
		{17, entities.UrgencyHigh},     // 87.5%
	}
	for _, tc := range cases {
		u, reason := urgencyAt(tc.vwc, c, loam)
		assert.Equal(t, tc.want, u, "vwc %v", tc.vwc)
		assert.Contains(t, reason, "depletion")
	}
}

func TestDecisionMapping(t *testing.T) {
	assert.Equal(t, entities.DecisionIrrigateNow, DecisionFor(entities.UrgencyCritical))
	assert.Equal(t, entities.DecisionIrrigateNow, DecisionFor(entities.UrgencyHigh))
	assert.Equal(t, entities.DecisionIrrigateSoon, DecisionFor(entities.UrgencyModerate))
	assert.Equal(t, entities.DecisionDoNot, DecisionFor(entities.UrgencyLow))
	assert.Equal(t, entities.DecisionDoNot, DecisionFor(entities.UrgencyNone))

	assert.Equal(t, 6, NextCheckHours(entities.DecisionIrrigateNow))
	assert.Equal(t, 12, NextCheckHours(entities.DecisionIrrigateSoon))
	assert.Equal(t, 24, NextCheckHours(entities.DecisionDoNot))
}
