package gdd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

func TestDaily(t *testing.T) {
	cases := []struct {
		name                 string
		min, max, base, ceil float64
		want                 float64
	}{
		{"capped and raised", 5, 32, 10, 30, 10},
		{"all at base", 10, 10, 10, 30, 0},
		{"cold day", -5, 8, 10, 30, 0},
		{"plain", 15, 25, 10, 30, 10},
		{"max below base", 12, 9, 10, 30, 1},
		{"ceiling below base", 12, 20, 10, 8, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Daily(tc.min, tc.max, tc.base, tc.ceil), 1e-9)
		})
	}
}

func TestDailyNeverNegative(t *testing.T) {
	for min := -30.0; min <= 45; min += 2.5 {
		for max := -30.0; max <= 50; max += 2.5 {
			for _, base := range []float64{0, 4, 10, 15.5} {
				assert.GreaterOrEqual(t, Daily(min, max, base, 30), 0.0)
			}
		}
	}
}

func TestStageFor(t *testing.T) {
	th := entities.StageThresholds{Initial: 200, Development: 700, MidSeason: 1300, LateSeason: 1700}
	assert.Equal(t, entities.StageInitial, StageFor(0, th))
	assert.Equal(t, entities.StageInitial, StageFor(199.99, th))
	assert.Equal(t, entities.StageDevelopment, StageFor(200, th))
	assert.Equal(t, entities.StageMidSeason, StageFor(700, th))
	assert.Equal(t, entities.StageLateSeason, StageFor(1300, th))
	assert.Equal(t, entities.StageHarvestReady, StageFor(1700, th))
	assert.Equal(t, entities.StageHarvestReady, StageFor(9000, th))
}

func TestStageNeverRegresses(t *testing.T) {
	th := entities.StageThresholds{Initial: 150, Development: 500, MidSeason: 1100, LateSeason: 1500}
	prev := -1
	for cum := 0.0; cum < 2000; cum += 7.3 {
		o := StageFor(cum, th).Ordinal()
		assert.GreaterOrEqual(t, o, prev)
		prev = o
	}
}

func TestCeiling(t *testing.T) {
	assert.Equal(t, 35.0, Ceiling(entities.CropParameters{UpperTemp: 35}, 30))
	assert.Equal(t, 28.0, Ceiling(entities.CropParameters{}, 28))
	assert.Equal(t, DefaultCeiling, Ceiling(entities.CropParameters{}, 0))
}
