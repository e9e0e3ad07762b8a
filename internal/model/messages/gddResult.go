package messages

import "github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"

type GDDResult struct {
	Date          string               `json:"date"` // YYYY-MM-DD
	DailyGDD      float64              `json:"daily_gdd"`
	CumulativeGDD float64              `json:"cumulative_gdd"`
	AvgAirTemp    float64              `json:"avg_air_temp"`
	MinAirTemp    float64              `json:"min_air_temp"`
	MaxAirTemp    float64              `json:"max_air_temp"`
	GrowthStage   entities.GrowthStage `json:"growth_stage"`
	ReadingsCount int                  `json:"readings_count"`
}

func NewGDDResult(r entities.GDDRecord) GDDResult {
	return GDDResult{
		Date:          r.Date.Format(entities.DateLayout),
		DailyGDD:      r.DailyGDD,
		CumulativeGDD: r.CumulativeGDD,
		AvgAirTemp:    r.AvgAirTemp,
		MinAirTemp:    r.MinAirTemp,
		MaxAirTemp:    r.MaxAirTemp,
		GrowthStage:   r.GrowthStage,
		ReadingsCount: r.ReadingsCount,
	}
}
