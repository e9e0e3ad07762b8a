package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// SubScores are the five weighted criteria; their sum is the total score.
type SubScores struct {
	Moisture    float64 `json:"moisture"`
	Temperature float64 `json:"temperature"`
	Season      float64 `json:"season"`
	SoilTexture float64 `json:"soil_texture"`
	GDD         float64 `json:"gdd"`
}

func (s SubScores) Sum() float64 {
	return s.Moisture + s.Temperature + s.Season + s.SoilTexture + s.GDD
}

type CropScore struct {
	CropName    string    `json:"crop_name"`
	TotalScore  float64   `json:"total_score"`
	Rank        int       `json:"rank"`
	SubScores   SubScores `json:"sub_scores"`
	Explanation string    `json:"explanation"`
	Suitable    bool      `json:"suitable"`
}

// ConditionsSnapshot echoes the inputs a recommendation was computed from.
type ConditionsSnapshot struct {
	VWC            float64              `json:"vwc"`
	SoilTemp       float64              `json:"soil_temp"`
	SoilTexture    entities.SoilTexture `json:"soil_texture"`
	Season         entities.Season      `json:"season"`
	SeasonDay      int                  `json:"season_day"`
	CurrentCrop    string               `json:"current_crop,omitempty"`
	AccumulatedGDD float64              `json:"accumulated_gdd"`
	Date           string               `json:"date"`
}

type CropRecommendation struct {
	ID                 string             `json:"id"`
	FieldID            string             `json:"field_id,omitempty"`
	RecommendedCrop    string             `json:"recommended_crop"`
	RankedScores       []CropScore        `json:"ranked_scores"`
	CurrentSeason      entities.Season    `json:"current_season"`
	ConditionsSnapshot ConditionsSnapshot `json:"conditions_snapshot"`
	Timestamp          time.Time          `json:"timestamp"`
}
