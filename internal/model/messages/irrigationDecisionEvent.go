package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// IrrigationDecision is published by the decision service to record WHY/WHAT was advised.
type IrrigationDecision struct {
	ID                   string               `json:"id"`
	FieldID              string               `json:"field_id"`
	SensorID             string               `json:"sensor_id,omitempty"`
	CropName             string               `json:"crop_name,omitempty"`
	GrowthStage          entities.GrowthStage `json:"growth_stage,omitempty"`
	Decision             entities.Decision    `json:"decision"`
	Urgency              entities.Urgency     `json:"urgency"`
	UrgencyScore         int                  `json:"urgency_score"`
	Reason               string               `json:"reason"`
	CurrentVWC           float64              `json:"current_vwc"`
	TargetVWC            float64              `json:"target_vwc"`
	Deficit              float64              `json:"deficit"`
	DepletionPct         float64              `json:"depletion_pct"`
	StressLevel          entities.StressLevel `json:"stress_level"`
	Kc                   float64              `json:"kc"`
	SuggestedDepthMm     float64              `json:"suggested_depth_mm"`
	SuggestedDurationMin int                  `json:"suggested_duration_min"`
	WeatherAdjustment    string               `json:"weather_adjustment,omitempty"`
	NextCheckHours       int                  `json:"next_check_hours"`
	Timestamp            time.Time            `json:"timestamp"`
}
