package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// SensorData is the gateway payload; it holds both real-time and aggregated readings.
type SensorData struct {
	FieldID    string    `json:"field_id"`
	SensorID   string    `json:"sensor_id"`
	VWC        float64   `json:"vwc"`       // %
	SoilTemp   float64   `json:"soil_temp"` // °C
	AirTemp    *float64  `json:"air_temp,omitempty"`
	Samples    int       `json:"samples,omitempty"`
	Aggregated bool      `json:"aggregated"`
	Timestamp  time.Time `json:"timestamp"`
}

// Snapshot converts the payload into a clamped engine snapshot.
func (s SensorData) Snapshot() entities.SensorSnapshot {
	return entities.SensorSnapshot{
		FieldID:  s.FieldID,
		SensorID: s.SensorID,
		VWC:      s.VWC,
		SoilTemp: s.SoilTemp,
		AirTemp:  s.AirTemp,
		TakenAt:  s.Timestamp,
	}.Clamp()
}
