package entities

import "time"

// Plausibility bounds applied to every snapshot before use.
const (
	MinVWC      = 0.0
	MaxVWC      = 100.0
	MinSoilTemp = -10.0
	MaxSoilTemp = 70.0
)

// Sensor represents a single underground probe in the field.
type Sensor struct {
	FieldID   string  `json:"field_id"`
	ID        string  `json:"id"` // unique sensor identifier
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	MaxDepth  int     `json:"max_depth"` // probe depth [cm]
}

// SensorSnapshot is the latest reading of a field's soil probe.
type SensorSnapshot struct {
	FieldID  string    `json:"field_id"`
	SensorID string    `json:"sensor_id"`
	VWC      float64   `json:"vwc"`       // %
	SoilTemp float64   `json:"soil_temp"` // °C
	AirTemp  *float64  `json:"air_temp,omitempty"`
	TakenAt  time.Time `json:"taken_at"`
}

// Clamp returns a copy bounded to physically plausible values.
func (s SensorSnapshot) Clamp() SensorSnapshot {
	s.VWC = clamp(s.VWC, MinVWC, MaxVWC)
	s.SoilTemp = clamp(s.SoilTemp, MinSoilTemp, MaxSoilTemp)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
