package entities

import "time"

// WeatherOutlook summarises forecast precipitation over a lookahead window.
// It may only soften irrigation urgency.
type WeatherOutlook struct {
	RainExpected bool          `json:"rain_expected"`
	RainMM       float64       `json:"rain_mm"`
	Window       time.Duration `json:"window"`
	Description  string        `json:"description,omitempty"`
	Source       string        `json:"source,omitempty"`
	FetchedAt    time.Time     `json:"fetched_at"`
}
