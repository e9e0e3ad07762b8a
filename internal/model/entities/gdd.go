package entities

import "time"

// DateLayout is the storage and wire format of calendar days.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DailyTemperatureObservation is the aggregated air temperature of one field-day.
type DailyTemperatureObservation struct {
	FieldID     string    `json:"field_id"`
	Date        time.Time `json:"date"`
	MinAirTemp  float64   `json:"min_air_temp"`
	MaxAirTemp  float64   `json:"max_air_temp"`
	AvgAirTemp  float64   `json:"avg_air_temp"`
	SampleCount int       `json:"sample_count"`
}

// GDDRecord is immutable once stored; recomputing a day requires deleting it first.
type GDDRecord struct {
	FieldID       string      `json:"field_id"`
	Date          time.Time   `json:"date"`
	CropName      string      `json:"crop_name"`
	DailyGDD      float64     `json:"daily_gdd"`
	CumulativeGDD float64     `json:"cumulative_gdd"`
	AvgAirTemp    float64     `json:"avg_air_temp"`
	MinAirTemp    float64     `json:"min_air_temp"`
	MaxAirTemp    float64     `json:"max_air_temp"`
	GrowthStage   GrowthStage `json:"growth_stage"`
	ReadingsCount int         `json:"readings_count"`
	CreatedAt     time.Time   `json:"created_at"`
}
