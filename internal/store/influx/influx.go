// Package influx stores sensor readings in InfluxDB and serves the daily air
// temperature observations the GDD tracker consumes.
package influx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const (
	fieldVWC        = "vwc"
	fieldSoilTemp   = "soil_temp"
	fieldAirTemp    = "air_temp"
	fieldAggregated = "aggregated"
)

type Store struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	query       api.QueryAPI
	bucket      string
	measurement string
	loc         *time.Location
}

// New connects lazily; the first write or query reaches the server.
func New(cfg config.InfluxConfig, loc *time.Location) (*Store, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx config incomplete")
	}
	if loc == nil {
		loc = time.UTC
	}
	measurement := sanitizeMeasurement(cfg.Measurement)
	if measurement == "" {
		measurement = "soil_reading"
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Store{
		client:      client,
		write:       client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		query:       client.QueryAPI(cfg.Org),
		bucket:      cfg.Bucket,
		measurement: measurement,
		loc:         loc,
	}, nil
}

func (s *Store) Close() { s.client.Close() }

// Ready pings the server health endpoint.
func (s *Store) Ready(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("influx not ready")
	}
	return nil
}

// WriteReading stores one reading as a point tagged by field and sensor.
func (s *Store) WriteReading(ctx context.Context, d messages.SensorData) error {
	if err := s.write.WritePoint(ctx, s.point(d)); err != nil {
		return fmt.Errorf("influx write %s/%s: %w", d.FieldID, d.SensorID, err)
	}
	return nil
}

func (s *Store) point(d messages.SensorData) *write.Point {
	t := d.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	tags := map[string]string{
		"field_id":  d.FieldID,
		"sensor_id": d.SensorID,
	}
	fields := map[string]interface{}{
		fieldVWC:        d.VWC,
		fieldSoilTemp:   d.SoilTemp,
		fieldAggregated: d.Aggregated,
	}
	if d.AirTemp != nil {
		fields[fieldAirTemp] = *d.AirTemp
	}
	return influxdb2.NewPoint(s.measurement, tags, fields, t)
}

// DailyObservation aggregates the raw air temperature samples of one
// calendar day, in the store's location, into min, max and mean.
func (s *Store) DailyObservation(ctx context.Context, fieldID string, date time.Time) (entities.DailyTemperatureObservation, error) {
	day := entities.Day(date)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	stop := start.AddDate(0, 0, 1)

	res, err := s.query.Query(ctx, dailyQuery(s.bucket, s.measurement, fieldID, start, stop))
	if err != nil {
		return entities.DailyTemperatureObservation{}, fmt.Errorf("influx query %s %s: %w",
			fieldID, day.Format(entities.DateLayout), err)
	}
	defer res.Close()

	obs := entities.DailyTemperatureObservation{
		FieldID:    fieldID,
		Date:       day,
		MinAirTemp: math.Inf(1),
		MaxAirTemp: math.Inf(-1),
	}
	sum := 0.0
	for res.Next() {
		v, ok := toFloat(res.Record().Value())
		if !ok {
			continue
		}
		obs.MinAirTemp = math.Min(obs.MinAirTemp, v)
		obs.MaxAirTemp = math.Max(obs.MaxAirTemp, v)
		sum += v
		obs.SampleCount++
	}
	if err := res.Err(); err != nil {
		return entities.DailyTemperatureObservation{}, fmt.Errorf("influx read %s: %w", fieldID, err)
	}
	if obs.SampleCount == 0 {
		return entities.DailyTemperatureObservation{}, fmt.Errorf("field %s on %s: %w",
			fieldID, day.Format(entities.DateLayout), apperr.ErrNoObservation)
	}
	obs.AvgAirTemp = math.Round(sum/float64(obs.SampleCount)*100) / 100
	return obs, nil
}

// LatestReadings returns the most recent raw reading per sensor within the
// last minutes.
func (s *Store) LatestReadings(ctx context.Context, minutes int) ([]messages.SensorData, error) {
	res, err := s.query.Query(ctx, latestQuery(s.bucket, s.measurement, minutes))
	if err != nil {
		return nil, fmt.Errorf("influx latest: %w", err)
	}
	defer res.Close()

	type key struct{ field, sensor string }
	byKey := map[key]*messages.SensorData{}
	var order []key
	for res.Next() {
		rec := res.Record()
		k := key{field: tagValue(rec.ValueByKey("field_id")), sensor: tagValue(rec.ValueByKey("sensor_id"))}
		d, ok := byKey[k]
		if !ok {
			d = &messages.SensorData{FieldID: k.field, SensorID: k.sensor}
			byKey[k] = d
			order = append(order, k)
		}
		if rec.Time().After(d.Timestamp) {
			d.Timestamp = rec.Time()
		}
		v, ok := toFloat(rec.Value())
		if !ok {
			continue
		}
		switch rec.Field() {
		case fieldVWC:
			d.VWC = v
		case fieldSoilTemp:
			d.SoilTemp = v
		case fieldAirTemp:
			d.AirTemp = &v
		}
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("influx latest read: %w", err)
	}
	out := make([]messages.SensorData, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out, nil
}

func dailyQuery(bucket, measurement, fieldID string, start, stop time.Time) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q and r.field_id == %q)
  |> keep(columns: ["_time", "_value"])`,
		bucket, start.UTC().Format(time.RFC3339), stop.UTC().Format(time.RFC3339),
		measurement, fieldAirTemp, fieldID)
}

func latestQuery(bucket, measurement string, minutes int) string {
	if minutes <= 0 {
		minutes = 60 * 24
	}
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> filter(fn: (r) => r._field == %q or r._field == %q or r._field == %q)
  |> group(columns: ["field_id", "sensor_id", "_field"])
  |> last()`,
		bucket, minutes, measurement, fieldVWC, fieldSoilTemp, fieldAirTemp)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func tagValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func sanitizeMeasurement(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ gdd.ObservationSource = (*Store)(nil)
