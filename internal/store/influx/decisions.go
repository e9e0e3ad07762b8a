package influx

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const decisionMeasurement = "irrigation_decision"

// DecisionRecord is one stored irrigation decision.
type DecisionRecord struct {
	Time         time.Time `json:"time"`
	ID           string    `json:"id"`
	FieldID      string    `json:"field_id"`
	SensorID     string    `json:"sensor_id,omitempty"`
	Decision     string    `json:"decision"`
	Urgency      string    `json:"urgency"`
	UrgencyScore int       `json:"urgency_score"`
	DepthMM      float64   `json:"depth_mm"`
	DurationMin  int       `json:"duration_min"`
	CurrentVWC   float64   `json:"current_vwc"`
	Reason       string    `json:"reason"`
}

// WriteDecision records an irrigation decision, tagged by field, sensor,
// decision and urgency.
func (s *Store) WriteDecision(ctx context.Context, d messages.IrrigationDecision) error {
	t := d.Timestamp
	if t.IsZero() {
		t = time.Now()
	}
	tags := map[string]string{
		"field_id": d.FieldID,
		"decision": string(d.Decision),
		"urgency":  string(d.Urgency),
	}
	if d.SensorID != "" {
		tags["sensor_id"] = d.SensorID
	}
	fields := map[string]interface{}{
		"id":            d.ID,
		"urgency_score": int64(d.UrgencyScore),
		"depth_mm":      d.SuggestedDepthMm,
		"duration_min":  int64(d.SuggestedDurationMin),
		"current_vwc":   d.CurrentVWC,
		"reason":        d.Reason,
	}
	p := influxdb2.NewPoint(decisionMeasurement, tags, fields, t)
	if err := s.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx write decision %s: %w", d.FieldID, err)
	}
	return nil
}

// RecentDecisions lists the newest decisions first. An empty fieldID
// matches every field.
func (s *Store) RecentDecisions(ctx context.Context, fieldID string, minutes, limit int) ([]DecisionRecord, error) {
	res, err := s.query.Query(ctx, decisionsQuery(s.bucket, fieldID, minutes, limit))
	if err != nil {
		return nil, fmt.Errorf("influx decisions: %w", err)
	}
	defer res.Close()

	var out []DecisionRecord
	for res.Next() {
		rec := res.Record()
		d := DecisionRecord{
			Time:     rec.Time().UTC(),
			ID:       tagValue(rec.ValueByKey("id")),
			FieldID:  tagValue(rec.ValueByKey("field_id")),
			SensorID: tagValue(rec.ValueByKey("sensor_id")),
			Decision: tagValue(rec.ValueByKey("decision")),
			Urgency:  tagValue(rec.ValueByKey("urgency")),
			Reason:   tagValue(rec.ValueByKey("reason")),
		}
		if v, ok := toFloat(rec.ValueByKey("urgency_score")); ok {
			d.UrgencyScore = int(v)
		}
		if v, ok := toFloat(rec.ValueByKey("depth_mm")); ok {
			d.DepthMM = v
		}
		if v, ok := toFloat(rec.ValueByKey("duration_min")); ok {
			d.DurationMin = int(v)
		}
		if v, ok := toFloat(rec.ValueByKey("current_vwc")); ok {
			d.CurrentVWC = v
		}
		out = append(out, d)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("influx decisions read: %w", err)
	}
	return out, nil
}

func decisionsQuery(bucket, fieldID string, minutes, limit int) string {
	if minutes <= 0 {
		minutes = 60 * 24
	}
	if limit <= 0 {
		limit = 20
	}
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q)\n  |> range(start: -%dm)\n", bucket, minutes)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", decisionMeasurement)
	if fieldID != "" {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r.field_id == %q)\n", fieldID)
	}
	b.WriteString(`  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> group()
  |> sort(columns: ["_time"], desc: true)
`)
	fmt.Fprintf(&b, "  |> limit(n: %d)", limit)
	return b.String()
}
