package influx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const decisionsCSV = `#datatype,string,long,dateTime:RFC3339,string,string,string,string,string,long,double,long,double,string
#group,false,false,false,false,false,false,false,false,false,false,false,false,false
#default,_result,,,,,,,,,,,,
,result,table,_time,field_id,sensor_id,decision,urgency,id,urgency_score,depth_mm,duration_min,current_vwc,reason
,,0,2025-06-01T10:00:00Z,f1,s1,irrigate_now,HIGH,d2,3,24.5,147,14.2,below threshold
,,0,2025-06-01T09:00:00Z,f1,s1,do_not_irrigate,NONE,d1,0,0,0,31,adequate

`

func TestWriteDecision(t *testing.T) {
	s, fake := newTestStore(t, "")
	err := s.WriteDecision(context.Background(), messages.IrrigationDecision{
		ID:                   "d1",
		FieldID:              "f1",
		SensorID:             "s1",
		Decision:             entities.DecisionIrrigateNow,
		Urgency:              entities.UrgencyHigh,
		UrgencyScore:         3,
		SuggestedDepthMm:     24.5,
		SuggestedDurationMin: 147,
		Reason:               "below threshold",
		Timestamp:            time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, fake.writes, 1)
	line := fake.writes[0]
	assert.True(t, strings.HasPrefix(line, "irrigation_decision,"), line)
	assert.Contains(t, line, "decision=irrigate_now")
	assert.Contains(t, line, "urgency=HIGH")
	assert.Contains(t, line, "depth_mm=24.5")
	assert.Contains(t, line, "duration_min=147i")
	assert.Contains(t, line, `reason="below threshold"`)
}

func TestRecentDecisions(t *testing.T) {
	s, fake := newTestStore(t, decisionsCSV)
	list, err := s.RecentDecisions(context.Background(), "f1", 120, 5)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	assert.Equal(t, "d2", first.ID)
	assert.Equal(t, "irrigate_now", first.Decision)
	assert.Equal(t, "HIGH", first.Urgency)
	assert.Equal(t, 3, first.UrgencyScore)
	assert.Equal(t, 24.5, first.DepthMM)
	assert.Equal(t, 147, first.DurationMin)
	assert.Equal(t, "below threshold", first.Reason)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 31.0, list[1].CurrentVWC)

	q := fake.queries[0]
	assert.Contains(t, q, "range(start: -120m)")
	assert.Contains(t, q, `r.field_id == \"f1\"`)
	assert.Contains(t, q, "limit(n: 5)")
}

func TestDecisionsQueryAllFields(t *testing.T) {
	q := decisionsQuery("agri", "", 0, 0)
	assert.NotContains(t, q, "field_id ==")
	assert.Contains(t, q, "range(start: -1440m)")
	assert.Contains(t, q, "limit(n: 20)")
}
