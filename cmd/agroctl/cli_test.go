package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/app"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/memory"
)

// run executes agroctl against a per-test SQLite file and in-memory observations.
func run(t *testing.T, obs *memory.Store, args ...string) (string, error) {
	t.Helper()
	runtimeOpts = []app.Option{app.WithObservations(obs)}
	t.Cleanup(func() { runtimeOpts = nil })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) *memory.Store {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", "file:"+filepath.Join(t.TempDir(), "agro.db"))
	t.Setenv("OWM_API_KEY", "")
	return memory.New()
}

func TestCatalogList(t *testing.T) {
	obs := setup(t)
	out, err := run(t, obs, "catalog", "list", "--season", "rabi")
	require.NoError(t, err)
	assert.Contains(t, out, "wheat")
	assert.Contains(t, out, "chickpea")
	assert.NotContains(t, out, "maize")

	out, err = run(t, obs, "catalog", "soils")
	require.NoError(t, err)
	assert.Contains(t, out, "clay_loam")

	catalogSeason = ""
}

func TestFieldGDDAndDecide(t *testing.T) {
	obs := setup(t)
	sown := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	obs.PutObservation(entities.DailyTemperatureObservation{FieldID: "f1", Date: sown, MinAirTemp: 18, MaxAirTemp: 32, SampleCount: 24})

	_, err := run(t, obs, "field", "set", "f1", "--crop", "Maize", "--sown", "2025-06-01", "--soil", "loam")
	require.NoError(t, err)

	out, err := run(t, obs, "gdd", "calc", "f1", "2025-06-01")
	require.NoError(t, err)
	var calc struct {
		Outcome string             `json:"outcome"`
		Record  messages.GDDResult `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &calc))
	assert.Equal(t, "created", calc.Outcome)
	assert.Equal(t, 14.0, calc.Record.CumulativeGDD)

	out, err = run(t, obs, "field", "show", "f1")
	require.NoError(t, err)
	var f entities.FieldState
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	assert.Equal(t, "maize", f.CropName)
	assert.Equal(t, 14.0, f.AccumulatedGDD)

	out, err = run(t, obs, "decide", "f1", "--vwc", "14", "--soil-temp", "22")
	require.NoError(t, err)
	var d messages.IrrigationDecision
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, entities.DecisionIrrigateNow, d.Decision)

	_, err = run(t, obs, "decide", "nope", "--vwc", "14")
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	obs := setup(t)
	out, err := run(t, obs, "recommend", "--vwc", "28", "--soil-temp", "24", "--soil", "loam",
		"--date", "2025-06-15", "--top", "3")
	require.NoError(t, err)
	var rec messages.CropRecommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "maize", rec.RecommendedCrop)
	assert.Len(t, rec.RankedScores, 3)

	recommendFlags.top = 0
	recommendFlags.soil = ""
	_, err = run(t, obs, "recommend", "--vwc", "28", "--soil-temp", "24")
	assert.Error(t, err)
}
