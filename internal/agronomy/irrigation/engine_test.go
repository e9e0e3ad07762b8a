package irrigation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

func input(vwc float64) Input {
	return Input{
		Field:    entities.FieldState{ID: "f1", CropName: "maize", SoilTexture: entities.SoilLoam, AccumulatedGDD: 450},
		Crop:     maizeCrop(),
		Soil:     loam,
		Snapshot: entities.SensorSnapshot{FieldID: "f1", SensorID: "s1", VWC: vwc, SoilTemp: 22},
	}
}

var rain = &entities.WeatherOutlook{RainExpected: true, RainMM: 12, Window: 48 * time.Hour}

func TestEvaluateCritical(t *testing.T) {
	d := Evaluate(input(14), rain, DefaultSettings())
	assert.Equal(t, entities.UrgencyCritical, d.Urgency)
	assert.Equal(t, 100, d.UrgencyScore)
	assert.Equal(t, entities.DecisionIrrigateNow, d.Decision)
	assert.Empty(t, d.WeatherAdjustment)
	assert.Equal(t, 28.0, d.TargetVWC)
	assert.Equal(t, 14.0, d.Deficit)
	// 280 mm target - 140 mm current, capped
	assert.Equal(t, 50.0, d.SuggestedDepthMm)
	assert.Equal(t, 300, d.SuggestedDurationMin)
	assert.Equal(t, 6, d.NextCheckHours)
	assert.Equal(t, entities.StageDevelopment, d.GrowthStage)
	assert.InDelta(t, 0.75, d.Kc, 1e-9)
	assert.Equal(t, "s1", d.SensorID)
}

func TestEvaluateRainDowngrades(t *testing.T) {
	d := Evaluate(input(16), rain, DefaultSettings())
	assert.Equal(t, entities.UrgencyModerate, d.Urgency)
	assert.Equal(t, entities.DecisionIrrigateSoon, d.Decision)
	assert.Contains(t, d.WeatherAdjustment, "HIGH lowered to MODERATE")
	assert.Contains(t, d.WeatherAdjustment, "48h")
	assert.Equal(t, 12, d.NextCheckHours)

	d = Evaluate(input(18), rain, DefaultSettings())
	assert.Equal(t, entities.UrgencyLow, d.Urgency)
	assert.Equal(t, entities.DecisionDoNot, d.Decision)
	assert.Zero(t, d.SuggestedDepthMm)
	assert.Zero(t, d.SuggestedDurationMin)
	assert.Equal(t, 24, d.NextCheckHours)

	dry := &entities.WeatherOutlook{RainExpected: false, RainMM: 1}
	d = Evaluate(input(16), dry, DefaultSettings())
	assert.Equal(t, entities.UrgencyHigh, d.Urgency)
	assert.Empty(t, d.WeatherAdjustment)
}

func TestEvaluateDepthWindow(t *testing.T) {
	in := input(18)
	in.Crop.RootDepthCm = 5
	in.Crop.VWC = entities.Range{Min: 20, Optimal: 21, Max: 25}
	d := Evaluate(in, nil, DefaultSettings())
	assert.Equal(t, entities.DecisionIrrigateSoon, d.Decision)
	// 1.5 mm short of target, raised to the minimum
	assert.Equal(t, 5.0, d.SuggestedDepthMm)
	assert.Equal(t, 30, d.SuggestedDurationMin)
}

func TestEvaluateUsesEmitterRate(t *testing.T) {
	in := input(14)
	in.Field.FlowLpm = 2
	in.Field.AreaM2 = 10 // 12 mm/h
	d := Evaluate(in, nil, DefaultSettings())
	assert.Equal(t, 250, d.SuggestedDurationMin)
}

func TestEvaluateDepthInvariant(t *testing.T) {
	s := DefaultSettings()
	cat := catalog.Default()
	for _, crop := range cat.Crops() {
		for _, soil := range cat.Soils() {
			for vwc := 0.0; vwc <= 100; vwc += 0.5 {
				in := Input{
					Field:    entities.FieldState{ID: "f", SoilTexture: soil.Texture, AccumulatedGDD: 300},
					Crop:     crop,
					Soil:     soil,
					Snapshot: entities.SensorSnapshot{VWC: vwc},
				}
				for _, o := range []*entities.WeatherOutlook{nil, rain} {
					d := Evaluate(in, o, s)
					if d.Decision == entities.DecisionDoNot {
						require.Zero(t, d.SuggestedDepthMm, "%s/%s vwc=%v", crop.Name, soil.Texture, vwc)
					} else {
						require.GreaterOrEqual(t, d.SuggestedDepthMm, s.MinDepthMM)
						require.LessOrEqual(t, d.SuggestedDepthMm, s.MaxDepthMM)
					}
					if vwc >= soil.Saturation {
						require.Equal(t, entities.UrgencyNone, d.Urgency, "%s/%s vwc=%v", crop.Name, soil.Texture, vwc)
					}
				}
			}
		}
	}
}

type stubWeather struct {
	outlook entities.WeatherOutlook
	err     error
	calls   int
}

func (s *stubWeather) Outlook(context.Context, float64, float64) (entities.WeatherOutlook, error) {
	s.calls++
	return s.outlook, s.err
}

func newTestEngine(t *testing.T, w OutlookProvider) (*Engine, *metrics.Metrics) {
	m := metrics.New(nil)
	e := NewEngine(catalog.Default(), w, DefaultSettings(), zaptest.NewLogger(t).Sugar(), m)
	e.now = func() time.Time { return time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC) }
	return e, m
}

func TestDecideWeatherFailureDegrades(t *testing.T) {
	w := &stubWeather{err: errors.New("owm: status 503")}
	e, m := newTestEngine(t, w)

	d, err := e.Decide(context.Background(), input(16).Field, input(16).Snapshot)
	require.NoError(t, err)
	assert.Equal(t, entities.UrgencyHigh, d.Urgency)
	assert.Empty(t, d.WeatherAdjustment)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC), d.Timestamp)
	assert.Equal(t, 1, w.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeatherFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("irrigate_now", "HIGH")))
}

func TestDecideConsultsWeatherOnlyWhenItMatters(t *testing.T) {
	w := &stubWeather{outlook: *rain}
	e, _ := newTestEngine(t, w)
	ctx := context.Background()

	d, err := e.Decide(ctx, input(14).Field, input(14).Snapshot) // critical
	require.NoError(t, err)
	assert.Equal(t, entities.UrgencyCritical, d.Urgency)
	d, err = e.Decide(ctx, input(28).Field, input(28).Snapshot) // none
	require.NoError(t, err)
	assert.Equal(t, entities.UrgencyNone, d.Urgency)
	assert.Zero(t, w.calls)

	d, err = e.Decide(ctx, input(16).Field, input(16).Snapshot)
	require.NoError(t, err)
	assert.Equal(t, entities.UrgencyModerate, d.Urgency)
	assert.Equal(t, 1, w.calls)
}

func TestDecideErrors(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := e.Decide(ctx, entities.FieldState{ID: "f1", SoilTexture: entities.SoilLoam}, entities.SensorSnapshot{VWC: 20})
	assert.True(t, apperr.IsValidation(err))

	_, err = e.Decide(ctx, entities.FieldState{ID: "f1", CropName: "quinoa", SoilTexture: entities.SoilLoam}, entities.SensorSnapshot{})
	assert.True(t, apperr.IsNotFound(err))

	_, err = e.Decide(ctx, entities.FieldState{ID: "f1", CropName: "maize", SoilTexture: "peat"}, entities.SensorSnapshot{})
	assert.True(t, apperr.IsNotFound(err))
}
