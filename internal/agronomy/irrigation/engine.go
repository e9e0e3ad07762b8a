package irrigation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

// Settings bound the suggested application.
type Settings struct {
	MinDepthMM         float64
	MaxDepthMM         float64
	ApplicationRateMMh float64 // used when the field has no emitter data
}

func DefaultSettings() Settings {
	return Settings{MinDepthMM: 5, MaxDepthMM: 50, ApplicationRateMMh: 10}
}

// Input is a fully resolved decision request.
type Input struct {
	Field    entities.FieldState
	Crop     entities.CropParameters
	Soil     entities.SoilConstants
	Snapshot entities.SensorSnapshot
}

// Evaluate is the deterministic core of a decision. A nil outlook means no
// forecast; a forecast of rain lowers the urgency by one step, CRITICAL excepted.
func Evaluate(in Input, outlook *entities.WeatherOutlook, s Settings) messages.IrrigationDecision {
	snap := in.Snapshot.Clamp()
	vwc := snap.VWC
	crop, soil := in.Crop, in.Soil

	bal := Balance(soil, vwc, crop.RootDepthCm, crop.MAD)
	stage := gdd.StageFor(in.Field.AccumulatedGDD, crop.Stages)
	kc := CurrentKc(crop, stage, in.Field.AccumulatedGDD)

	base, reason := DetermineUrgency(vwc, crop, soil, bal)
	urgency := base
	adjustment := ""
	if outlook != nil && outlook.RainExpected {
		if down := base.Downgrade(); down != base {
			urgency = down
			adjustment = fmt.Sprintf("rain expected (%.1f mm in %s): %s lowered to %s",
				outlook.RainMM, formatWindow(outlook.Window), base, down)
		}
	}
	decision := DecisionFor(urgency)

	target := targetVWC(crop, soil)
	depth := 0.0
	if decision.Irrigates() {
		depth = clamp(depthMM(target, crop.RootDepthCm)-bal.CurrentDepth, s.MinDepthMM, s.MaxDepthMM)
	}
	duration := 0
	if depth > 0 {
		rate := in.Field.ApplicationRateMMh()
		if rate <= 0 {
			rate = s.ApplicationRateMMh
		}
		// rounded first so 250.00000000000003 stays 250
		duration = int(math.Ceil(round(depth/rate*60, 6)))
	}

	return messages.IrrigationDecision{
		FieldID:              in.Field.ID,
		SensorID:             snap.SensorID,
		CropName:             crop.Name,
		GrowthStage:          stage,
		Decision:             decision,
		Urgency:              urgency,
		UrgencyScore:         urgency.Score(),
		Reason:               reason,
		CurrentVWC:           round(vwc, 1),
		TargetVWC:            round(target, 1),
		Deficit:              round(math.Max(0, target-vwc), 1),
		DepletionPct:         round(bal.DepletionPct, 1),
		StressLevel:          bal.Stress,
		Kc:                   round(kc, 3),
		SuggestedDepthMm:     round(depth, 1),
		SuggestedDurationMin: duration,
		WeatherAdjustment:    adjustment,
		NextCheckHours:       NextCheckHours(decision),
	}
}

// targetVWC is the crop optimum, or field capacity when the crop has no window.
func targetVWC(c entities.CropParameters, soil entities.SoilConstants) float64 {
	if c.VWC.Unset() {
		return soil.FieldCapacity
	}
	return c.VWC.Optimal
}

// OutlookProvider returns the rain outlook for a location.
type OutlookProvider interface {
	Outlook(ctx context.Context, lat, lon float64) (entities.WeatherOutlook, error)
}

// Catalog is the read side of *catalog.Catalog the engine needs.
type Catalog interface {
	Lookup(name string) (entities.CropParameters, error)
	Soil(entities.SoilTexture) (entities.SoilConstants, error)
}

type Engine struct {
	catalog  Catalog
	weather  OutlookProvider
	settings Settings
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewEngine builds an engine. weather may be nil, in which case decisions are
// never adjusted for rain.
func NewEngine(c Catalog, weather OutlookProvider, s Settings, log *zap.SugaredLogger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{catalog: c, weather: weather, settings: s, log: log, metrics: m, now: time.Now}
}

// Decide resolves the field's crop and soil, consults the weather outlook when
// it could matter, and evaluates. A failed outlook lookup is logged and the
// decision proceeds unadjusted.
func (e *Engine) Decide(ctx context.Context, field entities.FieldState, snap entities.SensorSnapshot) (messages.IrrigationDecision, error) {
	if field.CropName == "" {
		return messages.IrrigationDecision{}, apperr.Invalid("field", field.ID, "no crop configured")
	}
	crop, err := e.catalog.Lookup(field.CropName)
	if err != nil {
		return messages.IrrigationDecision{}, err
	}
	soil, err := e.catalog.Soil(field.SoilTexture)
	if err != nil {
		return messages.IrrigationDecision{}, err
	}
	in := Input{Field: field, Crop: crop, Soil: soil, Snapshot: snap}

	var outlook *entities.WeatherOutlook
	if e.weather != nil && e.softenable(in) {
		o, err := e.weather.Outlook(ctx, field.Latitude, field.Longitude)
		if err != nil {
			e.log.Warnw("decision: weather outlook unavailable, no adjustment", "field", field.ID, "err", err)
			if e.metrics != nil {
				e.metrics.WeatherFailures.Inc()
			}
		} else {
			outlook = &o
		}
	}

	d := Evaluate(in, outlook, e.settings)
	d.ID = uuid.NewString()
	d.Timestamp = e.now().UTC()
	if e.metrics != nil {
		e.metrics.Decisions.WithLabelValues(string(d.Decision), string(d.Urgency)).Inc()
	}
	e.log.Infow("decision: evaluated", "field", field.ID, "crop", crop.Name,
		"vwc", d.CurrentVWC, "urgency", d.Urgency, "decision", d.Decision, "depth_mm", d.SuggestedDepthMm)
	return d, nil
}

// softenable reports whether a rain forecast could change the outcome.
func (e *Engine) softenable(in Input) bool {
	vwc := in.Snapshot.Clamp().VWC
	bal := Balance(in.Soil, vwc, in.Crop.RootDepthCm, in.Crop.MAD)
	u, _ := DetermineUrgency(vwc, in.Crop, in.Soil, bal)
	return u.Downgrade() != u
}

func formatWindow(w time.Duration) string {
	if w <= 0 {
		return "the forecast window"
	}
	return fmt.Sprintf("%.0fh", w.Hours())
}

func clamp(v, lo, hi float64) float64 { return math.Min(hi, math.Max(lo, v)) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
