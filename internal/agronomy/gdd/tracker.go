package gdd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// Outcome of a single daily calculation.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeExists       Outcome = "exists"
	OutcomeBeforeSowing Outcome = "before_sowing"
)

// Calculation carries the new record, the existing one for OutcomeExists, or a
// zero record for OutcomeBeforeSowing.
type Calculation struct {
	Outcome Outcome
	Record  entities.GDDRecord
}

// BatchResult counts per-day outcomes of a batch on one field. Err is set when
// the field itself could not be processed.
type BatchResult struct {
	FieldID string `json:"field_id"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Err     string `json:"error,omitempty"`
}

// Tracker is safe for concurrent use. Calculations on the same field are
// serialised; different fields proceed in parallel.
type Tracker struct {
	crops   CropLookup
	records RecordStore
	obs     ObservationSource
	fields  FieldRepository

	log         *zap.SugaredLogger
	metrics     *metrics.Metrics
	now         func() time.Time
	loc         *time.Location
	ceiling     float64
	parallelism int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Tracker)

func WithLogger(l *zap.SugaredLogger) Option { return func(t *Tracker) { t.log = l } }
func WithMetrics(m *metrics.Metrics) Option  { return func(t *Tracker) { t.metrics = m } }
func WithClock(now func() time.Time) Option  { return func(t *Tracker) { t.now = now } }

// WithLocation sets the time zone that decides which day is "yesterday".
func WithLocation(loc *time.Location) Option { return func(t *Tracker) { t.loc = loc } }

func WithDefaultCeiling(c float64) Option { return func(t *Tracker) { t.ceiling = c } }
func WithParallelism(n int) Option        { return func(t *Tracker) { t.parallelism = n } }

func NewTracker(crops CropLookup, records RecordStore, obs ObservationSource, fields FieldRepository, opts ...Option) *Tracker {
	t := &Tracker{
		crops:       crops,
		records:     records,
		obs:         obs,
		fields:      fields,
		log:         zap.NewNop().Sugar(),
		now:         time.Now,
		loc:         time.UTC,
		ceiling:     DefaultCeiling,
		parallelism: 4,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(t)
	}
	if t.parallelism < 1 {
		t.parallelism = 1
	}
	return t
}

func (t *Tracker) lockField(id string) func() {
	t.mu.Lock()
	l, ok := t.locks[id]
	if !ok {
		l = &sync.Mutex{}
		t.locks[id] = l
	}
	t.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// yesterday is the last complete day in the tracker's time zone.
func (t *Tracker) yesterday() time.Time {
	y, m, d := t.now().In(t.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// prepared is a field validated for GDD accounting.
type prepared struct {
	field entities.FieldState
	crop  entities.CropParameters
	sown  time.Time
}

func (t *Tracker) prepare(ctx context.Context, fieldID string) (prepared, error) {
	f, err := t.fields.Field(ctx, fieldID)
	if err != nil {
		return prepared{}, err
	}
	if !f.HasCrop() {
		return prepared{}, apperr.Invalid("field", fieldID, "crop and sowing date must be configured")
	}
	crop, err := t.crops.Lookup(f.CropName)
	if err != nil {
		return prepared{}, err
	}
	return prepared{field: f, crop: crop, sown: entities.Day(*f.SowingDate)}, nil
}

// CalculateDailyRecord computes and stores the GDD record of one day. A day
// before sowing or one already recorded is not an error: the outcome says so
// and nothing is written.
func (t *Tracker) CalculateDailyRecord(ctx context.Context, fieldID string, date time.Time) (Calculation, error) {
	unlock := t.lockField(fieldID)
	defer unlock()

	p, err := t.prepare(ctx, fieldID)
	if err != nil {
		return Calculation{}, err
	}
	c, err := t.calculate(ctx, p, entities.Day(date))
	t.count(c, err)
	return c, err
}

func (t *Tracker) calculate(ctx context.Context, p prepared, day time.Time) (Calculation, error) {
	if day.Before(p.sown) {
		return Calculation{Outcome: OutcomeBeforeSowing}, nil
	}
	fieldID := p.field.ID
	if rec, ok, err := t.records.Get(ctx, fieldID, day); err != nil {
		return Calculation{}, fmt.Errorf("gdd: get record %s/%s: %w", fieldID, day.Format(entities.DateLayout), err)
	} else if ok {
		return Calculation{Outcome: OutcomeExists, Record: rec}, nil
	}

	obs, err := t.obs.DailyObservation(ctx, fieldID, day)
	if err != nil {
		return Calculation{}, err
	}

	prev := 0.0
	if last, ok, err := t.records.LatestBefore(ctx, fieldID, day); err != nil {
		return Calculation{}, fmt.Errorf("gdd: latest record %s: %w", fieldID, err)
	} else if ok && !last.Date.Before(p.sown) {
		prev = last.CumulativeGDD
	}

	daily := round2(Daily(obs.MinAirTemp, obs.MaxAirTemp, p.crop.BaseTemp, Ceiling(p.crop, t.ceiling)))
	cum := round2(prev + daily)
	rec := entities.GDDRecord{
		FieldID:       fieldID,
		Date:          day,
		CropName:      p.crop.Name,
		DailyGDD:      daily,
		CumulativeGDD: cum,
		AvgAirTemp:    obs.AvgAirTemp,
		MinAirTemp:    obs.MinAirTemp,
		MaxAirTemp:    obs.MaxAirTemp,
		GrowthStage:   StageFor(cum, p.crop.Stages),
		ReadingsCount: obs.SampleCount,
		CreatedAt:     t.now().UTC(),
	}
	if err := t.records.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrRecordExists) {
			existing, _, gerr := t.records.Get(ctx, fieldID, day)
			if gerr != nil {
				return Calculation{}, gerr
			}
			return Calculation{Outcome: OutcomeExists, Record: existing}, nil
		}
		return Calculation{}, fmt.Errorf("gdd: insert %s/%s: %w", fieldID, day.Format(entities.DateLayout), err)
	}

	if err := t.advanceField(ctx, p, rec); err != nil {
		return Calculation{}, err
	}
	t.log.Debugw("tracker: record created", "field", fieldID, "date", day.Format(entities.DateLayout),
		"daily", daily, "cumulative", cum, "stage", rec.GrowthStage)
	return Calculation{Outcome: OutcomeCreated, Record: rec}, nil
}

// advanceField mirrors the newest record onto the field. Back-filled days in
// the middle of the history leave the field untouched.
func (t *Tracker) advanceField(ctx context.Context, p prepared, rec entities.GDDRecord) error {
	later, err := t.records.Dates(ctx, p.field.ID, rec.Date.AddDate(0, 0, 1), rec.Date.AddDate(100, 0, 0))
	if err != nil {
		return fmt.Errorf("gdd: list later records %s: %w", p.field.ID, err)
	}
	if len(later) > 0 {
		return nil
	}
	patch := entities.FieldPatch{
		AccumulatedGDD: entities.Some(rec.CumulativeGDD),
		GrowthStage:    entities.Some(rec.GrowthStage),
		LastUpdated:    entities.Some(t.now().UTC()),
	}
	if err := t.fields.UpdateField(ctx, p.field.ID, patch); err != nil {
		return fmt.Errorf("gdd: update field %s: %w", p.field.ID, err)
	}
	return nil
}

func (t *Tracker) count(c Calculation, err error) {
	if t.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, apperr.ErrNoObservation):
		t.metrics.GDDRecords.WithLabelValues("skipped").Inc()
	case err != nil:
		t.metrics.GDDRecords.WithLabelValues("failed").Inc()
	case c.Outcome == OutcomeCreated:
		t.metrics.GDDRecords.WithLabelValues("created").Inc()
	default:
		t.metrics.GDDRecords.WithLabelValues("exists").Inc()
	}
}

// RecalculateRange deletes the records in [start, end] and recomputes the
// range day by day. Records stored after end are re-chained too, so the
// cumulative series and the field stay consistent. Days without
// observations are skipped. Created is the number of days recomputed.
func (t *Tracker) RecalculateRange(ctx context.Context, fieldID string, start, end time.Time) (BatchResult, error) {
	res := BatchResult{FieldID: fieldID}
	start, end = entities.Day(start), entities.Day(end)
	if end.Before(start) {
		return res, apperr.Invalid("range", fieldID, "end precedes start")
	}

	unlock := t.lockField(fieldID)
	defer unlock()

	p, err := t.prepare(ctx, fieldID)
	if err != nil {
		return res, err
	}
	later, err := t.records.Dates(ctx, fieldID, end.AddDate(0, 0, 1), end.AddDate(100, 0, 0))
	if err != nil {
		return res, fmt.Errorf("gdd: list later records %s: %w", fieldID, err)
	}
	if len(later) > 0 {
		end = entities.Day(later[len(later)-1])
	}
	deleted, err := t.records.DeleteRange(ctx, fieldID, start, end)
	if err != nil {
		return res, fmt.Errorf("gdd: delete range %s: %w", fieldID, err)
	}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t.tally(&res, t.step(ctx, p, day))
	}
	t.log.Infow("tracker: range recalculated", "field", fieldID,
		"from", start.Format(entities.DateLayout), "to", end.Format(entities.DateLayout),
		"deleted", deleted, "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

// FillGaps computes every missing day between sowing and yesterday in date
// order. Running it twice creates nothing the second time.
func (t *Tracker) FillGaps(ctx context.Context, fieldID string) (BatchResult, error) {
	res := BatchResult{FieldID: fieldID}

	unlock := t.lockField(fieldID)
	defer unlock()

	p, err := t.prepare(ctx, fieldID)
	if err != nil {
		return res, err
	}
	last := t.yesterday()
	if last.Before(p.sown) {
		return res, nil
	}
	have, err := t.records.Dates(ctx, fieldID, p.sown, last)
	if err != nil {
		return res, fmt.Errorf("gdd: list dates %s: %w", fieldID, err)
	}
	stored := make(map[time.Time]struct{}, len(have))
	for _, d := range have {
		stored[entities.Day(d)] = struct{}{}
	}
	for day := p.sown; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := stored[day]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		t.tally(&res, t.step(ctx, p, day))
	}
	if res.Created > 0 || res.Failed > 0 {
		t.log.Infow("tracker: gaps filled", "field", fieldID,
			"created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	}
	return res, nil
}

// FillGapsAll runs FillGaps on each field concurrently. An empty list means
// every field known to the repository. Per-field failures are reported in the
// results and never abort the batch.
func (t *Tracker) FillGapsAll(ctx context.Context, fieldIDs []string) ([]BatchResult, error) {
	if len(fieldIDs) == 0 {
		ids, err := t.fields.FieldIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("gdd: list fields: %w", err)
		}
		fieldIDs = ids
	}
	results := make([]BatchResult, len(fieldIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.parallelism)
	for i, id := range fieldIDs {
		i, id := i, id
		g.Go(func() error {
			res, err := t.FillGaps(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Err = err.Error()
				if apperr.IsOperational(err) {
					t.log.Debugw("tracker: field skipped", "field", id, "reason", err)
				} else {
					t.log.Warnw("tracker: fill gaps failed", "field", id, "err", err)
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

type stepResult struct {
	calc Calculation
	err  error
}

func (t *Tracker) step(ctx context.Context, p prepared, day time.Time) stepResult {
	c, err := t.calculate(ctx, p, day)
	t.count(c, err)
	if err != nil && !errors.Is(err, apperr.ErrNoObservation) {
		t.log.Warnw("tracker: day failed", "field", p.field.ID, "date", day.Format(entities.DateLayout), "err", err)
	}
	return stepResult{calc: c, err: err}
}

func (t *Tracker) tally(res *BatchResult, s stepResult) {
	switch {
	case errors.Is(s.err, apperr.ErrNoObservation):
		res.Skipped++
	case s.err != nil:
		res.Failed++
	case s.calc.Outcome == OutcomeCreated:
		res.Created++
	default:
		res.Skipped++
	}
}
