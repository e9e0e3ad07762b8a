package gdd_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/catalog"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/metrics"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/store/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := entities.ParseDay(s)
	require.NoError(t, err)
	return d
}

type fixture struct {
	store   *memory.Store
	tracker *gdd.Tracker
	metrics *metrics.Metrics
}

// newFixture sows maize on 2025-06-01 and supplies observations for every day
// up to 2025-06-10 except 2025-06-05. "Today" is 2025-06-11.
func newFixture(t *testing.T, fieldIDs ...string) fixture {
	t.Helper()
	if len(fieldIDs) == 0 {
		fieldIDs = []string{"f1"}
	}
	st := memory.New()
	sown := day(t, "2025-06-01")
	for _, id := range fieldIDs {
		st.SaveField(entities.FieldState{ID: id, CropName: "maize", SowingDate: &sown, SoilTexture: entities.SoilLoam})
		for d := sown; !d.After(day(t, "2025-06-10")); d = d.AddDate(0, 0, 1) {
			if d.Equal(day(t, "2025-06-05")) {
				continue
			}
			st.PutObservation(entities.DailyTemperatureObservation{
				FieldID: id, Date: d, MinAirTemp: 18, MaxAirTemp: 32, AvgAirTemp: 25, SampleCount: 24,
			})
		}
	}
	m := metrics.New(nil)
	now := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	tr := gdd.NewTracker(catalog.Default(), st, st, st,
		gdd.WithLogger(zaptest.NewLogger(t).Sugar()),
		gdd.WithMetrics(m),
		gdd.WithClock(func() time.Time { return now }),
		gdd.WithParallelism(2),
	)
	return fixture{store: st, tracker: tr, metrics: m}
}

func TestCalculateDailyRecord(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, gdd.OutcomeCreated, c.Outcome)
	// maize: base 10, ceiling 30 -> (30+18)/2 - 10
	assert.Equal(t, 14.0, c.Record.DailyGDD)
	assert.Equal(t, 14.0, c.Record.CumulativeGDD)
	assert.Equal(t, entities.StageInitial, c.Record.GrowthStage)
	assert.Equal(t, 24, c.Record.ReadingsCount)

	c2, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-02"))
	require.NoError(t, err)
	assert.Equal(t, 28.0, c2.Record.CumulativeGDD)

	f, err := fx.store.Field(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 28.0, f.AccumulatedGDD)
	assert.Equal(t, entities.StageInitial, f.GrowthStage)
}

func TestCalculateDailyRecordNotApplicable(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	c, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-05-31"))
	require.NoError(t, err)
	assert.Equal(t, gdd.OutcomeBeforeSowing, c.Outcome)
	assert.Empty(t, fx.store.Records("f1"))

	first, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-01"))
	require.NoError(t, err)
	again, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, gdd.OutcomeExists, again.Outcome)
	assert.Equal(t, first.Record, again.Record)
	assert.Len(t, fx.store.Records("f1"), 1)
}

func TestCalculateDailyRecordErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-05"))
	assert.ErrorIs(t, err, apperr.ErrNoObservation)

	_, err = fx.tracker.CalculateDailyRecord(ctx, "nope", day(t, "2025-06-05"))
	assert.True(t, apperr.IsNotFound(err))

	fx.store.SaveField(entities.FieldState{ID: "bare", SoilTexture: entities.SoilClay})
	_, err = fx.tracker.CalculateDailyRecord(ctx, "bare", day(t, "2025-06-05"))
	assert.True(t, apperr.IsValidation(err))

	sown := day(t, "2025-06-01")
	fx.store.SaveField(entities.FieldState{ID: "odd", CropName: "quinoa", SowingDate: &sown})
	_, err = fx.tracker.CalculateDailyRecord(ctx, "odd", day(t, "2025-06-02"))
	assert.True(t, apperr.IsNotFound(err))
}

func TestFillGapsIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	res, err := fx.tracker.FillGaps(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 9, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Failed)

	again, err := fx.tracker.FillGaps(ctx, "f1")
	require.NoError(t, err)
	assert.Zero(t, again.Created)

	recs := fx.store.Records("f1")
	require.Len(t, recs, 9)
	for i := 1; i < len(recs); i++ {
		assert.True(t, recs[i].Date.After(recs[i-1].Date))
		assert.GreaterOrEqual(t, recs[i].CumulativeGDD, recs[i-1].CumulativeGDD)
		assert.GreaterOrEqual(t, recs[i].GrowthStage.Ordinal(), recs[i-1].GrowthStage.Ordinal())
	}
	assert.Equal(t, 126.0, recs[len(recs)-1].CumulativeGDD)

	f, err := fx.store.Field(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 126.0, f.AccumulatedGDD)

	assert.Equal(t, 9.0, testutil.ToFloat64(fx.metrics.GDDRecords.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.GDDRecords.WithLabelValues("skipped")))
}

func TestBackfilledDayKeepsFieldOnNewest(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.tracker.FillGaps(ctx, "f1")
	require.NoError(t, err)

	fx.store.PutObservation(entities.DailyTemperatureObservation{
		FieldID: "f1", Date: day(t, "2025-06-05"), MinAirTemp: 18, MaxAirTemp: 32, SampleCount: 12,
	})
	c, err := fx.tracker.CalculateDailyRecord(ctx, "f1", day(t, "2025-06-05"))
	require.NoError(t, err)
	assert.Equal(t, gdd.OutcomeCreated, c.Outcome)
	assert.Equal(t, 70.0, c.Record.CumulativeGDD)

	f, err := fx.store.Field(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 126.0, f.AccumulatedGDD)
}

func TestRecalculateRange(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.tracker.FillGaps(ctx, "f1")
	require.NoError(t, err)

	// a corrected observation for the 3rd: (30+20)/2 - 10 = 15
	fx.store.PutObservation(entities.DailyTemperatureObservation{
		FieldID: "f1", Date: day(t, "2025-06-03"), MinAirTemp: 20, MaxAirTemp: 30, SampleCount: 24,
	})
	res, err := fx.tracker.RecalculateRange(ctx, "f1", day(t, "2025-06-01"), day(t, "2025-06-10"))
	require.NoError(t, err)
	assert.Equal(t, 9, res.Created)
	assert.Equal(t, 1, res.Skipped)

	recs := fx.store.Records("f1")
	require.Len(t, recs, 9)
	assert.Equal(t, 127.0, recs[len(recs)-1].CumulativeGDD)

	f, err := fx.store.Field(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 127.0, f.AccumulatedGDD)

	_, err = fx.tracker.RecalculateRange(ctx, "f1", day(t, "2025-06-10"), day(t, "2025-06-01"))
	assert.True(t, apperr.IsValidation(err))
}

func TestRecalculateMidHistoryRechainsLaterDays(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.tracker.FillGaps(ctx, "f1")
	require.NoError(t, err)

	fx.store.PutObservation(entities.DailyTemperatureObservation{
		FieldID: "f1", Date: day(t, "2025-06-03"), MinAirTemp: 20, MaxAirTemp: 30, SampleCount: 24,
	})
	res, err := fx.tracker.RecalculateRange(ctx, "f1", day(t, "2025-06-03"), day(t, "2025-06-03"))
	require.NoError(t, err)
	assert.Equal(t, 7, res.Created, "06-03 plus the later stored days")
	assert.Equal(t, 1, res.Skipped)

	recs := fx.store.Records("f1")
	require.Len(t, recs, 9)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i].CumulativeGDD, recs[i-1].CumulativeGDD,
			"%s -> %s", recs[i-1].Date.Format(entities.DateLayout), recs[i].Date.Format(entities.DateLayout))
	}
	assert.Equal(t, 43.0, recs[2].CumulativeGDD)
	assert.Equal(t, 57.0, recs[3].CumulativeGDD)
	assert.Equal(t, 127.0, recs[len(recs)-1].CumulativeGDD)

	f, err := fx.store.Field(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 127.0, f.AccumulatedGDD)
	assert.Equal(t, recs[len(recs)-1].GrowthStage, f.GrowthStage)
}

func TestFillGapsAll(t *testing.T) {
	fx := newFixture(t, "a", "b", "c")
	fx.store.SaveField(entities.FieldState{ID: "d", SoilTexture: entities.SoilSandy})
	ctx := context.Background()

	results, err := fx.tracker.FillGapsAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results[:3] {
		assert.Equal(t, 9, r.Created, r.FieldID)
		assert.Empty(t, r.Err)
	}
	assert.Equal(t, "d", results[3].FieldID)
	assert.NotEmpty(t, results[3].Err)

	again, err := fx.tracker.FillGapsAll(ctx, []string{"a", "b"})
	require.NoError(t, err)
	for _, r := range again {
		assert.Zero(t, r.Created)
	}
}

func TestFillGapsAllCancelled(t *testing.T) {
	fx := newFixture(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.tracker.FillGapsAll(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
