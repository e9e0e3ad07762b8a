package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq/rabbitmqtest"
)

var probe = Probe{FieldID: "f1", SensorID: "s1", Latitude: 41.5, Longitude: 12.4, RootDepthCm: 30}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGenerator(decay float64) (*DataGenerator, *clock) {
	c := &clock{t: time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)}
	g := NewDataGenerator(decay, DefaultClimate())
	g.now = c.now
	g.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return g, c
}

func TestGeneratorDriesOut(t *testing.T) {
	g, c := newTestGenerator(0.01)

	first := g.Next(probe)
	assert.Equal(t, 30.0, first.VWC)
	assert.Equal(t, "f1", first.FieldID)
	assert.False(t, first.Aggregated)
	require.NotNil(t, first.AirTemp)
	assert.InDelta(t, 29.0, *first.AirTemp, 0.01)
	assert.InDelta(t, 21.12, first.SoilTemp, 0.01)

	c.advance(time.Hour)
	second := g.Next(probe)
	assert.InDelta(t, 29.4, second.VWC, 1e-9)
	assert.Less(t, *second.AirTemp, *first.AirTemp)
}

func TestGeneratorNeverGoesNegative(t *testing.T) {
	g, c := newTestGenerator(1)
	g.Next(probe)
	c.advance(24 * time.Hour)
	assert.Equal(t, 0.0, g.Next(probe).VWC)
}

func TestApplyDepth(t *testing.T) {
	g, _ := newTestGenerator(0)

	inc := g.ApplyDepth(15, 30)
	assert.InDelta(t, 5.0, inc, 1e-9)
	assert.InDelta(t, 35.0, g.Next(probe).VWC, 1e-9, "water applied before seeding carries over")

	g.ApplyDepth(20, 30)
	assert.InDelta(t, 41.67, g.Next(probe).VWC, 1e-9)

	assert.Zero(t, g.ApplyDepth(-3, 30))
	assert.Zero(t, g.ApplyDepth(10, 0))
}

func TestSeedFromSoilGrids(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wv0010", r.URL.Query().Get("property"))
		_, _ = fmt.Fprint(w, `{"properties":{"layers":[{"name":"wv0010","depths":[{"values":{"Q0.5":270,"mean":null}}]}]}}`)
	}))
	defer srv.Close()

	g, _ := newTestGenerator(0)
	g.soilGridsURL = srv.URL + "/?lat=%f&lon=%f&property=wv0010"

	assert.InDelta(t, 27.0, g.Seed(context.Background(), probe), 1e-9)
	assert.InDelta(t, 27.0, g.Next(probe).VWC, 1e-9)
}

func TestSeedFallsBackAfterRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g, _ := newTestGenerator(0)
	g.soilGridsURL = srv.URL + "/?lat=%f&lon=%f"

	assert.Equal(t, defaultSeedVWC, g.Seed(context.Background(), probe))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSeedDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad coordinates", http.StatusBadRequest)
	}))
	defer srv.Close()

	g, _ := newTestGenerator(0)
	g.soilGridsURL = srv.URL + "/?lat=%f&lon=%f"

	assert.Equal(t, defaultSeedVWC, g.Seed(context.Background(), probe))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestWVToPercent(t *testing.T) {
	assert.InDelta(t, 27.0, wvToPercent(270), 1e-9)
	assert.InDelta(t, 27.0, wvToPercent(0.27), 1e-9)
	assert.Equal(t, 100.0, wvToPercent(5000))
}

func TestPublishOnce(t *testing.T) {
	g, _ := newTestGenerator(0)
	pub := &rabbitmqtest.Publisher{}
	sim := NewSensorSimulator(nil, pub, g, probe, "", zaptest.NewLogger(t).Sugar())

	require.NoError(t, sim.PublishOnce())
	sent := pub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sensor/data/f1/s1", sent[0].Topic)
	assert.Equal(t, byte(0), sent[0].QoS)

	var sd messages.SensorData
	require.NoError(t, json.Unmarshal(sent[0].Payload, &sd))
	assert.Equal(t, "s1", sd.SensorID)
	assert.Equal(t, 30.0, sd.VWC)
}

func TestDecisionFeedback(t *testing.T) {
	g, _ := newTestGenerator(0)
	g.Next(probe)
	cons := rabbitmqtest.NewConsumer()
	sim := NewSensorSimulator(cons, &rabbitmqtest.Publisher{}, g, probe, "", zaptest.NewLogger(t).Sugar())
	require.NotNil(t, sim)

	topic := "event/irrigationDecision/f1/s1"
	irrigate := messages.IrrigationDecision{
		ID: "d1", FieldID: "f1", SensorID: "s1",
		Decision: entities.DecisionIrrigateNow, SuggestedDepthMm: 15,
	}
	require.NoError(t, cons.DeliverJSON(topic, irrigate))
	assert.InDelta(t, 35.0, g.VWC(), 1e-9)

	require.NoError(t, cons.DeliverJSON(topic, irrigate), "redelivery")
	assert.InDelta(t, 35.0, g.VWC(), 1e-9)

	other := irrigate
	other.ID, other.FieldID = "d2", "f2"
	require.NoError(t, cons.DeliverJSON(topic, other))
	soon := irrigate
	soon.ID, soon.Decision = "d3", entities.DecisionIrrigateSoon
	require.NoError(t, cons.DeliverJSON(topic, soon))
	assert.InDelta(t, 35.0, g.VWC(), 1e-9)

	assert.Error(t, cons.Deliver(topic, []byte("{not json")))
}

func TestStartClosesPublisher(t *testing.T) {
	g, _ := newTestGenerator(0)
	cons := rabbitmqtest.NewConsumer()
	pub := &rabbitmqtest.Publisher{}
	sim := NewSensorSimulator(cons, pub, g, probe, "", zaptest.NewLogger(t).Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sim.Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	<-cons.Started()
	require.Eventually(t, func() bool { return len(pub.Sent()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.True(t, pub.Closed())
}
