package sensor_simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/messages"
)

const (
	// defaultSeedVWC is used when SoilGrids is unreachable.
	defaultSeedVWC = 30.0

	// DefaultSoilGridsURL is queried once at startup, never per tick.
	DefaultSoilGridsURL = "https://rest.isric.org/soilgrids/v2.0/properties/query?lat=%f&lon=%f&property=wv0010"
)

// Probe identifies the simulated sensor and the root zone it sits in.
type Probe struct {
	FieldID     string
	SensorID    string
	Latitude    float64
	Longitude   float64
	RootDepthCm float64
}

// Climate drives the diurnal temperature curves.
type Climate struct {
	AirMean      float64 // °C
	AirAmplitude float64 // half of the daily swing
	SoilMean     float64
	SoilDamping  float64 // fraction of the air swing reaching the probe
}

func DefaultClimate() Climate {
	return Climate{AirMean: 22, AirAmplitude: 7, SoilMean: 19, SoilDamping: 0.35}
}

// DataGenerator keeps the simulated soil water content and advances it in time.
type DataGenerator struct {
	mu          sync.Mutex
	seeded      bool
	last        time.Time
	vwc         float64 // %
	pending     float64 // water applied before the first reading
	decayPerMin float64 // percentage points lost per minute
	climate     Climate

	httpClient   *http.Client
	soilGridsURL string
	newBackOff   func() backoff.BackOff
	now          func() time.Time
}

// NewDataGenerator builds a generator losing decayPerMin VWC points per minute.
func NewDataGenerator(decayPerMin float64, climate Climate) *DataGenerator {
	return &DataGenerator{
		decayPerMin:  math.Max(0, decayPerMin),
		climate:      climate,
		httpClient:   &http.Client{Timeout: 8 * time.Second},
		soilGridsURL: DefaultSoilGridsURL,
		newBackOff:   func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		now:          time.Now,
	}
}

// Seed sets the starting VWC from SoilGrids, falling back to 30%.
func (g *DataGenerator) Seed(ctx context.Context, p Probe) float64 {
	seed := defaultSeedVWC
	if p.Latitude != 0 || p.Longitude != 0 {
		if v, err := g.fetchSoilMoisture(ctx, p.Latitude, p.Longitude); err == nil {
			seed = v
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seeded {
		g.seedLocked(seed)
	}
	return g.vwc
}

func (g *DataGenerator) seedLocked(seed float64) {
	g.vwc = clampPct(seed + g.pending)
	g.pending = 0
	g.last = g.now().UTC()
	g.seeded = true
}

// Next advances the state to now and returns a raw reading.
func (g *DataGenerator) Next(p Probe) messages.SensorData {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seeded {
		g.seedLocked(defaultSeedVWC)
	}
	now := g.now().UTC()
	if dt := now.Sub(g.last).Minutes(); dt > 0 {
		g.vwc = clampPct(g.vwc - g.decayPerMin*dt)
	}
	g.last = now

	air := round2(g.airTemp(now))
	return messages.SensorData{
		FieldID:   p.FieldID,
		SensorID:  p.SensorID,
		VWC:       round2(g.vwc),
		SoilTemp:  round2(g.soilTemp(now)),
		AirTemp:   &air,
		Timestamp: now,
	}
}

// ApplyDepth adds depthMM of water spread over the root zone.
func (g *DataGenerator) ApplyDepth(depthMM, rootDepthCm float64) float64 {
	if depthMM <= 0 || rootDepthCm <= 0 {
		return 0
	}
	inc := depthMM / (rootDepthCm * 10) * 100
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seeded {
		g.pending += inc
		return inc
	}
	g.vwc = clampPct(g.vwc + inc)
	return inc
}

func (g *DataGenerator) VWC() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vwc
}

// Air peaks at 15:00 UTC, the soil probe two hours later.
func (g *DataGenerator) airTemp(t time.Time) float64 {
	return g.climate.AirMean + g.climate.AirAmplitude*math.Sin(2*math.Pi*(hourOf(t)-9)/24)
}

func (g *DataGenerator) soilTemp(t time.Time) float64 {
	swing := g.climate.AirAmplitude * g.climate.SoilDamping
	return g.climate.SoilMean + swing*math.Sin(2*math.Pi*(hourOf(t)-11)/24)
}

func hourOf(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func (g *DataGenerator) fetchSoilMoisture(ctx context.Context, lat, lon float64) (float64, error) {
	url := fmt.Sprintf(g.soilGridsURL, lat, lon)
	var out float64
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "agronomy-sensor-simulator/1.0")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("soilgrids HTTP %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("soilgrids HTTP %d: %s", resp.StatusCode, string(body)))
		}

		var parsed soilGridsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("soilgrids decode: %w", err))
		}
		v, ok := parsed.firstValue()
		if !ok {
			return backoff.Permanent(errors.New("soilgrids: moisture value not found"))
		}
		out = wvToPercent(v)
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), 1), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return 0, err
	}
	return out, nil
}

type soilGridsResponse struct {
	Properties struct {
		Layers []struct {
			Name   string `json:"name"`
			Depths []struct {
				Values map[string]*float64 `json:"values"`
			} `json:"depths"`
		} `json:"layers"`
	} `json:"properties"`
}

func (r soilGridsResponse) firstValue() (float64, bool) {
	for _, l := range r.Properties.Layers {
		for _, d := range l.Depths {
			for _, k := range []string{"Q0.5", "mean", "Q0.95", "Q0.05"} {
				if v := d.Values[k]; v != nil {
					return *v, true
				}
			}
		}
	}
	return 0, false
}

// wvToPercent converts SoilGrids wv layers to VWC %. They are published
// in 10^-3 cm³/cm³, so 270 means 27%.
func wvToPercent(x float64) float64 {
	if x <= 1.5 {
		x *= 1000
	}
	return clampPct(x / 10)
}

func clampPct(x float64) float64 {
	return math.Min(100, math.Max(0, x))
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
