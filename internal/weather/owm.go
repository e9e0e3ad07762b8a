package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/config"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

type owmDaily struct {
	Dt      int64   `json:"dt"`
	Rain    float64 `json:"rain"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmResp struct {
	Daily []owmDaily `json:"daily"`
}

// OWMClient reads the One Call daily forecast and sums the rain expected
// inside the lookahead window.
type OWMClient struct {
	apiKey    string
	baseURL   string
	http      *http.Client
	lookahead time.Duration
	threshold float64
	retries   uint64
	now       func() time.Time

	newBackOff func() backoff.BackOff
}

func NewOWMClient(cfg config.WeatherConfig) *OWMClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OWMClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		http:      &http.Client{Timeout: timeout},
		lookahead: cfg.Lookahead(),
		threshold: cfg.RainThresholdMM,
		retries:   2,
		now:       time.Now,

		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func (c *OWMClient) Outlook(ctx context.Context, lat, lon float64) (entities.WeatherOutlook, error) {
	if c.apiKey == "" {
		return entities.WeatherOutlook{}, errors.New("owm: missing api key")
	}
	var out owmResp
	op := func() error {
		var err error
		out, err = c.fetch(ctx, lat, lon)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return entities.WeatherOutlook{}, err
	}
	return c.summarise(out), nil
}

func (c *OWMClient) fetch(ctx context.Context, lat, lon float64) (owmResp, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("exclude", "current,minutely,hourly,alerts")
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return owmResp{}, backoff.Permanent(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return owmResp{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		err := fmt.Errorf("owm status %d: %s", resp.StatusCode, string(b))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return owmResp{}, backoff.Permanent(err)
		}
		return owmResp{}, err
	}
	var out owmResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return owmResp{}, backoff.Permanent(fmt.Errorf("owm decode: %w", err))
	}
	if len(out.Daily) == 0 {
		return owmResp{}, backoff.Permanent(errors.New("owm: no daily data"))
	}
	return out, nil
}

// summarise sums the rain of daily entries from the start of today up to the
// end of the lookahead window.
func (c *OWMClient) summarise(r owmResp) entities.WeatherOutlook {
	now := c.now().UTC()
	from := entities.Day(now)
	until := now.Add(c.lookahead)

	o := entities.WeatherOutlook{Window: c.lookahead, Source: "openweathermap", FetchedAt: now}
	for _, d := range r.Daily {
		t := time.Unix(d.Dt, 0).UTC()
		if t.Before(from) || t.After(until) {
			continue
		}
		o.RainMM += d.Rain
		if d.Rain > 0 && o.Description == "" && len(d.Weather) > 0 {
			o.Description = d.Weather[0].Description
		}
	}
	o.RainExpected = o.RainMM >= c.threshold
	return o
}
