package weather

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// Breaker fails fast while the wrapped provider keeps failing.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Provider, failures int, openFor time.Duration) *Breaker {
	if failures < 1 {
		failures = 1
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "weather-outlook",
			Interval: time.Minute,
			Timeout:  openFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(failures)
			},
		}),
	}
}

func (b *Breaker) Outlook(ctx context.Context, lat, lon float64) (entities.WeatherOutlook, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Outlook(ctx, lat, lon)
	})
	if err != nil {
		return entities.WeatherOutlook{}, err
	}
	return v.(entities.WeatherOutlook), nil
}

func (b *Breaker) State() gobreaker.State { return b.cb.State() }
