// Package weather provides the rain outlook that may soften irrigation urgency.
// Providers compose: OWMClient does the HTTP call, Breaker stops hammering a
// failing upstream and Cache shares outlooks across replicas through Redis.
package weather

import (
	"context"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

type Provider interface {
	Outlook(ctx context.Context, lat, lon float64) (entities.WeatherOutlook, error)
}
