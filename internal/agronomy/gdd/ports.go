package gdd

import (
	"context"
	"errors"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// ErrRecordExists is returned by RecordStore.Insert for a (field, date) already stored.
var ErrRecordExists = errors.New("gdd record already exists")

// RecordStore persists immutable daily GDD records. Dates are UTC midnight.
type RecordStore interface {
	Get(ctx context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error)
	// LatestBefore returns the most recent record strictly before date.
	LatestBefore(ctx context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error)
	Insert(ctx context.Context, rec entities.GDDRecord) error
	// DeleteRange removes records in [from, to] and reports how many went.
	DeleteRange(ctx context.Context, fieldID string, from, to time.Time) (int, error)
	// Dates lists stored record dates in [from, to] in ascending order.
	Dates(ctx context.Context, fieldID string, from, to time.Time) ([]time.Time, error)
}

// ObservationSource yields the aggregated air temperature of one field-day,
// or apperr.ErrNoObservation.
type ObservationSource interface {
	DailyObservation(ctx context.Context, fieldID string, date time.Time) (entities.DailyTemperatureObservation, error)
}

type FieldRepository interface {
	Field(ctx context.Context, id string) (entities.FieldState, error)
	UpdateField(ctx context.Context, id string, patch entities.FieldPatch) error
	FieldIDs(ctx context.Context) ([]string, error)
}

// CropLookup is satisfied by *catalog.Catalog.
type CropLookup interface {
	Lookup(name string) (entities.CropParameters, error)
}
