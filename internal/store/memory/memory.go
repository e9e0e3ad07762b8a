// Package memory is an in-process implementation of the engine's storage
// ports, used by tests and by agroctl dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

type recordKey struct {
	field string
	date  time.Time
}

type Store struct {
	mu        sync.RWMutex
	fields    map[string]entities.FieldState
	records   map[recordKey]entities.GDDRecord
	obs       map[recordKey]entities.DailyTemperatureObservation
	snapshots map[string]entities.SensorSnapshot
}

func New() *Store {
	return &Store{
		fields:    make(map[string]entities.FieldState),
		records:   make(map[recordKey]entities.GDDRecord),
		obs:       make(map[recordKey]entities.DailyTemperatureObservation),
		snapshots: make(map[string]entities.SensorSnapshot),
	}
}

var (
	_ gdd.RecordStore       = (*Store)(nil)
	_ gdd.ObservationSource = (*Store)(nil)
	_ gdd.FieldRepository   = (*Store)(nil)
)

func key(fieldID string, date time.Time) recordKey {
	return recordKey{field: fieldID, date: entities.Day(date)}
}

// ---------- fields ----------

// SaveField creates or replaces a field.
func (s *Store) SaveField(f entities.FieldState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.SowingDate != nil {
		d := entities.Day(*f.SowingDate)
		f.SowingDate = &d
	}
	s.fields[f.ID] = f
}

func (s *Store) Field(_ context.Context, id string) (entities.FieldState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fields[id]
	if !ok {
		return entities.FieldState{}, apperr.NotFound("field", id)
	}
	return f, nil
}

func (s *Store) UpdateField(_ context.Context, id string, patch entities.FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok {
		return apperr.NotFound("field", id)
	}
	patch.Apply(&f)
	s.fields[id] = f
	return nil
}

func (s *Store) FieldIDs(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ---------- GDD records ----------

func (s *Store) Get(_ context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key(fieldID, date)]
	return r, ok, nil
}

func (s *Store) LatestBefore(_ context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day := entities.Day(date)
	var (
		best  entities.GDDRecord
		found bool
	)
	for k, r := range s.records {
		if k.field != fieldID || !k.date.Before(day) {
			continue
		}
		if !found || k.date.After(best.Date) {
			best, found = r, true
		}
	}
	return best, found, nil
}

func (s *Store) Insert(_ context.Context, rec entities.GDDRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.FieldID, rec.Date)
	if _, ok := s.records[k]; ok {
		return gdd.ErrRecordExists
	}
	rec.Date = k.date
	s.records[k] = rec
	return nil
}

func (s *Store) DeleteRange(_ context.Context, fieldID string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to = entities.Day(from), entities.Day(to)
	n := 0
	for k := range s.records {
		if k.field == fieldID && !k.date.Before(from) && !k.date.After(to) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) Dates(_ context.Context, fieldID string, from, to time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, to = entities.Day(from), entities.Day(to)
	var out []time.Time
	for k := range s.records {
		if k.field == fieldID && !k.date.Before(from) && !k.date.After(to) {
			out = append(out, k.date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Records returns a field's history in date order.
func (s *Store) Records(fieldID string) []entities.GDDRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []entities.GDDRecord
	for k, r := range s.records {
		if k.field == fieldID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ---------- observations and readings ----------

func (s *Store) PutObservation(o entities.DailyTemperatureObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(o.FieldID, o.Date)
	o.Date = k.date
	s.obs[k] = o
}

func (s *Store) DailyObservation(_ context.Context, fieldID string, date time.Time) (entities.DailyTemperatureObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.obs[key(fieldID, date)]
	if !ok {
		return entities.DailyTemperatureObservation{}, apperr.ErrNoObservation
	}
	return o, nil
}

// PutSnapshot keeps the newest snapshot per field.
func (s *Store) PutSnapshot(snap entities.SensorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.snapshots[snap.FieldID]; ok && cur.TakenAt.After(snap.TakenAt) {
		return
	}
	s.snapshots[snap.FieldID] = snap.Clamp()
}

func (s *Store) LatestSnapshot(_ context.Context, fieldID string) (entities.SensorSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[fieldID]
	if !ok {
		return entities.SensorSnapshot{}, apperr.ErrNoReading
	}
	return snap, nil
}

// Snapshots lists the newest snapshot of every field, ordered by field.
func (s *Store) Snapshots() []entities.SensorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.SensorSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldID < out[j].FieldID })
	return out
}
