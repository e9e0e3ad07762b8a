// Package sqlstore persists fields and GDD records with sqlx on PostgreSQL
// (lib/pq) or SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy/gdd"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/apperr"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Store struct {
	db *sqlx.DB
}

var (
	_ gdd.RecordStore     = (*Store)(nil)
	_ gdd.FieldRepository = (*Store)(nil)
)

// Open connects and bootstraps the schema. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time; avoids SQLITE_BUSY under the batch runner
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func day(t time.Time) string { return entities.Day(t).Format(entities.DateLayout) }

// ---------- fields ----------

type fieldRow struct {
	ID             string         `db:"id"`
	CropName       sql.NullString `db:"crop_name"`
	SowingDate     sql.NullString `db:"sowing_date"`
	SoilTexture    string         `db:"soil_texture"`
	AccumulatedGDD float64        `db:"accumulated_gdd"`
	GrowthStage    sql.NullString `db:"growth_stage"`
	LastUpdated    string         `db:"last_updated"`
	Latitude       float64        `db:"latitude"`
	Longitude      float64        `db:"longitude"`
	FlowLpm        float64        `db:"flow_lpm"`
	AreaM2         float64        `db:"area_m2"`
}

func (r fieldRow) toEntity() (entities.FieldState, error) {
	f := entities.FieldState{
		ID:             r.ID,
		CropName:       r.CropName.String,
		SoilTexture:    entities.SoilTexture(r.SoilTexture),
		AccumulatedGDD: r.AccumulatedGDD,
		GrowthStage:    entities.GrowthStage(r.GrowthStage.String),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		FlowLpm:        r.FlowLpm,
		AreaM2:         r.AreaM2,
	}
	if r.SowingDate.Valid && r.SowingDate.String != "" {
		d, err := entities.ParseDay(r.SowingDate.String)
		if err != nil {
			return f, fmt.Errorf("sqlstore: field %s sowing date: %w", r.ID, err)
		}
		f.SowingDate = &d
	}
	if r.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.LastUpdated)
		if err != nil {
			return f, fmt.Errorf("sqlstore: field %s last_updated: %w", r.ID, err)
		}
		f.LastUpdated = ts
	}
	return f, nil
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// SaveField inserts the field or replaces every column of an existing one.
func (s *Store) SaveField(ctx context.Context, f entities.FieldState) error {
	var sowing sql.NullString
	if f.SowingDate != nil {
		sowing = nullString(day(*f.SowingDate))
	}
	q := s.db.Rebind(`INSERT INTO fields
		(id, crop_name, sowing_date, soil_texture, accumulated_gdd, growth_stage, last_updated, latitude, longitude, flow_lpm, area_m2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			crop_name = excluded.crop_name,
			sowing_date = excluded.sowing_date,
			soil_texture = excluded.soil_texture,
			accumulated_gdd = excluded.accumulated_gdd,
			growth_stage = excluded.growth_stage,
			last_updated = excluded.last_updated,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			flow_lpm = excluded.flow_lpm,
			area_m2 = excluded.area_m2`)
	_, err := s.db.ExecContext(ctx, q,
		f.ID, nullString(f.CropName), sowing, string(f.SoilTexture), f.AccumulatedGDD,
		nullString(string(f.GrowthStage)), timestamp(f.LastUpdated),
		f.Latitude, f.Longitude, f.FlowLpm, f.AreaM2)
	if err != nil {
		return fmt.Errorf("sqlstore: save field %s: %w", f.ID, err)
	}
	return nil
}

func (s *Store) Field(ctx context.Context, id string) (entities.FieldState, error) {
	var r fieldRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT * FROM fields WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.FieldState{}, apperr.NotFound("field", id)
	}
	if err != nil {
		return entities.FieldState{}, fmt.Errorf("sqlstore: get field %s: %w", id, err)
	}
	return r.toEntity()
}

func (s *Store) FieldIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM fields ORDER BY id`); err != nil {
		return nil, fmt.Errorf("sqlstore: list fields: %w", err)
	}
	return ids, nil
}

// UpdateField writes only the columns present in the patch; null members are
// stored as NULL (or zero for accumulated GDD).
func (s *Store) UpdateField(ctx context.Context, id string, p entities.FieldPatch) error {
	if p.Empty() {
		if _, err := s.Field(ctx, id); err != nil {
			return err
		}
		return nil
	}
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.CropName.Present() {
		v, _ := p.CropName.Get()
		set("crop_name", nullString(v))
	}
	if p.SowingDate.Present() {
		var v sql.NullString
		if d, ok := p.SowingDate.Get(); ok {
			v = nullString(day(d))
		}
		set("sowing_date", v)
	}
	if p.SoilTexture.Present() {
		v, ok := p.SoilTexture.Get()
		if !ok {
			return apperr.Invalid("field", id, "soil texture cannot be cleared")
		}
		set("soil_texture", string(v))
	}
	if p.AccumulatedGDD.Present() {
		v, _ := p.AccumulatedGDD.Get()
		set("accumulated_gdd", v)
	}
	if p.GrowthStage.Present() {
		v, _ := p.GrowthStage.Get()
		set("growth_stage", nullString(string(v)))
	}
	if p.LastUpdated.Present() {
		v, _ := p.LastUpdated.Get()
		set("last_updated", timestamp(v))
	}

	args = append(args, id)
	q := s.db.Rebind(`UPDATE fields SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlstore: update field %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("field", id)
	}
	return nil
}

// ---------- GDD records ----------

type recordRow struct {
	FieldID       string  `db:"field_id"`
	Date          string  `db:"date"`
	CropName      string  `db:"crop_name"`
	DailyGDD      float64 `db:"daily_gdd"`
	CumulativeGDD float64 `db:"cumulative_gdd"`
	AvgAirTemp    float64 `db:"avg_air_temp"`
	MinAirTemp    float64 `db:"min_air_temp"`
	MaxAirTemp    float64 `db:"max_air_temp"`
	GrowthStage   string  `db:"growth_stage"`
	ReadingsCount int     `db:"readings_count"`
	CreatedAt     string  `db:"created_at"`
}

func (r recordRow) toEntity() (entities.GDDRecord, error) {
	d, err := entities.ParseDay(r.Date)
	if err != nil {
		return entities.GDDRecord{}, fmt.Errorf("sqlstore: record date %q: %w", r.Date, err)
	}
	created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return entities.GDDRecord{
		FieldID:       r.FieldID,
		Date:          d,
		CropName:      r.CropName,
		DailyGDD:      r.DailyGDD,
		CumulativeGDD: r.CumulativeGDD,
		AvgAirTemp:    r.AvgAirTemp,
		MinAirTemp:    r.MinAirTemp,
		MaxAirTemp:    r.MaxAirTemp,
		GrowthStage:   entities.GrowthStage(r.GrowthStage),
		ReadingsCount: r.ReadingsCount,
		CreatedAt:     created,
	}, nil
}

func (s *Store) getRecord(ctx context.Context, query string, args ...interface{}) (entities.GDDRecord, bool, error) {
	var r recordRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.GDDRecord{}, false, nil
	}
	if err != nil {
		return entities.GDDRecord{}, false, err
	}
	rec, err := r.toEntity()
	return rec, err == nil, err
}

func (s *Store) Get(ctx context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error) {
	return s.getRecord(ctx, `SELECT * FROM gdd_records WHERE field_id = ? AND date = ?`, fieldID, day(date))
}

func (s *Store) LatestBefore(ctx context.Context, fieldID string, date time.Time) (entities.GDDRecord, bool, error) {
	return s.getRecord(ctx,
		`SELECT * FROM gdd_records WHERE field_id = ? AND date < ? ORDER BY date DESC LIMIT 1`,
		fieldID, day(date))
}

func (s *Store) Insert(ctx context.Context, rec entities.GDDRecord) error {
	q := s.db.Rebind(`INSERT INTO gdd_records
		(field_id, date, crop_name, daily_gdd, cumulative_gdd, avg_air_temp, min_air_temp, max_air_temp, growth_stage, readings_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (field_id, date) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, q,
		rec.FieldID, day(rec.Date), rec.CropName, rec.DailyGDD, rec.CumulativeGDD,
		rec.AvgAirTemp, rec.MinAirTemp, rec.MaxAirTemp, string(rec.GrowthStage),
		rec.ReadingsCount, timestamp(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlstore: insert record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return gdd.ErrRecordExists
	}
	return nil
}

func (s *Store) DeleteRange(ctx context.Context, fieldID string, from, to time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM gdd_records WHERE field_id = ? AND date >= ? AND date <= ?`),
		fieldID, day(from), day(to))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: delete records: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) Dates(ctx context.Context, fieldID string, from, to time.Time) ([]time.Time, error) {
	var raw []string
	err := s.db.SelectContext(ctx, &raw,
		s.db.Rebind(`SELECT date FROM gdd_records WHERE field_id = ? AND date >= ? AND date <= ? ORDER BY date`),
		fieldID, day(from), day(to))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list dates: %w", err)
	}
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := entities.ParseDay(r)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: record date %q: %w", r, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Records lists a field's history in date order.
func (s *Store) Records(ctx context.Context, fieldID string) ([]entities.GDDRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT * FROM gdd_records WHERE field_id = ? ORDER BY date`), fieldID); err != nil {
		return nil, fmt.Errorf("sqlstore: list records: %w", err)
	}
	out := make([]entities.GDDRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
