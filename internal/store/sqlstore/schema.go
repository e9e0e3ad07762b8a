package sqlstore

// The schema sticks to types both PostgreSQL and SQLite accept. Dates are
// stored as YYYY-MM-DD text and timestamps as RFC 3339 text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS fields (
		id              TEXT PRIMARY KEY,
		crop_name       TEXT,
		sowing_date     TEXT,
		soil_texture    TEXT NOT NULL,
		accumulated_gdd DOUBLE PRECISION NOT NULL DEFAULT 0,
		growth_stage    TEXT,
		last_updated    TEXT NOT NULL DEFAULT '',
		latitude        DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude       DOUBLE PRECISION NOT NULL DEFAULT 0,
		flow_lpm        DOUBLE PRECISION NOT NULL DEFAULT 0,
		area_m2         DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS gdd_records (
		field_id       TEXT NOT NULL,
		date           TEXT NOT NULL,
		crop_name      TEXT NOT NULL,
		daily_gdd      DOUBLE PRECISION NOT NULL,
		cumulative_gdd DOUBLE PRECISION NOT NULL,
		avg_air_temp   DOUBLE PRECISION NOT NULL,
		min_air_temp   DOUBLE PRECISION NOT NULL,
		max_air_temp   DOUBLE PRECISION NOT NULL,
		growth_stage   TEXT NOT NULL,
		readings_count INTEGER NOT NULL,
		created_at     TEXT NOT NULL,
		PRIMARY KEY (field_id, date)
	)`,
}
