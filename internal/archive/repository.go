package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schema holds one row per archival cycle. Air-quality columns are nullable:
// a cycle with no fresh reading still produces a row.
const schema = `
CREATE TABLE IF NOT EXISTS archive (
  ts             TEXT NOT NULL PRIMARY KEY,
  aqi            INTEGER,
  main_pollutant TEXT,
  aqi_level      TEXT
);
CREATE INDEX IF NOT EXISTS idx_archive_ts ON archive(ts);
`

// Record is one archived row. Nil pointers persist as NULL.
type Record struct {
	Timestamp     time.Time
	AQI           *int
	MainPollutant *string
	Level         *string
}

// Open opens (or creates) the archive database and applies the schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("archive open: %w", err)
	}
	// SQLite handles one writer at a time; a single pooled connection also
	// keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return db, nil
}

// Repository persists archival records.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecord stores one record, keyed by its timestamp.
func (r *Repository) InsertRecord(rec Record) error {
	ts := rec.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err := r.db.Exec(
		`INSERT INTO archive (ts, aqi, main_pollutant, aqi_level) VALUES (?, ?, ?, ?)`,
		ts, nullableInt(rec.AQI), nullableString(rec.MainPollutant), nullableString(rec.Level),
	)
	return err
}

// LatestRecords returns up to limit records, newest first.
func (r *Repository) LatestRecords(limit int) ([]Record, error) {
	rows, err := r.db.Query(
		`SELECT ts, aqi, main_pollutant, aqi_level FROM archive ORDER BY ts DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			ts        string
			aqi       sql.NullInt64
			pollutant sql.NullString
			level     sql.NullString
		)
		if err := rows.Scan(&ts, &aqi, &pollutant, &level); err != nil {
			return nil, err
		}

		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse archive timestamp %q: %w", ts, err)
		}
		rec.Timestamp = t

		if aqi.Valid {
			v := int(aqi.Int64)
			rec.AQI = &v
		}
		if pollutant.Valid {
			v := pollutant.String
			rec.MainPollutant = &v
		}
		if level.Valid {
			v := level.String
			rec.Level = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
