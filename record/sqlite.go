package record

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite mirrors readings into a SQLite database so history can be
// queried without re-parsing the text log. It implements Store; Query
// reads the history back.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens (or creates) the SQLite file at dbPath and runs the
// migration that creates the readings table if it does not exist.
// The caller must call Close when the program shuts down.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	// The modernc.org driver is pure Go and works without CGO.
	dsn := fmt.Sprintf("file:%s?_fk=1", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS readings (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    ts        DATETIME NOT NULL,
    value     REAL NOT NULL,
    unit      TEXT NOT NULL DEFAULT '',
    err       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create readings table: %w", err)
	}
	s.log.Info("SQLite migration applied")
	return nil
}

// Append stores one reading as a single row. Timestamps are stored as
// RFC3339 UTC text so rows sort and compare lexically.
func (s *SQLite) Append(ctx context.Context, r Reading) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (ts, value, unit, err) VALUES (?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339), r.Value, r.Unit, r.Err)
	if err != nil {
		return &WriteError{Path: "sqlite", Err: err}
	}
	return nil
}

// Query returns readings between from and to inclusive, ascending.
func (s *SQLite) Query(ctx context.Context, from, to time.Time) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value, unit, err FROM readings WHERE ts >= ? AND ts <= ? ORDER BY ts ASC, id ASC`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var (
			r  Reading
			ts string
		)
		if err := rows.Scan(&ts, &r.Value, &r.Unit, &r.Err); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse stored timestamp %q: %w", ts, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
