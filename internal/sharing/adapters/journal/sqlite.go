package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rider-agent/internal/sharing/domain"
)

// Ensure SQLiteJournal implements the domain.ReadingJournal interface.
var _ domain.ReadingJournal = (*SQLiteJournal)(nil)

// SQLiteJournal keeps a local record of every sampled reading and whether it
// was reported. It exists so an operator can see what a device actually
// sampled across restarts; the controller treats all journal failures as
// best-effort.
type SQLiteJournal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	accuracy_meters REAL NOT NULL,
	heading_degrees REAL,
	speed_mps REAL,
	captured_at TEXT NOT NULL,
	reported_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_readings_reported ON readings (reported_at);
`

func Open(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A local journal has exactly one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, r domain.PositionReading) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO readings (latitude, longitude, accuracy_meters, heading_degrees, speed_mps, captured_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Latitude, r.Longitude, r.AccuracyMeters, nullableFloat(r.HeadingDegrees), nullableFloat(r.SpeedMps), r.CapturedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("append reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append reading id: %w", err)
	}
	return id, nil
}

func (j *SQLiteJournal) MarkReported(ctx context.Context, id int64, at time.Time) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE readings SET reported_at = ? WHERE id = ? AND reported_at IS NULL
	`, at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark reported: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) UnreportedCount(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE reported_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unreported: %w", err)
	}
	return n, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
