// Package journal keeps a sqlite log of every snapshot recording attempt and
// its outcome. The CSV files stay the primary output; the journal only makes
// past attempts browsable.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000"

// DefaultLimit caps List when no positive limit is given.
const DefaultLimit = 200

// Entry is one finished recording attempt.
type Entry struct {
	ID           string
	RequestedAt  time.Time
	CompletedAt  time.Time
	Device       string
	DelaySeconds int
	Outcome      string
	PPM          int
	Captured     bool // PPM holds a captured value
	Path         string
	Error        string
}

// SQLite stores entries in the recordings table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an initialised database. The schema must already exist.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Open initialises the database at path and returns a journal over it.
func Open(path string) (*SQLite, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db), nil
}

// Close closes the underlying database.
func (j *SQLite) Close() error {
	return j.db.Close()
}

// Append inserts e. A missing ID or CompletedAt is filled in.
func (j *SQLite) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CompletedAt.IsZero() {
		e.CompletedAt = time.Now()
	}
	if e.RequestedAt.IsZero() {
		e.RequestedAt = e.CompletedAt
	}

	var ppm sql.NullInt64
	if e.Captured {
		ppm = sql.NullInt64{Int64: int64(e.PPM), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO recordings (id, requested_at, completed_at, device, delay_s, outcome, ppm, path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.RequestedAt.UTC().Format(timeLayout),
		e.CompletedAt.UTC().Format(timeLayout),
		e.Device,
		e.DelaySeconds,
		e.Outcome,
		ppm,
		nullString(e.Path),
		nullString(e.Error),
	)
	if err != nil {
		return fmt.Errorf("append recording %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (j *SQLite) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, requested_at, completed_at, device, delay_s, outcome, ppm, path, error
		FROM recordings
		ORDER BY requested_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, 32)
	for rows.Next() {
		var (
			e                    Entry
			requested, completed string
			ppm                  sql.NullInt64
			path, errText        sql.NullString
		)
		if err := rows.Scan(&e.ID, &requested, &completed, &e.Device, &e.DelaySeconds, &e.Outcome, &ppm, &path, &errText); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		if e.RequestedAt, err = parseTime(requested); err != nil {
			return nil, err
		}
		if e.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		if ppm.Valid {
			e.PPM, e.Captured = int(ppm.Int64), true
		}
		e.Path = path.String
		e.Error = errText.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
