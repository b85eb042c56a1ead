// Package history keeps a SQLite ledger of OTA session outcomes.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/moffa90/go-bleota/ota"
)

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a session id has no record.
var ErrNotFound = errors.New("session not found")

// Store implements ota.Recorder on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger at dbPath and runs the schema migration.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			outcome       TEXT NOT NULL,
			expected_size INTEGER NOT NULL,
			bytes_written INTEGER NOT NULL,
			region        TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores rec. A second record for the same session replaces the first.
func (s *Store) Record(ctx context.Context, rec ota.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(id, outcome, expected_size, bytes_written, region, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, string(rec.Outcome), int64(rec.ExpectedSize), int64(rec.BytesWritten),
		rec.Region, rec.Error,
		rec.StartedAt.UTC().Format(timeLayout), rec.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

// Get returns the record for a session id.
func (s *Store) Get(ctx context.Context, id string) (ota.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, outcome, expected_size, bytes_written, region, error, started_at, finished_at
		FROM sessions WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ota.Record{}, ErrNotFound
	}
	return rec, err
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ota.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, outcome, expected_size, bytes_written, region, error, started_at, finished_at
		FROM sessions ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ota.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ota.Record, error) {
	var (
		rec                 ota.Record
		outcome             string
		expected, written   int64
		startedAt, finished string
	)
	if err := row.Scan(&rec.SessionID, &outcome, &expected, &written, &rec.Region, &rec.Error, &startedAt, &finished); err != nil {
		return ota.Record{}, err
	}

	rec.Outcome = ota.Outcome(outcome)
	rec.ExpectedSize = uint32(expected)
	rec.BytesWritten = uint64(written)

	var err error
	if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return ota.Record{}, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return ota.Record{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return rec, nil
}
