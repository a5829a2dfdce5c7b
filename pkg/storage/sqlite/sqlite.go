// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	streaming       INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	request         TEXT NOT NULL,
	result          TEXT,
	started_at      INTEGER NOT NULL,
	completed_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS turns_started_at ON turns (started_at DESC);
CREATE INDEX IF NOT EXISTS turns_conversation_id ON turns (conversation_id);
`

const selectColumns = `id, conversation_id, location, streaming, error, request, result, started_at, completed_at`

// SQLiteDriver implements storage.Driver using SQLite.
type SQLiteDriver struct {
	db *sql.DB
}

// NewSQLiteDriver creates a new SQLite-backed storer.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(dbPath string) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every :memory: connection is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteDriver{db: db}, nil
}

// Put stores turn, replacing any row with the same ID.
func (d *SQLiteDriver) Put(ctx context.Context, turn *llm.Turn) error {
	rec, err := storage.NewRecord(turn)
	if err != nil {
		return err
	}

	var result any
	if rec.Result != nil {
		result = string(rec.Result)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO turns (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ConversationID, rec.Location, rec.Streaming, rec.Error,
		string(rec.Request), result, toNanos(rec.StartedAt), toNanos(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("storing turn %s: %w", rec.ID, err)
	}

	return nil
}

// Get retrieves a turn by its ID.
func (d *SQLiteDriver) Get(ctx context.Context, id string) (*llm.Turn, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM turns WHERE id = ?`, id)

	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	return turn, nil
}

// List returns up to limit turns, most recently started first.
func (d *SQLiteDriver) List(ctx context.Context, limit int) ([]*llm.Turn, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM turns ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		storage.Limit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []*llm.Turn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// Close closes the underlying database.
func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(s scanner) (*llm.Turn, error) {
	var rec storage.Record
	var request string
	var result sql.NullString
	var startedAt, completed int64

	err := s.Scan(&rec.ID, &rec.ConversationID, &rec.Location, &rec.Streaming, &rec.Error,
		&request, &result, &startedAt, &completed)
	if err != nil {
		return nil, err
	}

	rec.Request = []byte(request)
	if result.Valid {
		rec.Result = []byte(result.String)
	}
	rec.StartedAt = fromNanos(startedAt)
	rec.CompletedAt = fromNanos(completed)

	return rec.Turn()
}

// Times are stored as unix nanoseconds; the zero time maps to 0.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
