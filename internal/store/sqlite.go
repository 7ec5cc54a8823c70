package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snapurl/snapurl/internal/model"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

const sqliteUpsert = `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// SQLite is a file-backed Store, the default for a single node.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Wait for another process holding the write lock instead of failing with SQLITE_BUSY.
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Load returns the stored records.
func (s *SQLite) Load(ctx context.Context) ([]*model.URLRecord, error) {
	data, err := s.get(ctx, KeyRecords)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// Save replaces the stored records.
func (s *SQLite) Save(ctx context.Context, records []*model.URLRecord) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	return s.put(ctx, KeyRecords, data)
}

// Update applies fn inside a BEGIN IMMEDIATE transaction, which takes the
// database write lock before the records are read.
func (s *SQLite) Update(ctx context.Context, fn UpdateFunc) (_ []*model.URLRecord, err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			// Rollback must run even when ctx is done.
			conn.ExecContext(context.WithoutCancel(ctx), `ROLLBACK`)
		}
	}()

	var value string
	err = conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, KeyRecords).Scan(&value)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read %s: %w", KeyRecords, err)
	}
	current, err := decodeRecords([]byte(value))
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	data, err := encodeRecords(next)
	if err != nil {
		return nil, err
	}
	if _, err = conn.ExecContext(ctx, sqliteUpsert, KeyRecords, string(data), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", KeyRecords, err)
	}
	if _, err = conn.ExecContext(ctx, `COMMIT`); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

// LoadSession returns the stored session.
func (s *SQLite) LoadSession(ctx context.Context) (*model.Session, error) {
	data, err := s.get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

// SaveSession stores the session.
func (s *SQLite) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return s.put(ctx, KeySession, data)
}

// ClearSession removes the stored session.
func (s *SQLite) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, KeySession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLite) put(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
