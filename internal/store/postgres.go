package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/snapurl/snapurl/internal/model"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS snapurl_kv (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Postgres is a Store backed by a PostgreSQL key-value table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and ensures the table exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Load returns the stored records.
func (p *Postgres) Load(ctx context.Context) ([]*model.URLRecord, error) {
	data, err := p.get(ctx, KeyRecords)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// Save replaces the stored records.
func (p *Postgres) Save(ctx context.Context, records []*model.URLRecord) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	return p.put(ctx, KeyRecords, data)
}

// Update applies fn in a transaction that holds a row lock on the records
// key, so concurrent writers are serialized.
func (p *Postgres) Update(ctx context.Context, fn UpdateFunc) ([]*model.URLRecord, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row must exist for FOR UPDATE to lock it.
	seed := `
		INSERT INTO snapurl_kv (key, value, updated_at)
		VALUES ($1, '[]'::jsonb, NOW())
		ON CONFLICT (key) DO NOTHING
	`
	if _, err := tx.Exec(ctx, seed, KeyRecords); err != nil {
		return nil, fmt.Errorf("failed to seed %s: %w", KeyRecords, err)
	}

	var value []byte
	err = tx.QueryRow(ctx, `SELECT value::text FROM snapurl_kv WHERE key = $1 FOR UPDATE`, KeyRecords).Scan(&value)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", KeyRecords, err)
	}
	current, err := decodeRecords(value)
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
	update := `UPDATE snapurl_kv SET value = $2::jsonb, updated_at = NOW() WHERE key = $1`
	if _, err := tx.Exec(ctx, update, KeyRecords, string(data)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", KeyRecords, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return next, nil
}

// LoadSession returns the stored session.
func (p *Postgres) LoadSession(ctx context.Context) (*model.Session, error) {
	data, err := p.get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

// SaveSession stores the session.
func (p *Postgres) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return p.put(ctx, KeySession, data)
}

// ClearSession removes the stored session.
func (p *Postgres) ClearSession(ctx context.Context) error {
	return p.deleteKeys(ctx, KeySession)
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `SELECT value::text FROM snapurl_kv WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) put(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO snapurl_kv (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := p.pool.Exec(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) deleteKeys(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM snapurl_kv WHERE key = ANY($1)`, pq.Array(keys)); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}
