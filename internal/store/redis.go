package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snapurl/snapurl/internal/model"
)

const (
	redisKeyPrefix      = "snapurl:"
	redisUpdateAttempts = 10
)

// Redis is a Store backed by plain Redis string keys.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to redisURL.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Load returns the stored records.
func (r *Redis) Load(ctx context.Context) ([]*model.URLRecord, error) {
	data, err := r.get(ctx, KeyRecords)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// Save replaces the stored records.
func (r *Redis) Save(ctx context.Context, records []*model.URLRecord) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	return r.set(ctx, KeyRecords, data)
}

// Update applies fn under WATCH and writes the result in MULTI/EXEC,
// retrying when another client changed the key in between.
func (r *Redis) Update(ctx context.Context, fn UpdateFunc) ([]*model.URLRecord, error) {
	key := redisKeyPrefix + KeyRecords
	var next []*model.URLRecord

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get %s failed: %w", KeyRecords, err)
		}
		current, err := decodeRecords(data)
		if err != nil {
			return err
		}
		next, err = fn(current)
		if err != nil {
			return err
		}
		encoded, err := encodeRecords(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("redis update %s: %w", KeyRecords, ErrConflict)
}

// LoadSession returns the stored session.
func (r *Redis) LoadSession(ctx context.Context) (*model.Session, error) {
	data, err := r.get(ctx, KeySession)
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

// SaveSession stores the session.
func (r *Redis) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return r.set(ctx, KeySession, data)
}

// ClearSession removes the stored session.
func (r *Redis) ClearSession(ctx context.Context) error {
	if err := r.client.Del(ctx, redisKeyPrefix+KeySession).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client.
// The telemetry stream sink shares it when both use Redis.
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	return data, nil
}

func (r *Redis) set(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}
