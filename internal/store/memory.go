package store

import (
	"context"
	"sync"

	"github.com/snapurl/snapurl/internal/model"
)

// Memory is an in-process Store. Values are kept encoded so that callers
// never share memory with the stored state.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load returns the stored records.
func (m *Memory) Load(ctx context.Context) ([]*model.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data := m.data[KeyRecords]
	m.mu.RUnlock()
	return decodeRecords(data)
}

// Save replaces the stored records.
func (m *Memory) Save(ctx context.Context, records []*model.URLRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	m.set(KeyRecords, data)
	return nil
}

// Update applies fn to the stored records while holding the write lock.
func (m *Memory) Update(ctx context.Context, fn UpdateFunc) ([]*model.URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := decodeRecords(m.data[KeyRecords])
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
	m.data[KeyRecords] = data
	return next, nil
}

// LoadSession returns the stored session.
func (m *Memory) LoadSession(ctx context.Context) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data := m.data[KeySession]
	m.mu.RUnlock()
	return decodeSession(data)
}

// SaveSession stores the session.
func (m *Memory) SaveSession(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	m.set(KeySession, data)
	return nil
}

// ClearSession removes the stored session.
func (m *Memory) ClearSession(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, KeySession)
	m.mu.Unlock()
	return nil
}

// Raw returns the encoded value under key.
func (m *Memory) Raw(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data[key]...)
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) set(key string, data []byte) {
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
}
