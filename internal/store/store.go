// Package store provides the persistent registry store.
// Every backend is a small key-value store holding the JSON-encoded record
// list and the current session.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/snapurl/snapurl/internal/model"
)

// Keys under which state is persisted.
const (
	KeyRecords = "shortenedUrls"
	KeySession = "session"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
	// ErrConflict is returned when an update keeps losing to concurrent writers.
	ErrConflict = errors.New("store update conflict")
)

// UpdateFunc receives the freshly read record set and returns the set to write.
type UpdateFunc func(records []*model.URLRecord) ([]*model.URLRecord, error)

// Store persists the record set and the login session.
type Store interface {
	// Load returns all records in creation order. A missing key yields an empty list.
	Load(ctx context.Context) ([]*model.URLRecord, error)
	// Save replaces the persisted record set.
	Save(ctx context.Context, records []*model.URLRecord) error
	// Update reads the record set, applies fn and writes the result as one
	// atomic unit, so concurrent writers sharing the store never lose each
	// other's changes. An error from fn aborts the update and is returned
	// unchanged. fn may run more than once when the backend retries.
	Update(ctx context.Context, fn UpdateFunc) ([]*model.URLRecord, error)

	// LoadSession returns the persisted session, or nil when logged out.
	LoadSession(ctx context.Context) (*model.Session, error)
	SaveSession(ctx context.Context, session *model.Session) error
	ClearSession(ctx context.Context) error

	Ping(ctx context.Context) error
	Close() error
}

func encodeRecords(records []*model.URLRecord) ([]byte, error) {
	if records == nil {
		records = []*model.URLRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

func decodeRecords(data []byte) ([]*model.URLRecord, error) {
	if len(data) == 0 {
		return []*model.URLRecord{}, nil
	}
	var records []*model.URLRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	kept := make([]*model.URLRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.Clicks.Details == nil {
			rec.Clicks.Details = []model.ClickEvent{}
		}
		kept = append(kept, rec)
	}
	return kept, nil
}

func encodeSession(session *model.Session) ([]byte, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*model.Session, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
