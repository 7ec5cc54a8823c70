package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/snapurl/snapurl/internal/model"
)

func TestDecodeRecords_SkipsNullEntries(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		codes []string
	}{
		{name: "only null", data: `[null]`},
		{name: "null between records", data: `[{"shortCode":"aaa111"},null,{"shortCode":"bbb222"}]`, codes: []string{"aaa111", "bbb222"}},
		{name: "json null", data: `null`},
		{name: "missing", data: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := decodeRecords([]byte(tt.data))
			if err != nil {
				t.Fatalf("decodeRecords failed: %v", err)
			}
			if records == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(records) != len(tt.codes) {
				t.Fatalf("expected %d records, got %d", len(tt.codes), len(records))
			}
			for i, rec := range records {
				if rec.ShortCode != tt.codes[i] {
					t.Errorf("record %d: expected %s, got %s", i, tt.codes[i], rec.ShortCode)
				}
				if rec.Clicks.Details == nil {
					t.Errorf("record %d: click details should be an empty list", i)
				}
			}
		})
	}
}

func TestMemory_LoadWithNullEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.set(KeyRecords, []byte(`[null,{"shortCode":"abc123"}]`))

	records, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 || records[0].ShortCode != "abc123" {
		t.Fatalf("expected only abc123, got %+v", records)
	}

	// An update rewrites the list without the null.
	if _, err := m.Update(ctx, func(current []*model.URLRecord) ([]*model.URLRecord, error) { return current, nil }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := string(m.Raw(KeyRecords)); strings.Contains(got, "null") {
		t.Errorf("null entry survived update: %s", got)
	}
}

func TestSQLite_LoadWithNullEntry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "snapurl.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	if err := s.put(ctx, KeyRecords, []byte(`[null]`)); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	records, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
