// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/snapurl/snapurl/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FixedTime is the reference instant used across tests.
var FixedTime = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// NewRecord builds a record created at FixedTime with a 30 minute window
// and the given number of direct clicks.
func NewRecord(id, code, target string, clicks int) *model.URLRecord {
	rec := &model.URLRecord{
		ID:          id,
		OriginalURL: target,
		ShortCode:   code,
		CreatedAt:   FixedTime,
		ExpiresAt:   FixedTime.Add(30 * time.Minute),
		Clicks:      model.Clicks{Details: []model.ClickEvent{}},
	}
	for i := 0; i < clicks; i++ {
		rec.AddClick(model.NewClickEvent(FixedTime.Add(time.Duration(i+1)*time.Minute), ""))
	}
	return rec
}
