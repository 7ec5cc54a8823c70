// Package telemetry is the fire-and-forget event sink for application events.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the severity of an event.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Category names the part of the application an event comes from.
type Category string

const (
	CategoryAPI        Category = "api"
	CategoryComponent  Category = "component"
	CategoryHook       Category = "hook"
	CategoryPage       Category = "page"
	CategoryState      Category = "state"
	CategoryStyle      Category = "style"
	CategoryAuth       Category = "auth"
	CategoryConfig     Category = "config"
	CategoryMiddleware Category = "middleware"
	CategoryUtils      Category = "utils"
)

// Fields is the structured context of an event.
// Values must be primitives: string, bool, integers, floats or time.Time.
type Fields map[string]any

// Event is one telemetry record.
type Event struct {
	Level    Level     `json:"level"`
	Category Category  `json:"package"`
	Message  string    `json:"message"`
	Fields   Fields    `json:"context,omitempty"`
	Time     time.Time `json:"time"`
}

// Emitter is what the rest of the application depends on.
type Emitter interface {
	Emit(level Level, category Category, message string, fields Fields)
}

// FlatMessage renders message and context the way the remote log server
// expects them: "message | Context: {...}".
func (e Event) FlatMessage() string {
	if len(e.Fields) == 0 {
		return e.Message + " | Context: {}"
	}
	data, err := json.Marshal(e.Fields)
	if err != nil {
		return e.Message
	}
	return fmt.Sprintf("%s | Context: %s", e.Message, data)
}
