package telemetry

import (
	"fmt"
	"time"
)

const (
	maxMessageLength = 1000
	maxFieldKeyLen   = 64
	maxFields        = 32
)

var validLevels = map[Level]bool{
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
	LevelFatal: true,
}

var validCategories = map[Category]bool{
	CategoryAPI:        true,
	CategoryComponent:  true,
	CategoryHook:       true,
	CategoryPage:       true,
	CategoryState:      true,
	CategoryStyle:      true,
	CategoryAuth:       true,
	CategoryConfig:     true,
	CategoryMiddleware: true,
	CategoryUtils:      true,
}

// ValidateEvent checks an event before it is handed to a sink.
func ValidateEvent(e Event) error {
	if !validLevels[e.Level] {
		return fmt.Errorf("invalid level %q", e.Level)
	}
	if !validCategories[e.Category] {
		return fmt.Errorf("invalid category %q", e.Category)
	}
	if e.Message == "" {
		return fmt.Errorf("message is required")
	}
	if len(e.Message) > maxMessageLength {
		return fmt.Errorf("message too long")
	}
	if len(e.Fields) > maxFields {
		return fmt.Errorf("too many fields")
	}
	for key, value := range e.Fields {
		if key == "" || len(key) > maxFieldKeyLen {
			return fmt.Errorf("invalid field key %q", key)
		}
		if !isPrimitive(value) {
			return fmt.Errorf("field %q has non-primitive type %T", key, value)
		}
	}
	return nil
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return true
	default:
		return false
	}
}
