package model

import "time"

// Session is the persisted login state. A stored session means logged in.
type Session struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"token_hash"`
	StartedAt time.Time `json:"started_at"`
}

// AuthContext carries the authenticated session through a request.
type AuthContext struct {
	SessionID string
	StartedAt time.Time
}
