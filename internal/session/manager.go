// Package session manages the single mock login session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/snapurl/snapurl/internal/auth"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/store"
	"github.com/snapurl/snapurl/internal/telemetry"
)

// ErrUnauthorized is returned when a token does not match the live session.
var ErrUnauthorized = errors.New("unauthorized")

// Manager holds the current session. There is at most one: logging in
// again replaces it.
type Manager struct {
	store     store.Store
	clock     model.Clock
	telemetry telemetry.Emitter
	logger    *slog.Logger

	mu      sync.RWMutex
	current *model.Session
}

// NewManager creates a logged-out Manager. Call Restore to pick up a
// persisted session.
func NewManager(st store.Store, logger *slog.Logger, emitter telemetry.Emitter, clock model.Clock) *Manager {
	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	if clock == nil {
		clock = model.RealClock{}
	}
	return &Manager{
		store:     st,
		clock:     clock,
		telemetry: emitter,
		logger:    logger.With("component", "session"),
	}
}

// Restore loads the persisted session, if any.
func (m *Manager) Restore(ctx context.Context) error {
	sess, err := m.store.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	if sess != nil {
		m.logger.Info("session restored", "session_id", sess.ID)
	}
	return nil
}

// Login starts a new session and returns it with its plaintext token.
// The token is only ever returned here.
func (m *Manager) Login(ctx context.Context) (*model.Session, string, error) {
	tok, err := auth.GenerateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	sess := &model.Session{
		ID:        uuid.NewString(),
		TokenHash: tok.Hash,
		StartedAt: m.clock.Now(),
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, sess); err != nil {
		m.logger.Error("failed to persist session", "session_id", sess.ID, "error", err)
	}

	m.telemetry.Emit(telemetry.LevelInfo, telemetry.CategoryAuth, "User logged in", telemetry.Fields{
		"sessionId": sess.ID,
	})

	out := *sess
	return &out, tok.Plaintext, nil
}

// Logout ends the current session. It reports false when nobody was
// logged in. Records are never touched.
func (m *Manager) Logout(ctx context.Context) (bool, error) {
	m.mu.Lock()
	sess := m.current
	m.current = nil
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx); err != nil {
		m.logger.Error("failed to clear persisted session", "error", err)
	}

	if sess == nil {
		return false, nil
	}

	m.telemetry.Emit(telemetry.LevelInfo, telemetry.CategoryAuth, "User logged out", telemetry.Fields{
		"sessionId": sess.ID,
	})
	return true, nil
}

// LoggedIn reports whether a session is active.
func (m *Manager) LoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// Authenticate checks token against the live session.
func (m *Manager) Authenticate(ctx context.Context, token string) (*model.AuthContext, error) {
	if !auth.ValidateTokenFormat(token) {
		return nil, ErrUnauthorized
	}

	m.mu.RLock()
	sess := m.current
	m.mu.RUnlock()
	if sess == nil {
		return nil, ErrUnauthorized
	}

	ok, err := auth.VerifyToken(token, sess.TokenHash)
	if err != nil {
		m.logger.Error("stored session hash is unreadable", "session_id", sess.ID, "error", err)
		return nil, ErrUnauthorized
	}
	if !ok {
		m.telemetry.Emit(telemetry.LevelWarn, telemetry.CategoryAuth, "Authentication failed", telemetry.Fields{
			"reason": "token_mismatch",
		})
		return nil, ErrUnauthorized
	}

	return &model.AuthContext{SessionID: sess.ID, StartedAt: sess.StartedAt}, nil
}
