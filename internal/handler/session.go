package handler

import (
	"log/slog"
	"net/http"

	"github.com/snapurl/snapurl/internal/auth"
	"github.com/snapurl/snapurl/internal/handler/dto"
	"github.com/snapurl/snapurl/internal/session"
)

// SessionHandler handles login and logout.
type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// Login handles POST /api/v1/session. It replaces any existing session
// and returns the new bearer token once.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, token, err := h.sessions.Login(r.Context())
	if err != nil {
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	startedAt := sess.StartedAt
	writeJSON(w, http.StatusCreated, dto.SessionResponse{
		LoggedIn:  true,
		SessionID: sess.ID,
		StartedAt: &startedAt,
		Token:     token,
	})
}

// Status handles GET /api/v1/session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.SessionResponse{LoggedIn: h.sessions.LoggedIn()})
}

// Logout handles DELETE /api/v1/session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.SessionIDFromContext(r.Context())
	if _, err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	h.logger.Info("session ended", "session_id", sessionID)
	writeJSON(w, http.StatusOK, dto.SessionResponse{LoggedIn: false})
}
