package handler

import (
	"net/http"

	"github.com/snapurl/snapurl/internal/auth"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/stats"
)

// StatisticsHandler serves the per-URL statistics table.
type StatisticsHandler struct {
	registry *service.Registry
	baseURL  string
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(registry *service.Registry, baseURL string) *StatisticsHandler {
	return &StatisticsHandler{registry: registry, baseURL: baseURL}
}

// Get handles GET /api/v1/statistics. It expects the session auth middleware in front.
func (h *StatisticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if auth.AuthFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Login required")
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(h.registry.List(), h.baseURL))
}
