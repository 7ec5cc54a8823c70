package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snapurl/snapurl/internal/service"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	resolver *service.Resolver
	logger   *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(resolver *service.Resolver, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Redirect handles GET /{shortCode}.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	res := h.resolver.Resolve(r.Context(), shortCode, r.Header.Get("Referer"))

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

	switch res.Outcome {
	case service.OutcomeRedirect:
		h.logger.Info("redirect_success",
			"short_code", shortCode,
			"total_clicks", res.Record.Clicks.Total,
		)
		w.Header().Set("Cache-Control", "private, no-store")
		http.Redirect(w, r, res.Target, http.StatusFound)
	case service.OutcomeNotFound:
		h.logger.Debug("redirect_not_found", "short_code", shortCode)
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Short URL not found")
	case service.OutcomeExpired:
		h.logger.Debug("redirect_expired", "short_code", shortCode)
		writeError(w, http.StatusGone, "LINK_EXPIRED", "Short URL has expired")
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	}
}
