// Package handler provides HTTP request handlers.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/snapurl/snapurl/internal/handler/dto"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/shortcode"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the service banner and fallback responses.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Snapurl URL shortener",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// serviceError maps a registry error to its HTTP status and error body.
func serviceError(err error) (int, dto.ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid URL format", Code: "INVALID_URL"}
	case errors.Is(err, service.ErrInvalidValidity):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "Validity must be a positive integer", Code: "INVALID_VALIDITY"}
	case errors.Is(err, service.ErrInvalidShortCode):
		return http.StatusBadRequest, dto.ErrorResponse{Error: "Shortcode must be 3-20 letters, digits, underscores or hyphens", Code: "INVALID_SHORTCODE"}
	case errors.Is(err, service.ErrShortCodeTaken):
		return http.StatusConflict, dto.ErrorResponse{Error: "Shortcode already exists. Please choose another.", Code: "SHORTCODE_TAKEN"}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, dto.ErrorResponse{Error: "Short URL not found", Code: "LINK_NOT_FOUND"}
	case errors.Is(err, service.ErrExpired):
		return http.StatusGone, dto.ErrorResponse{Error: "Short URL has expired", Code: "LINK_EXPIRED"}
	case errors.Is(err, shortcode.ErrGenerationExhausted):
		return http.StatusServiceUnavailable, dto.ErrorResponse{Error: "No short code available, try again", Code: "GENERATION_EXHAUSTED"}
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error", Code: "INTERNAL_ERROR"}
	}
}

// pause waits d before a simulated backend call completes.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
