package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snapurl/snapurl/internal/handler/dto"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/stats"
)

// URLHandler handles shortening and lookup endpoints.
type URLHandler struct {
	registry *service.Registry
	baseURL  string
	latency  time.Duration
	logger   *slog.Logger
}

// NewURLHandler creates a new URLHandler. latency is added before each
// mutating or listing call to mimic a remote backend.
func NewURLHandler(registry *service.Registry, baseURL string, latency time.Duration, logger *slog.Logger) *URLHandler {
	return &URLHandler{
		registry: registry,
		baseURL:  baseURL,
		latency:  latency,
		logger:   logger,
	}
}

// Create handles POST /api/v1/urls.
func (h *URLHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if err := pause(r.Context(), h.latency); err != nil {
		return
	}

	rec, err := h.registry.Create(r.Context(), toCreateInput(req))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToURLResponse(rec, h.baseURL))
}

// CreateBatch handles POST /api/v1/urls/batch. Items are created one by
// one in request order; a failed item does not stop the rest.
func (h *URLHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if len(req.URLs) == 0 || len(req.URLs) > dto.MaxBatchSize {
		writeError(w, http.StatusBadRequest, "INVALID_BATCH", "Batch must contain between 1 and 5 URLs")
		return
	}

	if err := pause(r.Context(), h.latency); err != nil {
		return
	}

	resp := dto.BatchCreateResponse{Results: make([]dto.BatchItemResult, 0, len(req.URLs))}
	for i, item := range req.URLs {
		result := dto.BatchItemResult{Index: i}
		rec, err := h.registry.Create(r.Context(), toCreateInput(item))
		if err != nil {
			_, body := serviceError(err)
			result.Error = &body
			resp.Failed++
		} else {
			result.URL = dto.ToURLResponse(rec, h.baseURL)
			resp.Created++
		}
		resp.Results = append(resp.Results, result)
	}

	status := http.StatusCreated
	if resp.Created == 0 {
		status = http.StatusBadRequest
	} else if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, resp)
}

// List handles GET /api/v1/urls.
func (h *URLHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := pause(r.Context(), h.latency); err != nil {
		return
	}
	writeJSON(w, http.StatusOK, dto.ToURLListResponse(h.registry.List(), h.baseURL))
}

// Get handles GET /api/v1/urls/{shortCode}.
func (h *URLHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registry.FindByShortCode(chi.URLParam(r, "shortCode"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToURLResponse(rec, h.baseURL))
}

// Clicks handles GET /api/v1/urls/{shortCode}/clicks.
func (h *URLHandler) Clicks(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shortCode")
	rec, err := h.registry.FindByShortCode(code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shortCode":   rec.ShortCode,
		"totalClicks": rec.Clicks.Total,
		"clicks":      stats.ClickDetails([]*model.URLRecord{rec}, code),
	})
}

func (h *URLHandler) writeServiceError(w http.ResponseWriter, err error) {
	status, body := serviceError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("url request failed", "code", body.Code, "error", err)
	}
	writeJSON(w, status, body)
}

func toCreateInput(req dto.CreateURLRequest) service.CreateInput {
	return service.CreateInput{
		OriginalURL:     req.URL,
		Validity:        string(req.Validity),
		CustomShortCode: req.ShortCode,
	}
}
