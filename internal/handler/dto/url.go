// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/snapurl/snapurl/internal/model"
)

// MaxBatchSize is the number of URLs one batch request may shorten.
const MaxBatchSize = 5

// Validity is a validity window in minutes as sent by the client. It
// accepts a JSON number, a JSON string or null; the registry validates it.
type Validity string

// UnmarshalJSON implements json.Unmarshaler.
func (v *Validity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Validity(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Validity(n.String())
	default:
		return errors.New("validity must be a number or a string")
	}
	return nil
}

// CreateURLRequest represents the request body for shortening a URL.
type CreateURLRequest struct {
	URL       string   `json:"url"`
	Validity  Validity `json:"validity,omitempty"`
	ShortCode string   `json:"shortcode,omitempty"`
}

// BatchCreateRequest shortens up to MaxBatchSize URLs in one call.
type BatchCreateRequest struct {
	URLs []CreateURLRequest `json:"urls"`
}

// BatchItemResult is the outcome for one entry of a batch.
type BatchItemResult struct {
	Index int            `json:"index"`
	URL   *URLResponse   `json:"url,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// BatchCreateResponse lists per-item results in request order.
type BatchCreateResponse struct {
	Results []BatchItemResult `json:"results"`
	Created int               `json:"created"`
	Failed  int               `json:"failed"`
}

// ClickResponse is one click in API responses.
type ClickResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Geo       string    `json:"geo"`
}

// ClicksResponse is the click aggregate of a record.
type ClicksResponse struct {
	Total   int64           `json:"total"`
	Details []ClickResponse `json:"details"`
}

// URLResponse represents a shortened URL in API responses.
type URLResponse struct {
	ID           string         `json:"id"`
	OriginalURL  string         `json:"originalUrl"`
	ShortCode    string         `json:"shortCode"`
	ShortURL     string         `json:"shortUrl"`
	CreationDate time.Time      `json:"creationDate"`
	ExpiryDate   time.Time      `json:"expiryDate"`
	Clicks       ClicksResponse `json:"clicks"`
}

// URLListResponse is the list of all shortened URLs in creation order.
type URLListResponse struct {
	Data  []URLResponse `json:"data"`
	Total int           `json:"total"`
}

// SessionResponse describes the login state. Token is only set on login.
type SessionResponse struct {
	LoggedIn  bool       `json:"loggedIn"`
	SessionID string     `json:"sessionId,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	Token     string     `json:"token,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToURLResponse converts a record to URLResponse.
func ToURLResponse(rec *model.URLRecord, baseURL string) *URLResponse {
	details := make([]ClickResponse, len(rec.Clicks.Details))
	for i, c := range rec.Clicks.Details {
		details[i] = ClickResponse{Timestamp: c.Timestamp, Source: c.Source, Geo: c.Geo}
	}
	return &URLResponse{
		ID:           rec.ID,
		OriginalURL:  rec.OriginalURL,
		ShortCode:    rec.ShortCode,
		ShortURL:     rec.ShortURL(baseURL),
		CreationDate: rec.CreatedAt,
		ExpiryDate:   rec.ExpiresAt,
		Clicks: ClicksResponse{
			Total:   rec.Clicks.Total,
			Details: details,
		},
	}
}

// ToURLListResponse converts records to URLListResponse.
func ToURLListResponse(records []*model.URLRecord, baseURL string) *URLListResponse {
	data := make([]URLResponse, len(records))
	for i, rec := range records {
		data[i] = *ToURLResponse(rec, baseURL)
	}
	return &URLListResponse{Data: data, Total: len(data)}
}
