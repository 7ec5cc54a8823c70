// Package model defines domain entities for the application.
package model

import (
	"net/url"
	"strings"
	"time"
)

const (
	// SourceDirect is recorded when a click carries no referrer.
	SourceDirect = "direct"

	// GeoUnknown is the placeholder location; there is no geo lookup.
	GeoUnknown = "Unknown Location"

	maxSourceLength = 500
)

// URLRecord represents one shortened URL and its click history.
// ShortCode is authoritative; the short URL is derived from it on demand.
type URLRecord struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	CreatedAt   time.Time `json:"creationDate"`
	ExpiresAt   time.Time `json:"expiryDate"`
	Clicks      Clicks    `json:"clicks"`
}

// Clicks aggregates click events for a record.
// Total always equals len(Details).
type Clicks struct {
	Total   int64        `json:"total"`
	Details []ClickEvent `json:"details"`
}

// ClickEvent is one resolved redirection hit.
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Geo       string    `json:"geo"`
}

// NewClickEvent builds a click event from a raw referrer.
// An empty or unusable referrer is recorded as SourceDirect.
func NewClickEvent(at time.Time, referrer string) ClickEvent {
	return ClickEvent{
		Timestamp: at.UTC(),
		Source:    SanitizeSource(referrer),
		Geo:       GeoUnknown,
	}
}

// ShortURL derives the display URL from the serving origin.
func (r *URLRecord) ShortURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + r.ShortCode
}

// IsExpired reports whether the record's validity window has passed at now.
func (r *URLRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// AddClick appends a click and keeps the counter in step.
func (r *URLRecord) AddClick(event ClickEvent) {
	r.Clicks.Details = append(r.Clicks.Details, event)
	r.Clicks.Total = int64(len(r.Clicks.Details))
}

// Consistent reports whether the aggregate counter matches the detail rows.
func (c Clicks) Consistent() bool {
	return c.Total == int64(len(c.Details))
}

// Clone returns a deep copy of the record.
func (r *URLRecord) Clone() *URLRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Clicks.Details = make([]ClickEvent, len(r.Clicks.Details))
	copy(cp.Clicks.Details, r.Clicks.Details)
	return &cp
}

// CloneRecords deep-copies a record list.
func CloneRecords(records []*URLRecord) []*URLRecord {
	out := make([]*URLRecord, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

// SanitizeSource strips query and fragment from a referrer and truncates it.
// Returns SourceDirect for an empty or unparsable referrer.
func SanitizeSource(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return SourceDirect
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return SourceDirect
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	sanitized := parsed.String()
	if sanitized == "" {
		return SourceDirect
	}
	if len(sanitized) > maxSourceLength {
		return sanitized[:maxSourceLength]
	}
	return sanitized
}
