// Package stats projects the record set into a table-friendly view.
package stats

import (
	"time"

	"github.com/snapurl/snapurl/internal/model"
)

// ClickRow is one click in a statistics row.
type ClickRow struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Source    string    `json:"source" yaml:"source"`
	Geo       string    `json:"geo" yaml:"geo"`
}

// Row is one shortened URL in the statistics view.
type Row struct {
	ShortCode   string     `json:"shortCode" yaml:"short_code"`
	ShortURL    string     `json:"shortUrl" yaml:"short_url"`
	OriginalURL string     `json:"originalUrl" yaml:"original_url"`
	CreatedAt   time.Time  `json:"creationDate" yaml:"creation_date"`
	ExpiresAt   time.Time  `json:"expiryDate" yaml:"expiry_date"`
	TotalClicks int64      `json:"totalClicks" yaml:"total_clicks"`
	Clicks      []ClickRow `json:"clickDetails" yaml:"click_details"`
}

// Summary is the full statistics view.
type Summary struct {
	TotalURLs   int   `json:"totalUrls" yaml:"total_urls"`
	TotalClicks int64 `json:"totalClicks" yaml:"total_clicks"`
	// Empty is true when there is nothing to show.
	Empty bool  `json:"empty" yaml:"empty"`
	Rows  []Row `json:"rows" yaml:"rows"`
}

// Build returns one row per record in the given order.
func Build(records []*model.URLRecord, baseURL string) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		rows = append(rows, Row{
			ShortCode:   rec.ShortCode,
			ShortURL:    rec.ShortURL(baseURL),
			OriginalURL: rec.OriginalURL,
			CreatedAt:   rec.CreatedAt,
			ExpiresAt:   rec.ExpiresAt,
			TotalClicks: rec.Clicks.Total,
			Clicks:      clickRows(rec.Clicks.Details),
		})
	}
	return rows
}

// Summarize builds rows and aggregates totals.
func Summarize(records []*model.URLRecord, baseURL string) Summary {
	rows := Build(records, baseURL)
	s := Summary{
		TotalURLs: len(rows),
		Empty:     len(rows) == 0,
		Rows:      rows,
	}
	for _, row := range rows {
		s.TotalClicks += row.TotalClicks
	}
	return s
}

// ClickDetails returns the clicks of the record with code, or an empty
// list when no record has it.
func ClickDetails(records []*model.URLRecord, code string) []ClickRow {
	for _, rec := range records {
		if rec != nil && rec.ShortCode == code {
			return clickRows(rec.Clicks.Details)
		}
	}
	return []ClickRow{}
}

func clickRows(events []model.ClickEvent) []ClickRow {
	out := make([]ClickRow, len(events))
	for i, e := range events {
		out[i] = ClickRow{Timestamp: e.Timestamp, Source: e.Source, Geo: e.Geo}
	}
	return out
}
