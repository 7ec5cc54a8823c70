// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/snapurl/snapurl/internal/metrics"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/shortcode"
	"github.com/snapurl/snapurl/internal/store"
	"github.com/snapurl/snapurl/internal/telemetry"
)

// Service errors.
var (
	ErrInvalidURL       = errors.New("invalid URL")
	ErrInvalidValidity  = errors.New("validity must be a positive integer number of minutes")
	ErrInvalidShortCode = errors.New("invalid short code format")
	ErrShortCodeTaken   = errors.New("short code already in use")
	ErrNotFound         = errors.New("short URL not found")
	ErrExpired          = errors.New("short URL has expired")
)

const (
	// DefaultValidityMinutes applies when the caller omits validity.
	DefaultValidityMinutes = 30

	// maxValidityMinutes keeps expiry well inside time.Duration range (10 years).
	maxValidityMinutes = 10 * 365 * 24 * 60

	maxURLLength = 2048

	// persistTimeout bounds a store update once the request is gone.
	persistTimeout = 5 * time.Second
)

// CreateInput defines input for shortening a URL.
type CreateInput struct {
	OriginalURL string
	// Validity in minutes as entered; empty means the default.
	Validity        string
	CustomShortCode string
}

// Registry owns the authoritative set of URL records.
// Every mutation is a read-modify-write against the store, so several
// registries sharing one store (the API and snapctl) never lose updates.
type Registry struct {
	store     store.Store
	generator *shortcode.Generator
	clock     model.Clock
	telemetry telemetry.Emitter
	metrics   metrics.Recorder
	logger    *slog.Logger

	defaultValidity int

	mu      sync.Mutex
	records []*model.URLRecord
	index   map[string]*model.URLRecord
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source.
func WithClock(clock model.Clock) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

// WithGenerator overrides the short code generator.
func WithGenerator(gen *shortcode.Generator) RegistryOption {
	return func(r *Registry) { r.generator = gen }
}

// WithDefaultValidity overrides the validity used when none is given.
func WithDefaultValidity(minutes int) RegistryOption {
	return func(r *Registry) {
		if minutes > 0 {
			r.defaultValidity = minutes
		}
	}
}

// NewRegistry creates an empty Registry backed by st. Call Load to populate it.
func NewRegistry(st store.Store, logger *slog.Logger, emitter telemetry.Emitter, recorder metrics.Recorder, opts ...RegistryOption) *Registry {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	r := &Registry{
		store:           st,
		generator:       shortcode.NewGenerator(),
		clock:           model.RealClock{},
		telemetry:       emitter,
		metrics:         recorder,
		logger:          logger.With("component", "registry"),
		defaultValidity: DefaultValidityMinutes,
		records:         []*model.URLRecord{},
		index:           make(map[string]*model.URLRecord),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces in-memory state with the persisted record set.
// Records that repeat an earlier short code are dropped and click totals
// are realigned with the click list.
func (r *Registry) Load(ctx context.Context) error {
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	records := r.normalize(loaded)

	r.mu.Lock()
	r.adoptLocked(records)
	r.mu.Unlock()

	r.logger.Info("registry loaded", "records", len(records))
	return nil
}

// normalize drops records that repeat an earlier short code and realigns
// click totals with the click list.
func (r *Registry) normalize(loaded []*model.URLRecord) []*model.URLRecord {
	records := make([]*model.URLRecord, 0, len(loaded))
	seen := make(map[string]struct{}, len(loaded))
	for _, rec := range loaded {
		if rec == nil {
			continue
		}
		if _, dup := seen[rec.ShortCode]; dup {
			r.logger.Warn("dropping record with duplicate short code",
				"short_code", rec.ShortCode,
				"id", rec.ID,
			)
			continue
		}
		if !rec.Clicks.Consistent() {
			r.logger.Warn("realigning click total",
				"short_code", rec.ShortCode,
				"total", rec.Clicks.Total,
				"details", len(rec.Clicks.Details),
			)
			rec.Clicks.Total = int64(len(rec.Clicks.Details))
		}
		records = append(records, rec)
		seen[rec.ShortCode] = struct{}{}
	}
	return records
}

// adoptLocked makes records the in-memory state. Callers hold mu.
func (r *Registry) adoptLocked(records []*model.URLRecord) {
	index := make(map[string]*model.URLRecord, len(records))
	for _, rec := range records {
		index[rec.ShortCode] = rec
	}
	r.records = records
	r.index = index
}

// Create validates input, assigns a short code and persists the new record.
func (r *Registry) Create(ctx context.Context, input CreateInput) (*model.URLRecord, error) {
	rec, err := r.create(ctx, input)
	if err != nil {
		r.reportCreateFailure(input, err)
		return nil, err
	}

	r.metrics.IncURLCreated()
	r.telemetry.Emit(telemetry.LevelInfo, telemetry.CategoryAPI, "URL shortened successfully", telemetry.Fields{
		"originalUrl": rec.OriginalURL,
		"shortCode":   rec.ShortCode,
		"expiryDate":  rec.ExpiresAt,
		"custom":      input.CustomShortCode != "",
	})
	return rec, nil
}

func (r *Registry) create(ctx context.Context, input CreateInput) (*model.URLRecord, error) {
	originalURL := strings.TrimSpace(input.OriginalURL)
	if err := validateURL(originalURL); err != nil {
		return nil, err
	}

	validity, err := r.parseValidity(input.Validity)
	if err != nil {
		return nil, err
	}

	custom := strings.TrimSpace(input.CustomShortCode)
	if custom != "" && (!shortcode.ValidateCustom(custom) || shortcode.IsReserved(custom)) {
		return nil, ErrInvalidShortCode
	}

	now := r.clock.Now()
	rec := &model.URLRecord{
		ID:          ulid.Make().String(),
		OriginalURL: originalURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(validity) * time.Minute),
		Clicks:      model.Clicks{Total: 0, Details: []model.ClickEvent{}},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Uniqueness is checked against the set read inside the update, which
	// includes records written by other processes since Load.
	err = r.mutateLocked(ctx, "create", func(current []*model.URLRecord) ([]*model.URLRecord, error) {
		taken := make(map[string]struct{}, len(current))
		for _, existing := range current {
			taken[existing.ShortCode] = struct{}{}
		}

		code := custom
		if code != "" {
			if _, ok := taken[code]; ok {
				return nil, ErrShortCodeTaken
			}
		} else {
			var genErr error
			code, genErr = r.generator.Generate(func(candidate string) bool {
				_, ok := taken[candidate]
				return ok || shortcode.IsReserved(candidate)
			})
			if genErr != nil {
				return nil, fmt.Errorf("failed to generate short code: %w", genErr)
			}
		}

		rec.ShortCode = code
		return append(current, rec), nil
	})
	if err != nil {
		return nil, err
	}

	return rec.Clone(), nil
}

func (r *Registry) reportCreateFailure(input CreateInput, err error) {
	reason := createFailureReason(err)
	r.metrics.IncCreateFailed(reason)

	if errors.Is(err, ErrShortCodeTaken) {
		r.telemetry.Emit(telemetry.LevelWarn, telemetry.CategoryAPI, "Shortcode collision", telemetry.Fields{
			"shortCode": input.CustomShortCode,
		})
	}

	level := telemetry.LevelError
	if errors.Is(err, shortcode.ErrGenerationExhausted) {
		r.logger.Error("short code space exhausted", "error", err)
		level = telemetry.LevelFatal
	}
	r.telemetry.Emit(level, telemetry.CategoryAPI, "URL shortening failed", telemetry.Fields{
		"originalUrl": input.OriginalURL,
		"reason":      reason,
		"error":       err.Error(),
	})
}

func createFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrInvalidValidity):
		return "invalid_validity"
	case errors.Is(err, ErrInvalidShortCode):
		return "invalid_shortcode"
	case errors.Is(err, ErrShortCodeTaken):
		return "shortcode_taken"
	case errors.Is(err, shortcode.ErrGenerationExhausted):
		return "exhausted"
	default:
		return "internal"
	}
}

// List returns copies of all records in creation order.
func (r *Registry) List() []*model.URLRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.CloneRecords(r.records)
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// FindByShortCode returns a copy of the record with the exact code.
func (r *Registry) FindByShortCode(code string) (*model.URLRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.index[code]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// RecordClick appends one click to the record with code and persists it.
func (r *Registry) RecordClick(ctx context.Context, code string, event model.ClickEvent) (*model.URLRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var clicked *model.URLRecord
	err := r.mutateLocked(ctx, "click", func(current []*model.URLRecord) ([]*model.URLRecord, error) {
		clicked = nil
		for _, rec := range current {
			if rec.ShortCode == code {
				clicked = rec
				break
			}
		}
		if clicked == nil {
			return nil, ErrNotFound
		}
		clicked.AddClick(event)
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	return clicked.Clone(), nil
}

// Now exposes the registry clock so collaborators stamp events consistently.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

// mutateLocked applies fn to the persisted record set inside one store
// update and adopts the result. The update outlives a cancelled request.
// Errors from fn are returned as is. When the store itself fails, the
// failure is logged and fn is applied to the in-memory set instead.
// Callers hold mu.
func (r *Registry) mutateLocked(ctx context.Context, op string, fn store.UpdateFunc) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var fnErr error
	updated, err := r.store.Update(ctx, func(current []*model.URLRecord) ([]*model.URLRecord, error) {
		next, err := fn(r.normalize(current))
		fnErr = err
		return next, err
	})
	if err == nil {
		r.adoptLocked(updated)
		return nil
	}
	if fnErr != nil {
		return fnErr
	}

	r.logger.Error("failed to persist records",
		"op", op,
		"records", len(r.records),
		"error", err,
	)
	next, err := fn(r.records)
	if err != nil {
		return err
	}
	r.adoptLocked(next)
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	if len(raw) > maxURLLength {
		return fmt.Errorf("%w: URL exceeds %d characters", ErrInvalidURL, maxURLLength)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}

func (r *Registry) parseValidity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r.defaultValidity, nil
	}

	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 || minutes > maxValidityMinutes {
		return 0, ErrInvalidValidity
	}
	return minutes, nil
}

// ValidityMinutes formats minutes for CreateInput.Validity. Zero or
// negative values are passed through so validation rejects them.
func ValidityMinutes(minutes int) string {
	return strconv.Itoa(minutes)
}
