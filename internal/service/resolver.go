package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snapurl/snapurl/internal/metrics"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/shortcode"
	"github.com/snapurl/snapurl/internal/telemetry"
)

// Outcome is the result of resolving a path segment.
type Outcome int

const (
	// OutcomeNotApplicable means the path does not look like a short code.
	OutcomeNotApplicable Outcome = iota
	// OutcomeRedirect means a record matched and a click was counted.
	OutcomeRedirect
	// OutcomeNotFound means the path looks like a code but no record has it.
	OutcomeNotFound
	// OutcomeExpired means the record exists but is past its expiry and
	// the policy enforces expiry.
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	default:
		return "not_applicable"
	}
}

// ExpiryPolicy controls whether expired records still redirect.
type ExpiryPolicy string

const (
	// ExpiryIgnore resolves expired records like any other and counts the click.
	ExpiryIgnore ExpiryPolicy = "ignore"
	// ExpiryEnforce returns OutcomeExpired and counts nothing.
	ExpiryEnforce ExpiryPolicy = "enforce"
)

// ParseExpiryPolicy parses a policy name. Empty means ExpiryIgnore.
func ParseExpiryPolicy(s string) (ExpiryPolicy, error) {
	switch ExpiryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExpiryIgnore:
		return ExpiryIgnore, nil
	case ExpiryEnforce:
		return ExpiryEnforce, nil
	default:
		return "", fmt.Errorf("unknown expiry policy %q", s)
	}
}

// Resolution is what the resolver decided for one path.
type Resolution struct {
	Outcome Outcome
	// Target is set for OutcomeRedirect.
	Target string
	// Record is a copy of the matched record after the click, if any.
	Record *model.URLRecord
}

// Resolver maps incoming path segments to redirect targets.
type Resolver struct {
	registry  *Registry
	policy    ExpiryPolicy
	telemetry telemetry.Emitter
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewResolver creates a Resolver over registry.
func NewResolver(registry *Registry, policy ExpiryPolicy, logger *slog.Logger, emitter telemetry.Emitter, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	if policy == "" {
		policy = ExpiryIgnore
	}
	return &Resolver{
		registry:  registry,
		policy:    policy,
		telemetry: emitter,
		metrics:   recorder,
		logger:    logger.With("component", "resolver"),
	}
}

// Policy returns the configured expiry policy.
func (r *Resolver) Policy() ExpiryPolicy {
	return r.policy
}

// Resolve decides what path denotes. referrer is the raw Referer of the
// navigation, empty when there is none.
func (r *Resolver) Resolve(ctx context.Context, path, referrer string) Resolution {
	start := time.Now()
	defer func() {
		r.metrics.ObserveResolveDuration(time.Since(start))
	}()

	code := strings.TrimPrefix(path, "/")
	if !shortcode.LooksLikeCode(code) {
		return Resolution{Outcome: OutcomeNotApplicable}
	}

	rec, err := r.registry.FindByShortCode(code)
	if err != nil {
		r.metrics.IncRedirectMiss()
		r.telemetry.Emit(telemetry.LevelWarn, telemetry.CategoryPage, "Short URL not found for redirection", telemetry.Fields{
			"shortCode": code,
		})
		return Resolution{Outcome: OutcomeNotFound}
	}

	now := r.registry.Now()
	if r.policy == ExpiryEnforce && rec.IsExpired(now) {
		r.metrics.IncRedirectExpired()
		r.telemetry.Emit(telemetry.LevelWarn, telemetry.CategoryPage, "Short URL expired", telemetry.Fields{
			"shortCode":  code,
			"expiryDate": rec.ExpiresAt,
		})
		return Resolution{Outcome: OutcomeExpired, Record: rec}
	}

	event := model.NewClickEvent(now, referrer)
	updated, err := r.registry.RecordClick(ctx, code, event)
	if err != nil {
		// Records are never removed, so this only happens if Load replaced
		// the set between lookup and click.
		r.logger.Warn("record vanished during resolve", "short_code", code, "error", err)
		r.metrics.IncRedirectMiss()
		return Resolution{Outcome: OutcomeNotFound}
	}

	r.metrics.IncRedirectHit()
	r.telemetry.Emit(telemetry.LevelInfo, telemetry.CategoryPage, "Short URL clicked and redirected", telemetry.Fields{
		"shortCode":   code,
		"originalUrl": updated.OriginalURL,
		"source":      event.Source,
		"totalClicks": updated.Clicks.Total,
	})

	return Resolution{
		Outcome: OutcomeRedirect,
		Target:  updated.OriginalURL,
		Record:  updated,
	}
}
