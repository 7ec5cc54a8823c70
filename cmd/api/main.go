// Package main is the entrypoint for the Snapurl API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/snapurl/snapurl/internal/config"
	"github.com/snapurl/snapurl/internal/handler"
	"github.com/snapurl/snapurl/internal/metrics"
	"github.com/snapurl/snapurl/internal/middleware"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/server"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/session"
	"github.com/snapurl/snapurl/internal/store"
	"github.com/snapurl/snapurl/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Open the registry store
	st, err := store.Open(ctx, storeOptions(cfg))
	if err != nil {
		logger.Error(
			"failed to open store",
			slog.String("backend", cfg.StoreBackend),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("store opened", "backend", cfg.StoreBackend)

	metricsRecorder := metrics.NewInMemory()

	// Telemetry
	sink, closeSink, err := newTelemetrySink(ctx, cfg, st, logger)
	if err != nil {
		logger.Error("failed to configure telemetry",
			slog.String("sink", cfg.TelemetrySink),
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
		)
		_ = st.Close()
		os.Exit(1)
	}
	var emitter telemetry.Emitter = telemetry.Nop{}
	var telemetryClient *telemetry.Client
	if sink != nil {
		telemetryClient = telemetry.NewClient(sink, logger, metricsRecorder)
		emitter = telemetryClient
	}

	// Initialize services
	policy, err := service.ParseExpiryPolicy(cfg.ExpiryPolicy)
	if err != nil {
		logger.Error("invalid expiry policy", "error", err)
		os.Exit(1)
	}
	registry := service.NewRegistry(st, logger, emitter, metricsRecorder,
		service.WithDefaultValidity(cfg.DefaultValidity),
	)
	sessions := session.NewManager(st, logger, emitter, model.RealClock{})
	resolver := service.NewResolver(registry, policy, logger, emitter, metricsRecorder)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return registry.Load(gctx) })
	g.Go(func() error { return sessions.Restore(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error("failed to restore state", "error", err)
		_ = st.Close()
		os.Exit(1)
	}

	// Initialize handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(st, cfg.StoreBackend)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)
	urlHandler := handler.NewURLHandler(registry, cfg.BaseURL, cfg.SimulatedLatency, logger)
	redirectHandler := handler.NewRedirectHandler(resolver, logger)
	sessionHandler := handler.NewSessionHandler(sessions, logger)
	statisticsHandler := handler.NewStatisticsHandler(registry, cfg.BaseURL)

	// Setup router
	r := setupRouter(h, healthHandler, metricsHandler, urlHandler, redirectHandler, sessionHandler, statisticsHandler, sessions, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// LIFO: telemetry drains before its redis client and the store close.
	srv.OnShutdown("store", func(ctx context.Context) error { return st.Close() })
	if closeSink != nil {
		srv.OnShutdown("telemetry-sink", func(ctx context.Context) error { return closeSink() })
	}
	if telemetryClient != nil {
		srv.OnShutdown("telemetry", telemetryClient.Close)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"expiry_policy", string(policy),
		"telemetry_sink", cfg.TelemetrySink,
		"records", registry.Len(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Backend:     cfg.StoreBackend,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	}
}

// newTelemetrySink builds the configured sink. A nil sink means telemetry
// is off. The returned close func, if any, releases resources the sink owns.
func newTelemetrySink(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) (telemetry.Sink, func() error, error) {
	switch cfg.TelemetrySink {
	case config.TelemetrySinkNone:
		return nil, nil, nil
	case config.TelemetrySinkLog, "":
		return telemetry.NewLogSink(logger), nil, nil
	case config.TelemetrySinkHTTP:
		client := telemetry.NewHTTPClient()
		tokens := telemetry.NewTokenSource(cfg.TelemetryAuthURL, telemetry.Credentials{
			ClientID:     cfg.TelemetryClientID,
			ClientSecret: cfg.TelemetryClientSecret,
		}, client)
		sink := telemetry.NewHTTPSink(cfg.TelemetryLogURL, tokens, client)
		return telemetry.NewRetrySink(sink, telemetry.DefaultMaxAttempts), nil, nil
	case config.TelemetrySinkRedis:
		// Share the store's connection when it already talks to Redis.
		if rs, ok := st.(*store.Redis); ok {
			return telemetry.NewStreamSink(rs.Client()), nil, nil
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return telemetry.NewStreamSink(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown telemetry sink %q", cfg.TelemetrySink)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	metricsHandler *handler.MetricsHandler,
	urlHandler *handler.URLHandler,
	redirectHandler *handler.RedirectHandler,
	sessionHandler *handler.SessionHandler,
	statisticsHandler *handler.StatisticsHandler,
	authenticator middleware.Authenticator,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.GetCORSAllowedOrigins())))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	// Root info endpoint
	r.Get("/", h.Hello)

	// API v1 routes. Shortening is open to everyone; statistics need a session.
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/urls", func(r chi.Router) {
			r.Get("/", urlHandler.List)
			r.Post("/", urlHandler.Create)
			r.Post("/batch", urlHandler.CreateBatch)
			r.Get("/{shortCode}", urlHandler.Get)
			r.Get("/{shortCode}/clicks", urlHandler.Clicks)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Status)
			r.Post("/", sessionHandler.Login)
			r.With(middleware.SessionAuth(authenticator, logger)).Delete("/", sessionHandler.Logout)
		})

		r.With(middleware.SessionAuth(authenticator, logger)).Get("/statistics", statisticsHandler.Get)
	})

	// Redirect handler (no auth required)
	r.Get("/{shortCode}", redirectHandler.Redirect)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
