// Package main is snapctl, a command-line client for the local snapurl
// registry. It works directly against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snapurl/snapurl/internal/config"
	"github.com/snapurl/snapurl/internal/metrics"
	"github.com/snapurl/snapurl/internal/model"
	"github.com/snapurl/snapurl/internal/service"
	"github.com/snapurl/snapurl/internal/session"
	"github.com/snapurl/snapurl/internal/store"
	"github.com/snapurl/snapurl/internal/telemetry"
)

const closeTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	err := c.rootCmd().ExecuteContext(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if cerr := c.close(closeCtx); cerr != nil {
		fmt.Fprintln(os.Stderr, "close:", cerr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the services one snapctl invocation works with.
type app struct {
	baseURL  string
	registry *service.Registry
	sessions *session.Manager
	resolver *service.Resolver
	closers  []func(context.Context) error
}

type appOptions struct {
	baseURL         string
	policy          service.ExpiryPolicy
	defaultValidity int
	clock           model.Clock
}

func newApp(st store.Store, logger *slog.Logger, emitter telemetry.Emitter, opts appOptions) *app {
	if opts.clock == nil {
		opts.clock = model.RealClock{}
	}
	recorder := metrics.NewNoop()
	registry := service.NewRegistry(st, logger, emitter, recorder,
		service.WithClock(opts.clock),
		service.WithDefaultValidity(opts.defaultValidity),
	)
	return &app{
		baseURL:  opts.baseURL,
		registry: registry,
		sessions: session.NewManager(st, logger, emitter, opts.clock),
		resolver: service.NewResolver(registry, opts.policy, logger, emitter, recorder),
	}
}

// restore loads the record set and the login session.
func (a *app) restore(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.registry.Load(gctx) })
	g.Go(func() error { return a.sessions.Restore(gctx) })
	return g.Wait()
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openApp builds an app from environment configuration.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	policy, err := service.ParseExpiryPolicy(cfg.ExpiryPolicy)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	var emitter telemetry.Emitter = telemetry.Nop{}
	var client *telemetry.Client
	if cfg.TelemetrySink != config.TelemetrySinkNone {
		client = telemetry.NewClient(telemetry.NewLogSink(logger), logger, nil)
		emitter = client
	}

	a := newApp(st, logger, emitter, appOptions{
		baseURL:         cfg.BaseURL,
		policy:          policy,
		defaultValidity: cfg.DefaultValidity,
	})
	a.closers = append(a.closers, func(context.Context) error { return st.Close() })
	if client != nil {
		a.closers = append(a.closers, client.Close)
	}

	if err := a.restore(ctx); err != nil {
		_ = a.close(ctx)
		return nil, err
	}
	return a, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// cli owns the app for one invocation. Tests inject app directly.
type cli struct {
	app   *app
	owned bool
}

func (c *cli) close(ctx context.Context) error {
	if c.app == nil || !c.owned {
		return nil
	}
	return c.app.close(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snapctl",
		Short: "Manage the local snapurl registry",
		Long: `snapctl shortens URLs, resolves short codes and shows click
statistics against the store configured by STORE_BACKEND.

Statistics require a login session; everything else is open.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.app != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
			if err != nil {
				return err
			}
			c.app = a
			c.owned = true
			return nil
		},
	}

	root.AddCommand(
		c.shortenCmd(),
		c.listCmd(),
		c.resolveCmd(),
		c.clicksCmd(),
		c.statsCmd(),
		c.loginCmd(),
		c.logoutCmd(),
	)
	return root
}
