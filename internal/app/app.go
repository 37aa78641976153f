// Package app owns the top-level application lifecycle: it wires the venue
// clients, execution backend, quote feed, sinks, and notifier into a trading
// session, runs the session with its background workers, and tears
// everything down in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kaiwenyuan/updownbot/internal/config"
)

// App is the root application object for trading one symbol.
type App struct {
	cfg     *config.Config
	symbol  string
	logger  *slog.Logger
	closers []func()
}

// New creates an App trading the given symbol.
func New(cfg *config.Config, symbol string, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		symbol: symbol,
		logger: logger.With("component", "app"),
	}
}

// Run wires all dependencies, starts the session and its background
// workers, and blocks until the context is cancelled. Cleanup runs on
// return.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting",
		"symbol", a.symbol,
		"dry_run", a.cfg.Trading.DryRun,
		"websocket_feed", a.cfg.Feed.UseWebsocket,
		"log_level", a.cfg.LogLevel)

	deps, cleanup, err := Wire(ctx, a.cfg, a.symbol, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Session.Run(ctx)
	})
	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
