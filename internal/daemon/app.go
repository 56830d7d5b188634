// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tuto/meetd/internal/config"
)

// App owns the long-lived runtime lifecycle (config watcher, reload signal)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	reloadSignal os.Signal
}

// NewApp creates a new App. holder may be nil when hot reload is not wanted.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or a server fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// The watcher is best-effort: startup does not fail without it.
	if a.holder != nil {
		if err := a.holder.Watch(ctx); err != nil {
			a.logger.Warn().Err(err).Str("event", "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.holder.Wait()
	}

	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.holder.Reload(); err != nil {
						a.logger.Warn().
							Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
