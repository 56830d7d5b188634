// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuto/meetd/internal/config"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon lifecycle: starting servers, handling shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a function to be called during shutdown
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	serverCfg config.ServerConfig
	deps      Deps

	apiServer     *http.Server
	metricsServer *http.Server

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a new daemon manager with the given configuration and dependencies.
func NewManager(serverCfg config.ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if serverCfg.ShutdownTimeout <= 0 {
		serverCfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return &manager{
		serverCfg: serverCfg,
		deps:      deps,
		logger:    deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

const defaultShutdownTimeout = 15 * time.Second

// Start starts all configured servers and blocks until ctx is cancelled or
// a server fails. Either way the manager is shut down before Start returns.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.serverCfg.ListenAddr).
		Dur("read_timeout", m.serverCfg.ReadTimeout).
		Dur("write_timeout", m.serverCfg.WriteTimeout).
		Dur("shutdown_timeout", m.serverCfg.ShutdownTimeout).
		Msg("Starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.MetricsHandler != nil && m.deps.MetricsAddr != "" {
		m.startMetricsServer(errChan)
	}
	m.startAPIServer(errChan)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("Server error, initiating shutdown")
		if shutdownErr := m.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("Shutdown signal received")
		return m.Shutdown(context.WithoutCancel(ctx))
	}
}

func (m *manager) startAPIServer(errChan chan<- error) {
	m.mu.Lock()
	m.apiServer = &http.Server{
		Addr:              m.serverCfg.ListenAddr,
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.serverCfg.ReadTimeout,
		ReadHeaderTimeout: m.serverCfg.ReadTimeout / 2,
		WriteTimeout:      m.serverCfg.WriteTimeout,
		IdleTimeout:       m.serverCfg.IdleTimeout,
		MaxHeaderBytes:    m.serverCfg.MaxHeaderBytes,
	}
	srv := m.apiServer
	m.mu.Unlock()

	go func() {
		m.logger.Info().Str("addr", srv.Addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", "api.server.failed").
				Msg("API server failed")
			errChan <- fmt.Errorf("API server: %w", err)
		}
	}()
}

func (m *manager) startMetricsServer(errChan chan<- error) {
	m.mu.Lock()
	m.metricsServer = &http.Server{
		Addr:              m.deps.MetricsAddr,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := m.metricsServer
	m.mu.Unlock()

	go func() {
		m.logger.Info().Str("addr", srv.Addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().
				Err(err).
				Str("event", "metrics.server.failed").
				Msg("Metrics server failed")
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

// Shutdown stops the servers, then runs the hooks newest first. It runs at
// most once; later calls return nil.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := append([]namedHook(nil), m.shutdownHooks...)
	apiServer, metricsServer := m.apiServer, m.metricsServer
	m.mu.Unlock()

	m.logger.Info().Msg("Shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.serverCfg.ShutdownTimeout)
	defer cancel()

	var errs []error

	if apiServer != nil {
		m.logger.Debug().Msg("Shutting down API server")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}
	if metricsServer != nil {
		m.logger.Debug().Msg("Shutting down metrics server")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	m.logger.Debug().Int("hooks", len(hooks)).Msg("Executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(hookStart)).
			Msg("Shutdown hook completed")
	}

	if len(errs) > 0 {
		m.logger.Error().
			Int("error_count", len(errs)).
			Msg("Shutdown completed with errors")
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().Msg("Daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("Registered shutdown hook")
}
