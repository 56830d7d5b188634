// SPDX-License-Identifier: MIT

// Package daemon wires the meetd components together and manages their
// lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tuto/meetd/internal/api"
	"github.com/tuto/meetd/internal/api/middleware"
	"github.com/tuto/meetd/internal/auth"
	"github.com/tuto/meetd/internal/blobstore"
	"github.com/tuto/meetd/internal/companion"
	"github.com/tuto/meetd/internal/config"
	recmanager "github.com/tuto/meetd/internal/domain/recording/manager"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/domain/recording/store"
	"github.com/tuto/meetd/internal/egress"
	"github.com/tuto/meetd/internal/egress/stub"
	"github.com/tuto/meetd/internal/health"
	"github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/telemetry"
	"github.com/tuto/meetd/internal/token"
)

// Options replaces external adapters. Zero values build them from config.
type Options struct {
	Egress   ports.EgressClient
	Launcher companion.Launcher
}

// Runtime holds the wired components of one daemon instance.
type Runtime struct {
	Config       config.AppConfig
	Store        store.Store
	Orchestrator *recmanager.Orchestrator
	// Supervisor is nil when assistant workers are disabled.
	Supervisor *companion.Supervisor
	Health     *health.Manager
	Server     *api.Server

	telemetry *telemetry.Provider
	logger    zerolog.Logger
}

// Bootstrap builds every component from cfg. On error, anything already
// opened is released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, opts Options) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		rt.logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
	} else {
		rt.telemetry = tp
	}

	st, err := store.Open(store.Options{
		Backend:       cfg.Store.Backend,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		RedisPrefix:   cfg.Store.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	rt.Store = st

	eg := opts.Egress
	if eg == nil {
		if eg, err = newEgressClient(cfg); err != nil {
			return nil, err
		}
	}

	rt.Orchestrator = &recmanager.Orchestrator{
		Store:         rt.Store,
		Egress:        eg,
		FinalizeDelay: cfg.Egress.FinalizeDelay,
	}
	if cfg.Blob.Endpoint != "" {
		signer, err := blobstore.New(blobstore.Config{
			Endpoint:  cfg.Blob.Endpoint,
			Region:    cfg.Blob.Region,
			Bucket:    cfg.Blob.Bucket,
			AccessKey: cfg.Blob.AccessKey,
			Secret:    cfg.Blob.Secret,
		})
		if err != nil {
			return nil, fmt.Errorf("blob store: %w", err)
		}
		rt.Orchestrator.Blobs = signer
	}

	var tokens ports.TokenIssuer
	if cfg.LiveKit.APIKey != "" && cfg.LiveKit.APISecret != "" {
		issuer, err := token.NewIssuer(token.Config{
			APIKey:    cfg.LiveKit.APIKey,
			APISecret: cfg.LiveKit.APISecret,
			TTL:       cfg.LiveKit.TokenTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("token issuer: %w", err)
		}
		tokens = issuer
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	switch {
	case !cfg.Companion.Enabled:
		rt.logger.Info().Msg("assistant workers disabled")
	case tokens == nil:
		rt.logger.Warn().Msg("assistant workers disabled: media server credentials are not configured")
	default:
		launcher := opts.Launcher
		if launcher == nil {
			launcher = &companion.ExecLauncher{
				Command: cfg.Companion.Command,
				Args:    cfg.Companion.Args,
				Dir:     cfg.Companion.Dir,
			}
		}
		rt.Supervisor = companion.New(companion.Config{
			Identity:      cfg.Companion.Identity,
			ProviderURL:   cfg.LiveKit.URL,
			APIKey:        cfg.LiveKit.APIKey,
			APISecret:     cfg.LiveKit.APISecret,
			ExtraEnv:      cfg.Companion.Env,
			ShutdownGrace: cfg.Companion.ShutdownGrace,
		}, nil, launcher, tokens)
	}

	rt.Health = health.NewManager(cfg.Version)
	rt.Health.RegisterChecker(health.NewPingChecker("store", rt.Store.Ping, true))
	if rt.Supervisor != nil {
		rt.Health.RegisterChecker(health.NewGaugeChecker("companion", "workers", rt.Supervisor.Active))
	}

	deps := api.Deps{
		Recordings: rt.Orchestrator,
		Tokens:     tokens,
		Verifier:   verifier,
		Health:     rt.Health,
		Stack: middleware.StackConfig{
			EnableCORS:            len(cfg.Server.CORSOrigins) > 0,
			AllowedOrigins:        cfg.Server.CORSOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         cfg.Metrics.Enabled,
			EnableLogging:         true,
			EnableRateLimit:       cfg.RateLimit.Enabled,
			RateLimitRequests:     cfg.RateLimit.Requests,
			RateLimitWindow:       cfg.RateLimit.Window,
		},
	}
	if cfg.Tracing.Enabled {
		deps.Stack.TracingService = cfg.Log.Service
	}
	// A nil *Supervisor must not become a non-nil Assistants.
	if rt.Supervisor != nil {
		deps.Assistants = rt.Supervisor
	}
	rt.Server = api.New(deps)

	rt.logger.Info().
		Str("store", cfg.Store.Backend).
		Str("egress", cfg.Egress.Backend).
		Str("egress_mode", cfg.Egress.Mode).
		Bool("assistants", rt.Supervisor != nil).
		Bool("tracing", cfg.Tracing.Enabled).
		Msg("components wired")
	return rt, nil
}

func newEgressClient(cfg config.AppConfig) (ports.EgressClient, error) {
	switch cfg.Egress.Backend {
	case "stub":
		return stub.New(), nil
	case "livekit":
		c, err := egress.NewLiveKitClient(egress.Config{
			URL:       cfg.LiveKit.URL,
			APIKey:    cfg.LiveKit.APIKey,
			APISecret: cfg.LiveKit.APISecret,
			Mode:      cfg.Egress.Mode,
			Upload: egress.Upload{
				AccessKey:      cfg.Blob.AccessKey,
				Secret:         cfg.Blob.Secret,
				Bucket:         cfg.Blob.Bucket,
				Endpoint:       cfg.Blob.Endpoint,
				Region:         cfg.Blob.Region,
				ForcePathStyle: cfg.Blob.ForcePathStyle,
			},
			RequestTimeout:    cfg.Egress.RequestTimeout,
			RequestsPerSecond: cfg.Egress.RequestsPerSecond,
			Burst:             cfg.Egress.Burst,
			BreakerThreshold:  cfg.Egress.BreakerThreshold,
			BreakerCooldown:   cfg.Egress.BreakerCooldown,
		})
		if err != nil {
			return nil, fmt.Errorf("egress client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown egress backend: %s", cfg.Egress.Backend)
	}
}

// Deps returns the manager dependencies for this runtime.
func (rt *Runtime) Deps(logger zerolog.Logger) Deps {
	d := Deps{Logger: logger, APIHandler: rt.Server.Handler()}
	if rt.Config.Metrics.Enabled {
		d.MetricsHandler = promhttp.Handler()
		d.MetricsAddr = rt.Config.Metrics.ListenAddr
	}
	return d
}

// RegisterShutdownHooks hands cleanup to m. Hooks run LIFO, so workers stop
// first and tracing is flushed last.
func (rt *Runtime) RegisterShutdownHooks(m Manager) {
	if rt.telemetry != nil {
		m.RegisterShutdownHook("telemetry", rt.telemetry.Shutdown)
	}
	if rt.Store != nil {
		m.RegisterShutdownHook("store", func(context.Context) error { return rt.Store.Close() })
	}
	if rt.Supervisor != nil {
		m.RegisterShutdownHook("companion", rt.Supervisor.ShutdownAll)
	}
}

// Close releases everything Bootstrap opened. It is for runtimes that never
// reached a Manager.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Supervisor != nil {
		errs = append(errs, rt.Supervisor.ShutdownAll(ctx))
	}
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	if rt.telemetry != nil {
		errs = append(errs, rt.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Run builds the manager for rt and blocks until ctx is cancelled.
func Run(ctx context.Context, rt *Runtime, holder *config.Holder, logger zerolog.Logger) error {
	mgr, err := NewManager(config.ServerConfigFrom(rt.Config), rt.Deps(logger))
	if err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return err
	}
	rt.RegisterShutdownHooks(mgr)
	return NewApp(logger, mgr, holder).Run(ctx)
}
