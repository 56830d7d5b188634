// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/tuto/meetd/internal/validate"
)

// Validate reports every problem in cfg at once. Provider and blob
// credentials are required unless the stub egress backend is selected.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)
	if _, err := validate.ParseLogLevel(cfg.Log.Level); err != nil {
		v.AddError("log.level", err.Error(), cfg.Log.Level)
	}

	v.OneOf("store.backend", cfg.Store.Backend, []string{"sqlite", "memory", "badger", "redis"})
	switch cfg.Store.Backend {
	case "sqlite":
		v.ParentDirectory("store.path", cfg.Store.Path)
	case "redis":
		v.Required("store.redisAddr", cfg.Store.RedisAddr)
	}

	v.OneOf("egress.backend", cfg.Egress.Backend, []string{"livekit", "stub"})
	v.OneOf("egress.mode", cfg.Egress.Mode, []string{"participant", "room_composite"})
	v.PositiveDuration("egress.finalizeDelay", cfg.Egress.FinalizeDelay)
	v.NonNegative("egress.requestsPerSecond", cfg.Egress.RequestsPerSecond)
	v.Range("egress.breakerThreshold", cfg.Egress.BreakerThreshold, 1, 1000)
	v.PositiveDuration("egress.breakerCooldown", cfg.Egress.BreakerCooldown)

	if cfg.Egress.Backend == "livekit" {
		v.URL("livekit.url", cfg.LiveKit.URL, []string{"ws", "wss", "http", "https"})
		v.Required("livekit.apiKey", cfg.LiveKit.APIKey)
		v.Required("livekit.apiSecret", cfg.LiveKit.APISecret)

		v.Required("blob.endpoint", cfg.Blob.Endpoint)
		v.Required("blob.region", cfg.Blob.Region)
		v.Required("blob.bucket", cfg.Blob.Bucket)
		v.Required("blob.accessKey", cfg.Blob.AccessKey)
		v.Required("blob.secret", cfg.Blob.Secret)
	}
	v.PositiveDuration("livekit.tokenTTL", cfg.LiveKit.TokenTTL)

	v.Required("auth.jwtSecret", cfg.Auth.JWTSecret)

	if cfg.Companion.Enabled {
		v.Required("companion.command", cfg.Companion.Command)
		v.PositiveDuration("companion.shutdownGrace", cfg.Companion.ShutdownGrace)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.Required("tracing.endpoint", cfg.Tracing.Endpoint)
		if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
			v.AddError("tracing.samplingRate", "must be between 0 and 1", cfg.Tracing.SamplingRate)
		}
	}
	if cfg.Metrics.Enabled {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}
	if cfg.RateLimit.Enabled {
		v.Range("rateLimit.requests", cfg.RateLimit.Requests, 1, 1_000_000)
		v.PositiveDuration("rateLimit.window", cfg.RateLimit.Window)
	}

	return v.Err()
}
