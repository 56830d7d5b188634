// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// maxConfigBytes caps the config file size.
const maxConfigBytes = 1 << 20

// Loader resolves AppConfig with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string

	// ConsumedEnvKeys lists every environment key the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty configPath means environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, or "" when running from ENV only.
func (l *Loader) Path() string { return l.configPath }

// Load parses the file strictly, applies environment overrides and
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		if err := loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	f, err := os.Open(path) // #nosec G304 -- operator supplied config path
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxConfigBytes {
		return fmt.Errorf("%s exceeds %d bytes", path, maxConfigBytes)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (l *Loader) track(keys ...string) {
	for _, k := range keys {
		l.ConsumedEnvKeys[k] = struct{}{}
	}
}

func (l *Loader) envString(key, def string) string {
	l.track(key)
	return ParseString(key, def)
}

func (l *Loader) envInt(key string, def int) int {
	l.track(key)
	return ParseInt(key, def)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.track(key)
	return ParseFloat(key, def)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.track(key)
	return ParseBool(key, def)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.track(key)
	return ParseDuration(key, def)
}

// envAlias reads key and falls back to alias. Both set to different values
// is a conflict.
func (l *Loader) envAlias(key, alias, def string) (string, error) {
	l.track(key, alias)
	primary, okPrimary := os.LookupEnv(key)
	secondary, okSecondary := os.LookupEnv(alias)
	if okPrimary && okSecondary && primary != "" && secondary != "" && primary != secondary {
		return def, fmt.Errorf("conflicting environment: %s and %s are both set with different values", key, alias)
	}
	if okPrimary && primary != "" {
		return ParseString(key, def), nil
	}
	return ParseString(alias, def), nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) error {
	var errs []error
	alias := func(dst *string, key, aliasKey string) {
		v, err := l.envAlias(key, aliasKey, *dst)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = v
	}

	cfg.Server.ListenAddr = l.envString("MEETD_LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.ShutdownTimeout = l.envDuration("MEETD_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	l.track("MEETD_CORS_ORIGINS", "CORS_ORIGIN")
	cfg.Server.CORSOrigins = ParseList("MEETD_CORS_ORIGINS", ParseList("CORS_ORIGIN", cfg.Server.CORSOrigins))

	alias(&cfg.Log.Level, "MEETD_LOG_LEVEL", "LOG_LEVEL")
	cfg.Log.Service = l.envString("MEETD_LOG_SERVICE", cfg.Log.Service)

	cfg.Store.Backend = l.envString("MEETD_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Path = l.envString("MEETD_STORE_PATH", cfg.Store.Path)
	cfg.Store.RedisAddr = l.envString("MEETD_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = l.envString("MEETD_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = l.envInt("MEETD_REDIS_DB", cfg.Store.RedisDB)

	cfg.LiveKit.URL = l.envString("LIVEKIT_URL", cfg.LiveKit.URL)
	cfg.LiveKit.APIKey = l.envString("LIVEKIT_API_KEY", cfg.LiveKit.APIKey)
	cfg.LiveKit.APISecret = l.envString("LIVEKIT_API_SECRET", cfg.LiveKit.APISecret)
	cfg.LiveKit.TokenTTL = l.envDuration("MEETD_TOKEN_TTL", cfg.LiveKit.TokenTTL)

	cfg.Egress.Backend = l.envString("MEETD_EGRESS_BACKEND", cfg.Egress.Backend)
	cfg.Egress.Mode = l.envString("MEETD_EGRESS_MODE", cfg.Egress.Mode)
	cfg.Egress.FinalizeDelay = l.envDuration("MEETD_FINALIZE_DELAY", cfg.Egress.FinalizeDelay)
	cfg.Egress.RequestsPerSecond = l.envFloat("MEETD_EGRESS_RPS", cfg.Egress.RequestsPerSecond)

	alias(&cfg.Blob.Endpoint, "S3_ENDPOINT", "R2_ENDPOINT")
	alias(&cfg.Blob.Region, "S3_REGION", "R2_REGION")
	alias(&cfg.Blob.Bucket, "S3_BUCKET", "R2_BUCKET")
	alias(&cfg.Blob.AccessKey, "S3_ACCESS_KEY", "R2_ACCESS_KEY")
	alias(&cfg.Blob.Secret, "S3_SECRET", "R2_SECRET")

	cfg.Auth.JWTSecret = l.envString("MEETD_JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.Issuer = l.envString("MEETD_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = l.envString("MEETD_JWT_AUDIENCE", cfg.Auth.Audience)

	cfg.Companion.Enabled = l.envBool("MEETD_COMPANION_ENABLED", cfg.Companion.Enabled)
	alias(&cfg.Companion.Command, "MEETD_COMPANION_COMMAND", "BUN_PATH")
	cfg.Companion.Dir = l.envString("MEETD_COMPANION_DIR", cfg.Companion.Dir)

	cfg.Tracing.Enabled = l.envBool("MEETD_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = l.envString("MEETD_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString("MEETD_TRACING_ENDPOINT", cfg.Tracing.Endpoint)

	cfg.Metrics.Enabled = l.envBool("MEETD_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ListenAddr = l.envString("MEETD_METRICS_LISTEN_ADDR", cfg.Metrics.ListenAddr)

	cfg.RateLimit.Enabled = l.envBool("MEETD_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Requests = l.envInt("MEETD_RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)

	return errors.Join(errs...)
}
