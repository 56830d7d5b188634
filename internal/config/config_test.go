// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuto/meetd/internal/validate"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var envKeys = []string{
	"MEETD_LISTEN_ADDR", "MEETD_SHUTDOWN_TIMEOUT", "MEETD_CORS_ORIGINS", "CORS_ORIGIN",
	"MEETD_LOG_LEVEL", "LOG_LEVEL", "MEETD_LOG_SERVICE",
	"MEETD_STORE_BACKEND", "MEETD_STORE_PATH", "MEETD_REDIS_ADDR", "MEETD_REDIS_PASSWORD", "MEETD_REDIS_DB",
	"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET", "MEETD_TOKEN_TTL",
	"MEETD_EGRESS_BACKEND", "MEETD_EGRESS_MODE", "MEETD_FINALIZE_DELAY", "MEETD_EGRESS_RPS",
	"S3_ENDPOINT", "R2_ENDPOINT", "S3_REGION", "R2_REGION", "S3_BUCKET", "R2_BUCKET",
	"S3_ACCESS_KEY", "R2_ACCESS_KEY", "S3_SECRET", "R2_SECRET",
	"MEETD_JWT_SECRET", "MEETD_JWT_ISSUER", "MEETD_JWT_AUDIENCE",
	"MEETD_COMPANION_ENABLED", "MEETD_COMPANION_COMMAND", "BUN_PATH", "MEETD_COMPANION_DIR",
	"MEETD_TRACING_ENABLED", "MEETD_TRACING_EXPORTER", "MEETD_TRACING_ENDPOINT",
	"MEETD_METRICS_ENABLED", "MEETD_METRICS_LISTEN_ADDR",
	"MEETD_RATE_LIMIT_ENABLED", "MEETD_RATE_LIMIT_REQUESTS",
}

// clearEnv blanks every key the loader reads; empty values mean "unset".
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("MEETD_STORE_BACKEND", "memory")
	t.Setenv("LIVEKIT_URL", "wss://lk.example.com")
	t.Setenv("LIVEKIT_API_KEY", "APIkey")
	t.Setenv("LIVEKIT_API_SECRET", "lk-secret")
	t.Setenv("S3_ENDPOINT", "https://acct.r2.cloudflarestorage.com")
	t.Setenv("S3_BUCKET", "recordings")
	t.Setenv("S3_ACCESS_KEY", "access")
	t.Setenv("S3_SECRET", "blob-secret")
	t.Setenv("MEETD_JWT_SECRET", "jwt-secret")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func fieldsOf(err error) []string {
	var verr validate.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	var fields []string
	for _, e := range verr.Errors() {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "wss://lk.example.com", cfg.LiveKit.URL)
	assert.Equal(t, "recordings", cfg.Blob.Bucket)
	assert.Equal(t, "auto", cfg.Blob.Region)
	assert.Equal(t, 2*time.Second, cfg.Egress.FinalizeDelay)
	assert.Equal(t, "participant", cfg.Egress.Mode)
	assert.Equal(t, "AI-Assistant", cfg.Companion.Identity)
}

func TestLoad_PrecedenceEnvOverFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MEETD_FINALIZE_DELAY", "750ms")

	path := writeConfig(t, `
server:
  listenAddr: "127.0.0.1:9000"
egress:
  finalizeDelay: 3s
  mode: room_composite
companion:
  args: ["agent.js"]
  env:
    GOOGLE_API_KEY: g-key
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 750*time.Millisecond, cfg.Egress.FinalizeDelay)
	assert.Equal(t, "room_composite", cfg.Egress.Mode)
	assert.Equal(t, []string{"agent.js"}, cfg.Companion.Args)
	assert.Equal(t, map[string]string{"GOOGLE_API_KEY": "g-key"}, cfg.Companion.Env)
	// untouched sections keep defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfig(t, "egress:\n  finalise_delay: 2s\n")

	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalise_delay")
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfig(t, "")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingCredentialsReportedTogether(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETD_STORE_BACKEND", "memory")

	_, err := NewLoader("", "").Load()
	require.Error(t, err)

	want := []string{
		"livekit.url", "livekit.apiKey", "livekit.apiSecret",
		"blob.endpoint", "blob.bucket", "blob.accessKey", "blob.secret",
		"auth.jwtSecret",
	}
	if diff := cmp.Diff(want, fieldsOf(err)); diff != "" {
		t.Errorf("missing fields (-want +got):\n%s", diff)
	}
	assert.NotContains(t, err.Error(), "lk-secret")
}

func TestLoad_StubBackendNeedsNoProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEETD_STORE_BACKEND", "memory")
	t.Setenv("MEETD_EGRESS_BACKEND", "stub")
	t.Setenv("MEETD_JWT_SECRET", "jwt-secret")

	_, err := NewLoader("", "").Load()
	require.NoError(t, err)
}

func TestLoad_BlobAliases(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3_BUCKET", "")
	t.Setenv("R2_BUCKET", "from-r2")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "from-r2", cfg.Blob.Bucket)

	t.Setenv("S3_BUCKET", "from-s3")
	_, err = NewLoader("", "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET and R2_BUCKET")

	t.Setenv("R2_BUCKET", "from-s3")
	cfg, err = NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, "from-s3", cfg.Blob.Bucket)
}

func TestLoad_InvalidValues(t *testing.T) {
	setRequiredEnv(t)
	// The file's store backend must not be masked by the environment.
	t.Setenv("MEETD_STORE_BACKEND", "")
	path := writeConfig(t, `
log:
  level: loud
store:
  backend: mysql
egress:
  backend: aws
  finalizeDelay: 0s
tracing:
  enabled: true
  exporter: zipkin
  samplingRate: 2
`)
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	fields := fieldsOf(err)
	for _, f := range []string{"log.level", "store.backend", "egress.backend", "egress.finalizeDelay", "tracing.exporter", "tracing.samplingRate"} {
		assert.Contains(t, fields, f)
	}
}

func TestLoader_TracksConsumedKeys(t *testing.T) {
	setRequiredEnv(t)
	l := NewLoader("", "")
	_, err := l.Load()
	require.NoError(t, err)

	for _, k := range envKeys {
		assert.Contains(t, l.ConsumedEnvKeys, k)
	}
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("T_INT", "42")
	t.Setenv("T_BAD_INT", "4x")
	t.Setenv("T_BOOL", "Yes")
	t.Setenv("T_BAD_BOOL", "maybe")
	t.Setenv("T_DUR", "1m30s")
	t.Setenv("T_FLOAT", "0.25")
	t.Setenv("T_LIST", " a, ,b ,")

	assert.Equal(t, 42, ParseInt("T_INT", 1))
	assert.Equal(t, 1, ParseInt("T_BAD_INT", 1))
	assert.Equal(t, 7, ParseInt("T_UNSET_INT", 7))
	assert.True(t, ParseBool("T_BOOL", false))
	assert.True(t, ParseBool("T_BAD_BOOL", true))
	assert.Equal(t, 90*time.Second, ParseDuration("T_DUR", 0))
	assert.InDelta(t, 0.25, ParseFloat("T_FLOAT", 1), 1e-9)
	assert.Equal(t, []string{"a", "b"}, ParseList("T_LIST", nil))
	assert.Equal(t, "d", ParseString("T_UNSET", "d"))
}

func TestWriteExample(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "etc", "meetd.yaml")

	require.NoError(t, WriteExample(path, false))
	err := WriteExample(path, false)
	assert.ErrorIs(t, err, ErrConfigExists)
	require.NoError(t, WriteExample(path, true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The example decodes strictly and matches the built-in defaults.
	t.Setenv("MEETD_STORE_BACKEND", "")
	t.Setenv("MEETD_STORE_PATH", filepath.Join(t.TempDir(), "meetd.db"))
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Store.Path = cfg.Store.Path
	want.LiveKit = cfg.LiveKit
	want.Blob = cfg.Blob
	want.Auth = cfg.Auth
	want.Server.CORSOrigins = cfg.Server.CORSOrigins
	want.Companion.Env = cfg.Companion.Env
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("example drifted from defaults (-want +got):\n%s", diff)
	}
	assert.True(t, strings.HasPrefix(ExampleYAML, "# meetd"))
}

func TestServerConfigFrom(t *testing.T) {
	sc := ServerConfigFrom(Defaults())
	assert.Equal(t, ":8080", sc.ListenAddr)
	assert.Equal(t, 15*time.Second, sc.ShutdownTimeout)
	assert.Equal(t, 1<<20, sc.MaxHeaderBytes)
}
