// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		schemes []string
		wantErr bool
	}{
		{"wss", "wss://lk.example.com", []string{"ws", "wss", "http", "https"}, false},
		{"https with port", "https://s3.example.com:9000", []string{"http", "https"}, false},
		{"empty", "", []string{"https"}, true},
		{"no host", "https://", []string{"https"}, true},
		{"bad scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"bare host", "example.com", []string{"https"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("url", tt.value, tt.schemes)
			assert.Equal(t, tt.wantErr, !v.IsValid(), v.Err())
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	for addr, ok := range map[string]bool{
		":8080":          true,
		"127.0.0.1:9090": true,
		"[::1]:0":        true,
		"8080":           false,
		":http":          false,
		":70000":         false,
	} {
		v := New()
		v.ListenAddr("listen", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestValidator_RequiredDoesNotEchoSecrets(t *testing.T) {
	v := New()
	v.Required("apiSecret", "  ")
	v.Required("apiKey", "set")

	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "apiSecret", v.Errors()[0].Field)
	assert.Nil(t, v.Errors()[0].Value)
}

func TestValidator_Scalars(t *testing.T) {
	v := New()
	v.Range("burst", 5, 1, 10)
	v.PositiveDuration("delay", time.Second)
	v.NonNegative("qps", 0)
	v.OneOf("backend", "sqlite", []string{"sqlite", "memory"})
	require.True(t, v.IsValid(), v.Err())

	v.Range("burst", 0, 1, 10)
	v.PositiveDuration("delay", 0)
	v.NonNegative("qps", -1)
	v.OneOf("backend", "mysql", []string{"sqlite", "memory"})
	assert.Len(t, v.Errors(), 4)
}

func TestValidator_ParentDirectory(t *testing.T) {
	dir := t.TempDir()

	v := New()
	v.ParentDirectory("store.path", filepath.Join(dir, "nested", "meetd.db"))
	require.True(t, v.IsValid(), v.Err())
	assert.DirExists(t, filepath.Join(dir, "nested"))

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	v.ParentDirectory("store.path", filepath.Join(file, "meetd.db"))
	v.ParentDirectory("other", "")
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_ErrAggregates(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.Required("livekit.url", "")
	v.Required("blob.bucket", "")
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 2)
	assert.Contains(t, err.Error(), "livekit.url")
	assert.Contains(t, err.Error(), "blob.bucket")

	v.Required("third", "")
	assert.Len(t, verr.Errors(), 2, "Err returns a snapshot")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":  LogLevelDebug,
		" INFO ": LogLevelInfo,
		"trace":  LogLevelTrace,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}
