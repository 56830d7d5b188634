// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestHolder_ReloadAppliesLogLevel(t *testing.T) {
	setRequiredEnv(t)
	restoreLevel(t)
	path := writeConfig(t, "log:\n  level: info\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	var seen atomic.Value
	h.OnReload(func(c AppConfig) { seen.Store(c.Log.Level) })

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, h.Reload())

	assert.Equal(t, "debug", h.Get().Log.Level)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.Equal(t, "debug", seen.Load())
}

func TestHolder_InvalidReloadKeepsPrevious(t *testing.T) {
	setRequiredEnv(t)
	restoreLevel(t)
	path := writeConfig(t, "log:\n  level: warn\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.Error(t, h.Reload())
	assert.Equal(t, "warn", h.Get().Log.Level)
}

func TestHolder_WatchReloadsOnWrite(t *testing.T) {
	setRequiredEnv(t)
	restoreLevel(t)
	path := writeConfig(t, "log:\n  level: info\n")

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.Wait()
	}()
	require.NoError(t, h.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	require.Eventually(t, func() bool {
		return h.Get().Log.Level == "error"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHolder_WatchWithoutFile(t *testing.T) {
	setRequiredEnv(t)
	h := NewHolder(Defaults(), NewLoader("", ""))
	require.NoError(t, h.Watch(context.Background()))
	h.Wait()
}
