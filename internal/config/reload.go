// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	xglog "github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/metrics"
)

const reloadDebounce = 500 * time.Millisecond

// Holder keeps the live configuration and reloads it when the file changes.
// Only settings that are safe to change at runtime are applied; everything
// else takes effect on restart.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	listenersMu sync.Mutex
	listeners   []func(AppConfig)

	watchWG sync.WaitGroup
}

// NewHolder creates a holder around an already validated config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers fn to run after every successful reload.
func (h *Holder) OnReload(fn func(AppConfig)) {
	h.listenersMu.Lock()
	h.listeners = append(h.listeners, fn)
	h.listenersMu.Unlock()
}

// Reload re-reads the file and environment. An invalid config is rejected
// and the previous one stays active.
func (h *Holder) Reload() error {
	next, err := h.loader.Load()
	if err != nil {
		metrics.IncConfigReload("error")
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("configuration reload rejected")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	if prev.Log.Level != next.Log.Level {
		if err := xglog.SetLevel(next.Log.Level); err != nil {
			h.logger.Warn().Err(err).Str("level", next.Log.Level).Msg("log level not applied")
		} else {
			h.logger.Info().
				Str("event", "config.log_level_changed").
				Str("from", prev.Log.Level).
				Str("to", next.Log.Level).
				Msg("log level changed")
		}
	}

	h.listenersMu.Lock()
	listeners := append([]func(AppConfig){}, h.listeners...)
	h.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}

	metrics.IncConfigReload("ok")
	h.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded")
	return nil
}

// Watch reloads on file changes until ctx is done. Without a config file it
// returns immediately.
func (h *Holder) Watch(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.logger.Info().Str("event", "config.watcher_started").Str("path", path).Msg("watching config file for changes")

	h.watchWG.Add(1)
	go func() {
		defer h.watchWG.Done()
		h.watchLoop(ctx, watcher)
	}()
	return nil
}

// Wait blocks until the watcher goroutine has exited.
func (h *Holder) Wait() { h.watchWG.Wait() }

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	// A nil channel blocks until the first change arms the timer.
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().Str("event", "config.file_changed").Str("op", event.Op.String()).Msg("config file changed")
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = h.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}
