// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/tuto/meetd/internal/config"
	"github.com/tuto/meetd/internal/log"
)

// PerformStartupChecks verifies the environment before the servers start.
// A missing companion binary is only a warning: recordings still work and
// assistant requests will fail individually.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	switch cfg.Store.Backend {
	case "sqlite":
		if err := checkWritableDir(filepath.Dir(cfg.Store.Path)); err != nil {
			return fmt.Errorf("store directory: %w", err)
		}
	case "badger":
		if cfg.Store.Path != "" {
			if err := os.MkdirAll(cfg.Store.Path, 0o750); err != nil {
				return fmt.Errorf("store directory: %w", err)
			}
			if err := checkWritableDir(cfg.Store.Path); err != nil {
				return fmt.Errorf("store directory: %w", err)
			}
		}
	}

	if cfg.Companion.Enabled {
		checkCompanionCommand(logger, cfg.Companion)
	}

	logger.Info().Str("event", "startup.checks_passed").Msg("startup checks passed")
	return nil
}

func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	probe, err := os.CreateTemp(path, ".write_test")
	if err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}

func checkCompanionCommand(logger zerolog.Logger, cfg config.CompanionConfig) {
	cmd := cfg.Command
	if !filepath.IsAbs(cmd) && cfg.Dir != "" && filepath.Base(cmd) != cmd {
		cmd = filepath.Join(cfg.Dir, cmd)
	}
	if _, err := exec.LookPath(cmd); err != nil {
		logger.Warn().
			Err(err).
			Str("event", "startup.companion_missing").
			Str("command", cfg.Command).
			Msg("companion command not found, assistant spawns will fail")
	}
}
