// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tuto/meetd/internal/config"
	"github.com/tuto/meetd/internal/daemon"
	"github.com/tuto/meetd/internal/health"
	xglog "github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/version"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", os.Getenv("MEETD_CONFIG"), "path to config file (YAML); env MEETD_CONFIG")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the configuration is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "meetd",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("loaded configuration")

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Server.ListenAddr).
		Msg("starting meetd")
	logger.Info().Msgf("→ Media server: %s (egress: %s, mode: %s)", maskURL(cfg.LiveKit.URL), cfg.Egress.Backend, cfg.Egress.Mode)
	logger.Info().Msgf("→ Blob store: %s (bucket: %s)", maskURL(cfg.Blob.Endpoint), cfg.Blob.Bucket)
	logger.Info().Msgf("→ Store: %s", cfg.Store.Backend)
	if cfg.Companion.Enabled {
		logger.Info().Msgf("→ Assistant: %s %s", cfg.Companion.Command, strings.Join(cfg.Companion.Args, " "))
	}

	rt, err := daemon.Bootstrap(ctx, cfg, daemon.Options{})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "bootstrap.failed").
			Msg("failed to wire components")
	}

	holder := config.NewHolder(cfg, loader)
	if err := daemon.Run(ctx, rt, holder, logger); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
