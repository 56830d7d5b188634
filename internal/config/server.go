// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

// ServerConfigFrom derives the HTTP server settings from cfg.
func ServerConfigFrom(cfg AppConfig) ServerConfig {
	return ServerConfig{
		ListenAddr:      cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}
