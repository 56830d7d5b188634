// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlite opens SQLite databases with the pragmas every store relies on.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines standard SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the configuration used by the session store.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 8,
	}
}

// Open initializes a SQLite connection pool in WAL mode with a busy timeout.
// The pragmas are part of the DSN so they apply to every pooled connection.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	return db, nil
}
