// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures a backend.
type Options struct {
	Backend string // sqlite (default), memory, badger, redis
	Path    string // sqlite file or badger directory; empty badger path runs in memory

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open creates a Store based on the backend configuration.
func Open(opts Options) (Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSqliteStore(opts.Path)
	case "badger":
		return OpenBadgerStore(opts.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         opts.RedisAddr,
			Password:     opts.RedisPassword,
			DB:           opts.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedisStore(client, opts.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
