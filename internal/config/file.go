// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// ErrConfigExists is returned by WriteExample when the target exists and
// overwrite was not requested.
var ErrConfigExists = errors.New("config file already exists")

// ExampleYAML is the commented starter file written by "config init".
const ExampleYAML = `# meetd configuration. Environment variables override every value here.
server:
  listenAddr: ":8080"
  readTimeout: 10s
  writeTimeout: 30s
  idleTimeout: 120s
  shutdownTimeout: 15s
  corsOrigins: []

log:
  level: info          # trace, debug, info, warn, error (reloaded live)
  service: meetd

store:
  backend: sqlite      # sqlite, memory, badger, redis
  path: data/meetd.db  # sqlite file or badger directory
  redisAddr: ""
  redisPrefix: meetd

livekit:
  url: ""              # LIVEKIT_URL
  apiKey: ""           # LIVEKIT_API_KEY
  apiSecret: ""        # LIVEKIT_API_SECRET
  tokenTTL: 6h

egress:
  backend: livekit     # livekit or stub
  mode: participant    # participant or room_composite
  finalizeDelay: 2s
  requestTimeout: 10s
  requestsPerSecond: 5
  burst: 10
  breakerThreshold: 5  # consecutive provider faults before failing fast
  breakerCooldown: 30s

blob:
  endpoint: ""         # S3_ENDPOINT / R2_ENDPOINT
  region: auto
  bucket: ""
  accessKey: ""
  secret: ""
  forcePathStyle: false

auth:
  jwtSecret: ""        # MEETD_JWT_SECRET
  issuer: ""
  audience: ""

companion:
  enabled: true
  command: bun
  args: ["run", "agent.ts"]
  dir: ""
  identity: AI-Assistant
  env: {}
  shutdownGrace: 5s

tracing:
  enabled: false
  exporter: grpc
  endpoint: localhost:4317
  samplingRate: 1.0
  insecure: false
  environment: production

metrics:
  enabled: true
  listenAddr: ":9090"

rateLimit:
  enabled: true
  requests: 120
  window: 1m
`

// WriteExample atomically writes ExampleYAML to path, creating parent
// directories as needed.
func WriteExample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(ExampleYAML), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
