// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the meetd daemon configuration from an optional YAML
// file and the environment, validates it, and watches the file for changes.
//
// Precedence is ENV > file > defaults. Unknown YAML keys are rejected.
package config

import "time"

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Server    ServerFileConfig `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
	Store     StoreConfig      `yaml:"store"`
	LiveKit   LiveKitConfig    `yaml:"livekit"`
	Egress    EgressConfig     `yaml:"egress"`
	Blob      BlobConfig       `yaml:"blob"`
	Auth      AuthConfig       `yaml:"auth"`
	Companion CompanionConfig  `yaml:"companion"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	RateLimit RateLimitConfig  `yaml:"rateLimit"`
}

type ServerFileConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// StoreConfig selects the session record backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // sqlite, memory, badger, redis
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPrefix   string `yaml:"redisPrefix"`
}

// LiveKitConfig holds the media server credentials shared by egress, token
// issuance and companion workers.
type LiveKitConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"apiKey"`
	APISecret string        `yaml:"apiSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

type EgressConfig struct {
	Backend           string        `yaml:"backend"` // livekit or stub
	Mode              string        `yaml:"mode"`    // participant or room_composite
	FinalizeDelay     time.Duration `yaml:"finalizeDelay"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	BreakerThreshold  int           `yaml:"breakerThreshold"`
	BreakerCooldown   time.Duration `yaml:"breakerCooldown"`
}

// BlobConfig is the S3-compatible bucket recordings are uploaded to.
type BlobConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"accessKey"`
	Secret         string `yaml:"secret"`
	ForcePathStyle bool   `yaml:"forcePathStyle"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
}

// CompanionConfig describes how assistant workers are launched.
type CompanionConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Command       string            `yaml:"command"`
	Args          []string          `yaml:"args"`
	Dir           string            `yaml:"dir"`
	Identity      string            `yaml:"identity"`
	Env           map[string]string `yaml:"env"`
	ShutdownGrace time.Duration     `yaml:"shutdownGrace"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc or http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Insecure     bool    `yaml:"insecure"`
	Environment  string  `yaml:"environment"`
}

type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr"`
}

// RateLimitConfig bounds API requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Defaults returns the configuration used before the file and environment
// are applied.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerFileConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info", Service: "meetd"},
		Store: StoreConfig{
			Backend:     "sqlite",
			Path:        "data/meetd.db",
			RedisPrefix: "meetd",
		},
		LiveKit: LiveKitConfig{TokenTTL: 6 * time.Hour},
		Egress: EgressConfig{
			Backend:           "livekit",
			Mode:              "participant",
			FinalizeDelay:     2 * time.Second,
			RequestTimeout:    10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             10,
			BreakerThreshold:  5,
			BreakerCooldown:   30 * time.Second,
		},
		Blob: BlobConfig{Region: "auto"},
		Companion: CompanionConfig{
			Enabled:       true,
			Command:       "bun",
			Args:          []string{"run", "agent.ts"},
			Identity:      "AI-Assistant",
			ShutdownGrace: 5 * time.Second,
		},
		Tracing: TracingConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0, Environment: "production"},
		Metrics: MetricsConfig{Enabled: true, ListenAddr: ":9090"},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
	}
}
