// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress stack shared by every route.
package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"
	xglog "github.com/tuto/meetd/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	// CORS
	EnableCORS     bool
	AllowedOrigins []string

	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting per client IP
	EnableRateLimit   bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter constructs a chi router with the canonical middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	// 1. Recoverer (outermost safety net)
	r.Use(Recoverer)
	// 2. RequestID (correlation early)
	r.Use(RequestID)
	// 3. CORS (so OPTIONS and browser clients behave)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	// 4. Security headers
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP))
	}
	// 5. Metrics
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	// 6. Tracing
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	// 7. Logging (wraps handlers, captures full latency)
	if cfg.EnableLogging {
		r.Use(xglog.Middleware())
	}
	// 8. Rate limit
	if cfg.EnableRateLimit {
		r.Use(RateLimit(RateLimitConfig{
			RequestLimit: cfg.RateLimitRequests,
			WindowSize:   cfg.RateLimitWindow,
		}))
	}
}
