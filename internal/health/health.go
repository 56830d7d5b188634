// SPDX-License-Identifier: MIT

// Package health serves liveness and readiness probes for the daemon.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tuto/meetd/internal/log"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds each checker run.
const DefaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the readiness payload.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager runs registered checkers.
type Manager struct {
	version string
	started time.Time
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: DefaultCheckTimeout,
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, checker)
	m.mu.Unlock()
}

// run executes every checker concurrently and folds the results.
func (m *Manager) run(ctx context.Context) (Status, map[string]CheckResult) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()
	if len(checkers) == 0 {
		return StatusHealthy, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}()
	}
	wg.Wait()

	overall := StatusHealthy
	checks := make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		checks[c.Name()] = results[i]
		switch results[i].Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall, checks
}

// Health is the liveness view. Checkers only run when verbose is set; the
// process is alive either way.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    time.Since(m.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Status, resp.Checks = m.run(ctx)
	}
	return resp
}

// Ready is not ready when any checker is unhealthy. Degraded still serves.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	status, checks := m.run(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ServeHealth always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)
	writeJSON(w, r, http.StatusOK, resp)
}

// ServeReady answers 503 while not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Warn().
			Str("event", "readiness.failed").
			Str("status", string(resp.Status)).
			Msg("readiness check failed")
	}
	writeJSON(w, r, code, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().Err(err).Str("event", "health.encode_error").Msg("failed to encode health response")
	}
}

// PingChecker reports a dependency reachable through a ping function.
// A failing critical dependency is unhealthy, any other is degraded.
type PingChecker struct {
	name     string
	ping     func(context.Context) error
	critical bool
}

// NewPingChecker wraps ping, for example a store's Ping method.
func NewPingChecker(name string, ping func(context.Context) error, critical bool) *PingChecker {
	return &PingChecker{name: name, ping: ping, critical: critical}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		status := StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// GaugeChecker reports an informational count, e.g. running workers.
type GaugeChecker struct {
	name  string
	label string
	value func() int
}

func NewGaugeChecker(name, label string, value func() int) *GaugeChecker {
	return &GaugeChecker{name: name, label: label, value: value}
}

func (c *GaugeChecker) Name() string { return c.name }

func (c *GaugeChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: c.label + "=" + strconv.Itoa(c.value())}
}
