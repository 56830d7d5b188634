// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package companion supervises one assistant worker process per room.
//
// Spawn and Stop never return errors: worker trouble must not block the
// meeting, so every outcome is reported as a Result.
package companion

import (
	"context"
	"os"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/metrics"
)

// DefaultIdentity is the participant identity workers join rooms as.
const DefaultIdentity = "AI-Assistant"

// DefaultShutdownGrace is how long ShutdownAll waits before SIGKILL.
const DefaultShutdownGrace = 5 * time.Second

// Result codes.
const (
	CodeStarted       = "started"
	CodeAlreadyActive = "already_active"
	CodeSpawnFailed   = "spawn_failed"
	CodeInvalidRoom   = "invalid_room"
	CodeStopped       = "stopped"
	CodeNotFound      = "not_found"
)

// Result is the outcome of Spawn or Stop.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Status is the registry view of one room.
type Status struct {
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Config configures a Supervisor.
type Config struct {
	Identity string

	// Passed to workers so they can reach the media server.
	ProviderURL string
	APIKey      string
	APISecret   string

	// ExtraEnv is appended to every worker environment.
	ExtraEnv      map[string]string
	ShutdownGrace time.Duration
}

// Supervisor owns the worker processes. Only the Supervisor signals them.
type Supervisor struct {
	registry Registry
	launcher Launcher
	tokens   ports.TokenIssuer
	cfg      Config

	now     func() time.Time
	baseEnv func() []string
	logger  zerolog.Logger
}

// New returns a Supervisor. A nil registry gets a fresh MemoryRegistry.
func New(cfg Config, registry Registry, launcher Launcher, tokens ports.TokenIssuer) *Supervisor {
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Supervisor{
		registry: registry,
		launcher: launcher,
		tokens:   tokens,
		cfg:      cfg,
		now:      time.Now,
		baseEnv:  os.Environ,
		logger:   log.WithComponent("companion"),
	}
}

// Spawn starts a worker for room unless one is already registered.
func (s *Supervisor) Spawn(ctx context.Context, room string) Result {
	room = model.NormalizeName(room)
	if err := model.ValidateName("roomName", room); err != nil {
		metrics.IncCompanionSpawn("invalid")
		return Result{Success: false, Message: err.Error(), Code: CodeInvalidRoom}
	}
	logger := s.logger.With().Str(log.FieldRoom, room).Logger()

	h := newHandle(room, s.now().UTC())
	if !s.registry.Reserve(h) {
		metrics.IncCompanionSpawn("already_active")
		return Result{Success: false, Message: "Agent already active for this room", Code: CodeAlreadyActive}
	}

	fail := func(err error, msg string) Result {
		s.registry.RemoveIf(room, h)
		close(h.done)
		metrics.IncCompanionSpawn("failed")
		s.updateGauge()
		logger.Error().Err(err).Str(log.FieldEvent, "companion.spawn_failed").Msg(msg)
		return Result{Success: false, Message: "Failed to start agent", Code: CodeSpawnFailed}
	}

	token, err := s.tokens.Issue(room, s.cfg.Identity, s.cfg.Identity)
	if err != nil {
		return fail(err, "issue worker token")
	}

	stdout := log.NewLineWriter(logger.With().Str(log.FieldStream, "stdout").Logger(), zerolog.InfoLevel)
	stderr := log.NewLineWriter(logger.With().Str(log.FieldStream, "stderr").Logger(), zerolog.WarnLevel)

	proc, err := s.launcher.Launch(ctx, LaunchSpec{
		Room:   room,
		Env:    s.env(room, token),
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return fail(err, "launch worker")
	}

	if h.attach(proc) {
		// Stop ran during the launch and already dropped the handle.
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			logger.Warn().Err(err).Msg("terminate worker stopped during launch")
		}
	}
	go s.watch(h, proc, stdout, stderr, logger)

	metrics.IncCompanionSpawn("started")
	s.updateGauge()
	logger.Info().
		Str(log.FieldEvent, "companion.started").
		Int(log.FieldPID, proc.PID()).
		Msg("companion worker started")
	return Result{Success: true, Message: "Agent started successfully", Code: CodeStarted}
}

func (s *Supervisor) env(room, token string) []string {
	env := append([]string{}, s.baseEnv()...)
	env = append(env,
		"LIVEKIT_URL="+s.cfg.ProviderURL,
		"LIVEKIT_API_KEY="+s.cfg.APIKey,
		"LIVEKIT_API_SECRET="+s.cfg.APISecret,
		"AGENT_ROOM_NAME="+room,
		"AGENT_TOKEN="+token,
	)
	keys := make([]string, 0, len(s.cfg.ExtraEnv))
	for k := range s.cfg.ExtraEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.cfg.ExtraEnv[k])
	}
	return env
}

// watch waits for the worker to exit and drops its handle if it is still
// the registered one.
func (s *Supervisor) watch(h *Handle, proc Process, stdout, stderr *log.LineWriter, logger zerolog.Logger) {
	code, err := proc.Wait()
	stdout.Flush()
	stderr.Flush()

	removed := s.registry.RemoveIf(h.Room, h)
	close(h.done)

	kind := exitKind(code, err)
	metrics.IncCompanionExit(kind)
	s.updateGauge()

	ev := logger.Info()
	if kind == "error" {
		ev = logger.Warn().Err(err)
	}
	ev.Str(log.FieldEvent, "companion.exited").
		Int(log.FieldPID, proc.PID()).
		Int(log.FieldExitCode, code).
		Bool("deregistered", removed).
		Msg("companion worker exited")
}

func exitKind(code int, err error) string {
	switch {
	case code == 0 && err == nil:
		return "clean"
	case code < 0:
		return "signaled"
	default:
		return "error"
	}
}

// Stop requests termination of the room's worker and forgets it at once.
func (s *Supervisor) Stop(_ context.Context, room string) Result {
	room = model.NormalizeName(room)
	h, ok := s.registry.Remove(room)
	if !ok {
		return Result{Success: false, Message: "No agent found for this room", Code: CodeNotFound}
	}
	s.updateGauge()
	if err := h.signal(syscall.SIGTERM); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldRoom, room).Msg("terminate companion worker")
	}
	s.logger.Info().
		Str(log.FieldEvent, "companion.stop_requested").
		Str(log.FieldRoom, room).
		Msg("companion worker stop requested")
	return Result{Success: true, Message: "Agent stopped successfully", Code: CodeStopped}
}

// Status reports whether room has a registered worker.
func (s *Supervisor) Status(room string) Status {
	h, ok := s.registry.Get(model.NormalizeName(room))
	if !ok {
		return Status{}
	}
	started := h.StartedAt
	return Status{Active: true, StartedAt: &started}
}

// ShutdownAll terminates every worker and empties the registry. Workers still
// running after the grace period or ctx expiry get SIGKILL. Signal failures
// are logged, never returned.
func (s *Supervisor) ShutdownAll(ctx context.Context) error {
	handles := s.registry.Drain()
	s.updateGauge()
	if len(handles) == 0 {
		return nil
	}

	for _, h := range handles {
		if err := h.signal(syscall.SIGTERM); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldRoom, h.Room).Msg("terminate companion worker")
		}
	}

	grace := time.NewTimer(s.cfg.ShutdownGrace)
	defer grace.Stop()

	var stragglers []*Handle
wait:
	for i, h := range handles {
		select {
		case <-h.done:
		case <-grace.C:
			stragglers = handles[i:]
			break wait
		case <-ctx.Done():
			stragglers = handles[i:]
			break wait
		}
	}

	killed := 0
	for _, h := range stragglers {
		select {
		case <-h.done:
			continue
		default:
		}
		killed++
		if err := h.signal(syscall.SIGKILL); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldRoom, h.Room).Msg("kill companion worker")
		}
	}

	s.logger.Info().
		Str(log.FieldEvent, "companion.shutdown").
		Int("workers", len(handles)).
		Int("killed", killed).
		Msg("companion workers shut down")
	return nil
}

// Active returns the number of registered workers.
func (s *Supervisor) Active() int { return s.registry.Len() }

func (s *Supervisor) updateGauge() {
	metrics.SetCompanionWorkersActive(s.registry.Len())
}
