// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the recording and assistant operations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuto/meetd/internal/api/middleware"
	"github.com/tuto/meetd/internal/auth"
	"github.com/tuto/meetd/internal/companion"
	"github.com/tuto/meetd/internal/domain/recording/manager"
	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/health"
)

// Recordings is the recording lifecycle surface.
type Recordings interface {
	Start(ctx context.Context, req manager.StartRequest) (string, error)
	Stop(ctx context.Context, jobID string) (manager.StopResult, error)
	Status(ctx context.Context, jobID string) (*model.RecordingSession, error)
	ListRecordings(ctx context.Context, ownerID string) ([]manager.RecordingView, error)
}

// Assistants is the companion worker surface.
type Assistants interface {
	Spawn(ctx context.Context, room string) companion.Result
	Stop(ctx context.Context, room string) companion.Result
	Status(room string) companion.Status
}

// TokenVerifier authenticates bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (*auth.Principal, error)
}

// Deps are the collaborators of Server. Assistants may be nil when
// workers are disabled.
type Deps struct {
	Recordings Recordings
	Assistants Assistants
	Tokens     ports.TokenIssuer
	Verifier   TokenVerifier
	Health     *health.Manager

	Stack middleware.StackConfig

	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Server owns the HTTP routes.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds the router.
func New(deps Deps) *Server {
	s := &Server{deps: deps}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(s.deps.Stack)

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/auth/session", s.handleSessionLogin)
		r.Delete("/auth/session", s.handleSessionLogout)

		r.Route("/recordings", func(r chi.Router) {
			r.Post("/", s.handleStartRecording)
			r.Get("/", s.handleListRecordings)
			r.Get("/{jobId}", s.handleRecordingStatus)
			r.Post("/{jobId}/stop", s.handleStopRecording)
		})

		r.Route("/rooms/{room}/assistant", func(r chi.Router) {
			r.Post("/", s.handleEnableAssistant)
			r.Delete("/", s.handleDisableAssistant)
			r.Get("/", s.handleAssistantStatus)
		})

		r.Get("/token", s.handleToken)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not supported here")
	})
	return r
}
