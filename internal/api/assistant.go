// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuto/meetd/internal/companion"
)

// assistants returns nil after writing a 503 when workers are disabled.
func (s *Server) assistants(w http.ResponseWriter, r *http.Request) Assistants {
	if s.deps.Assistants == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "ASSISTANT_DISABLED", "assistant workers are disabled")
		return nil
	}
	return s.deps.Assistants
}

// writeAssistantResult answers 200 for every outcome except a malformed room.
func writeAssistantResult(w http.ResponseWriter, r *http.Request, res companion.Result) {
	if res.Code == companion.CodeInvalidRoom {
		writeProblemExtra(w, r, http.StatusBadRequest, "INVALID_INPUT", res.Message, map[string]any{"field": "room"})
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// POST /api/v1/rooms/{room}/assistant
func (s *Server) handleEnableAssistant(w http.ResponseWriter, r *http.Request) {
	a := s.assistants(w, r)
	if a == nil {
		return
	}
	writeAssistantResult(w, r, a.Spawn(r.Context(), chi.URLParam(r, "room")))
}

// DELETE /api/v1/rooms/{room}/assistant
func (s *Server) handleDisableAssistant(w http.ResponseWriter, r *http.Request) {
	a := s.assistants(w, r)
	if a == nil {
		return
	}
	writeAssistantResult(w, r, a.Stop(r.Context(), chi.URLParam(r, "room")))
}

// GET /api/v1/rooms/{room}/assistant
func (s *Server) handleAssistantStatus(w http.ResponseWriter, r *http.Request) {
	a := s.assistants(w, r)
	if a == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, a.Status(chi.URLParam(r, "room")))
}
