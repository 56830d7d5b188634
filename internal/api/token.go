// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/tuto/meetd/internal/domain/recording/model"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// GET /api/v1/token?roomName=&participantName=
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tokens == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "TOKENS_DISABLED", "media server credentials are not configured")
		return
	}
	room := model.NormalizeName(r.URL.Query().Get("roomName"))
	participant := model.NormalizeName(r.URL.Query().Get("participantName"))
	if err := model.ValidateName("roomName", room); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := model.ValidateName("participantName", participant); err != nil {
		writeDomainError(w, r, err)
		return
	}

	name := principal(r).Name
	if name == "" {
		name = participant
	}
	tok, err := s.deps.Tokens.Issue(room, participant, name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, tokenResponse{Token: tok})
}
