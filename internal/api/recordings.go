// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuto/meetd/internal/domain/recording/manager"
	"github.com/tuto/meetd/internal/log"
)

type startRecordingRequest struct {
	RoomName  string `json:"roomName"`
	ActorName string `json:"actorName"`
}

type startRecordingResponse struct {
	JobID string `json:"jobId"`
}

// POST /api/v1/recordings
func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	ctx := log.ContextWithRoom(r.Context(), req.RoomName)
	jobID, err := s.deps.Recordings.Start(ctx, manager.StartRequest{
		Room:    req.RoomName,
		Actor:   req.ActorName,
		OwnerID: principal(r).ID,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/recordings/"+jobID)
	writeJSON(w, r, http.StatusCreated, startRecordingResponse{JobID: jobID})
}

// POST /api/v1/recordings/{jobId}/stop
func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	res, err := s.deps.Recordings.Stop(log.ContextWithJobID(r.Context(), jobID), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// GET /api/v1/recordings/{jobId}
func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	sess, err := s.deps.Recordings.Status(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess)
}

// GET /api/v1/recordings lists the caller's own recordings, newest first.
func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Recordings.ListRecordings(r.Context(), principal(r).ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if views == nil {
		views = []manager.RecordingView{}
	}
	writeJSON(w, r, http.StatusOK, views)
}
