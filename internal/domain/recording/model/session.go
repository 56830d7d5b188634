// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model holds the recording-session domain types shared by the
// orchestrator, the store backends and the egress adapters.
package model

import "time"

// Status is the local lifecycle of a recording session.
type Status string

const (
	StatusRecording Status = "recording"
	StatusActive    Status = "active"
	StatusEnding    Status = "ending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
	StatusStopped   Status = "stopped"
)

// ActiveStatuses occupy the room: at most one row per room may hold one.
var ActiveStatuses = []Status{StatusRecording, StatusActive, StatusEnding}

// IsActive reports whether s counts toward the one-active-recording-per-room limit.
func (s Status) IsActive() bool {
	switch s {
	case StatusRecording, StatusActive, StatusEnding:
		return true
	}
	return false
}

// IsTerminal returns true if the state is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted, StatusStopped:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

func (s Status) rank() int {
	switch s {
	case StatusRecording:
		return 0
	case StatusActive:
		return 1
	case StatusEnding:
		return 2
	default:
		return 3
	}
}

// CanTransition reports whether a row in status from may be patched to to.
// Progression is forward only; a terminal row never reopens, but a later
// definitive read may replace one terminal status with another.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.IsTerminal() {
		return to.IsTerminal()
	}
	return to.rank() >= from.rank()
}

// RecordingSession is one recording attempt of one participant in one room.
// Only Status and Result change after creation.
type RecordingSession struct {
	JobID      string    `json:"jobId"`
	RoomName   string    `json:"roomName"`
	ActorName  string    `json:"actorName"`
	OwnerID    string    `json:"ownerId,omitempty"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	StorageKey string    `json:"storageKey"`
	Result     *Result   `json:"result,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (s *RecordingSession) Clone() *RecordingSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Result = s.Result.Clone()
	return &c
}

// StorageKeyFor derives the blob prefix under which the provider writes the
// artifacts of actor's recording in room.
func StorageKeyFor(room, actor string) string {
	return room + "/" + actor
}
