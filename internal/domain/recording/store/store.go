// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists recording sessions. Every backend enforces the
// one-active-recording-per-room rule inside Create itself.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tuto/meetd/internal/domain/recording/model"
)

var (
	// ErrNotFound matches model.ErrNotFound.
	ErrNotFound = fmt.Errorf("recording session %w", model.ErrNotFound)

	// ErrDuplicateJob is returned when a row with the same job id exists.
	ErrDuplicateJob = errors.New("recording session: duplicate job id")

	// ErrRoomBusy is returned when the room already has a row in an active status.
	ErrRoomBusy = errors.New("recording session: room already has an active recording")

	// ErrInvalidTransition is returned when a patch would move a row backwards
	// or reopen a terminal row.
	ErrInvalidTransition = errors.New("recording session: invalid status transition")
)

// Store is the persistence boundary of the recording orchestrator.
type Store interface {
	// Create inserts a new row. It fails with ErrRoomBusy if sess is in an
	// active status and another active row exists for the same room.
	Create(ctx context.Context, sess *model.RecordingSession) error
	// PatchStatus updates status and result of an existing row only.
	PatchStatus(ctx context.Context, jobID string, status model.Status, result *model.Result) (*model.RecordingSession, error)
	Get(ctx context.Context, jobID string) (*model.RecordingSession, error)
	// ActiveForRoom returns the active row for room, or nil if the room is idle.
	ActiveForRoom(ctx context.Context, room string) (*model.RecordingSession, error)
	// ListByOwner returns the owner's rows, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.RecordingSession, error)
	Ping(ctx context.Context) error
	Close() error
}

func validateNew(sess *model.RecordingSession) error {
	if sess == nil {
		return errors.New("recording session: nil session")
	}
	if sess.JobID == "" {
		return errors.New("recording session: empty job id")
	}
	if sess.RoomName == "" {
		return errors.New("recording session: empty room name")
	}
	if !sess.Status.Valid() {
		return fmt.Errorf("recording session: invalid status %q", sess.Status)
	}
	return sess.Result.Validate()
}

func checkTransition(jobID string, from, to model.Status) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: job %s %s -> %s", ErrInvalidTransition, jobID, from, to)
	}
	return nil
}

// sortNewestFirst orders by StartedAt desc with job id as tie breaker.
func sortNewestFirst(list []*model.RecordingSession) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].JobID > list[j].JobID
	})
}
