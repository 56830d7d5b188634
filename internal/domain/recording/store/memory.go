// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tuto/meetd/internal/domain/recording/model"
)

// MemoryStore keeps rows in process memory. Rows are copied on the way in
// and out.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[string]*model.RecordingSession
	active map[string]string // room -> job id
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string]*model.RecordingSession),
		active: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, sess *model.RecordingSession) error {
	if err := validateNew(sess); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[sess.JobID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, sess.JobID)
	}
	if sess.Status.IsActive() {
		if cur, ok := s.active[sess.RoomName]; ok {
			return fmt.Errorf("%w: room %s held by %s", ErrRoomBusy, sess.RoomName, cur)
		}
		s.active[sess.RoomName] = sess.JobID
	}
	s.jobs[sess.JobID] = sess.Clone()
	return nil
}

func (s *MemoryStore) PatchStatus(_ context.Context, jobID string, status model.Status, result *model.Result) (*model.RecordingSession, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := checkTransition(jobID, cur.Status, status); err != nil {
		return nil, err
	}
	cur.Status = status
	cur.Result = result.Clone()
	if !status.IsActive() && s.active[cur.RoomName] == jobID {
		delete(s.active, cur.RoomName)
	}
	return cur.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, jobID string) (*model.RecordingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cur.Clone(), nil
}

func (s *MemoryStore) ActiveForRoom(_ context.Context, room string) (*model.RecordingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[room]
	if !ok {
		return nil, nil
	}
	return s.jobs[id].Clone(), nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID string) ([]*model.RecordingSession, error) {
	s.mu.RLock()
	out := make([]*model.RecordingSession, 0)
	for _, sess := range s.jobs {
		if sess.OwnerID == ownerID {
			out = append(out, sess.Clone())
		}
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
