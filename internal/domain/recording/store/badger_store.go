// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/tuto/meetd/internal/domain/recording/model"
)

// BadgerStore keeps rows in an embedded badger database:
//   - job:<id>            session JSON
//   - room:<name>         job id of the active row for the room
//   - owner:<id>\x00<job>  owner index (empty value)
//
// Create writes all keys in one transaction; badger's conflict detection
// turns a lost race into a retry that then observes the winner.
type BadgerStore struct {
	db *badger.DB
}

const maxTxnAttempts = 5

// OpenBadgerStore opens the database at path, or an in-memory one if path is empty.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("recording store: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("recording store: badger closed")
	}
	return nil
}

func jobKey(id string) []byte    { return []byte("job:" + id) }
func roomKey(room string) []byte { return []byte("room:" + room) }
func ownerPrefix(owner string) []byte {
	return []byte("owner:" + owner + "\x00")
}
func ownerKey(owner, id string) []byte {
	return append(ownerPrefix(owner), id...)
}

func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *BadgerStore) Create(_ context.Context, sess *model.RecordingSession) error {
	if err := validateNew(sess); err != nil {
		return err
	}
	buf, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(jobKey(sess.JobID)); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, sess.JobID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if sess.Status.IsActive() {
			item, err := txn.Get(roomKey(sess.RoomName))
			switch {
			case err == nil:
				holder, _ := item.ValueCopy(nil)
				return fmt.Errorf("%w: room %s held by %s", ErrRoomBusy, sess.RoomName, holder)
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if err := txn.Set(roomKey(sess.RoomName), []byte(sess.JobID)); err != nil {
				return err
			}
		}
		if err := txn.Set(ownerKey(sess.OwnerID, sess.JobID), []byte{}); err != nil {
			return err
		}
		return txn.Set(jobKey(sess.JobID), buf)
	})
}

func (s *BadgerStore) PatchStatus(_ context.Context, jobID string, status model.Status, result *model.Result) (*model.RecordingSession, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	var out *model.RecordingSession
	err := s.update(func(txn *badger.Txn) error {
		cur, err := getSession(txn, jobID)
		if err != nil {
			return err
		}
		if err := checkTransition(jobID, cur.Status, status); err != nil {
			return err
		}
		cur.Status = status
		cur.Result = result.Clone()
		buf, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		if err := txn.Set(jobKey(jobID), buf); err != nil {
			return err
		}
		if !status.IsActive() {
			item, err := txn.Get(roomKey(cur.RoomName))
			if err == nil {
				holder, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				if string(holder) == jobID {
					if err := txn.Delete(roomKey(cur.RoomName)); err != nil {
						return err
					}
				}
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getSession(txn *badger.Txn, jobID string) (*model.RecordingSession, error) {
	item, err := txn.Get(jobKey(jobID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var out model.RecordingSession
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) Get(_ context.Context, jobID string) (*model.RecordingSession, error) {
	var out *model.RecordingSession
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = getSession(txn, jobID)
		return err
	})
	return out, err
}

func (s *BadgerStore) ActiveForRoom(_ context.Context, room string) (*model.RecordingSession, error) {
	var out *model.RecordingSession
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(room))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		holder, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = getSession(txn, string(holder))
		return err
	})
	return out, err
}

func (s *BadgerStore) ListByOwner(_ context.Context, ownerID string) ([]*model.RecordingSession, error) {
	out := make([]*model.RecordingSession, 0)
	prefix := ownerPrefix(ownerID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			sess, err := getSession(txn, id)
			if err != nil {
				return err
			}
			out = append(out, sess)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}
