// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/tuto/meetd/internal/domain/recording/model"
)

const defaultRedisPrefix = "meetd:rec:"

// createScript inserts the job, claims the room (for active rows) and indexes
// the owner in one atomic step, so instances sharing the server cannot both
// claim a room.
//
// KEYS: job, room, owner index. ARGV: job id, payload, score, claim room (1/0).
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 'duplicate'
end
if ARGV[4] == '1' then
	if redis.call('EXISTS', KEYS[2]) == 1 then
		return 'busy'
	end
	redis.call('SET', KEYS[2], ARGV[1])
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 'ok'
`)

// RedisStore implements Store on Redis. The owner index is a sorted set
// scored by start time in milliseconds.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client. An empty prefix selects the default.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) jobKey(id string) string      { return s.prefix + "job:" + id }
func (s *RedisStore) roomKey(room string) string   { return s.prefix + "room:" + room }
func (s *RedisStore) ownerKey(owner string) string { return s.prefix + "owner:" + owner }

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Create(ctx context.Context, sess *model.RecordingSession) error {
	if err := validateNew(sess); err != nil {
		return err
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	claim := "0"
	if sess.Status.IsActive() {
		claim = "1"
	}

	res, err := createScript.Run(ctx, s.client,
		[]string{s.jobKey(sess.JobID), s.roomKey(sess.RoomName), s.ownerKey(sess.OwnerID)},
		sess.JobID, payload, strconv.FormatInt(sess.StartedAt.UnixMilli(), 10), claim,
	).Text()
	if err != nil {
		return fmt.Errorf("recording store: redis create: %w", err)
	}
	switch res {
	case "ok":
		return nil
	case "duplicate":
		return fmt.Errorf("%w: %s", ErrDuplicateJob, sess.JobID)
	case "busy":
		return fmt.Errorf("%w: room %s", ErrRoomBusy, sess.RoomName)
	default:
		return fmt.Errorf("recording store: unexpected create reply %q", res)
	}
}

// PatchStatus runs an optimistic WATCH transaction over the job and room keys.
func (s *RedisStore) PatchStatus(ctx context.Context, jobID string, status model.Status, result *model.Result) (*model.RecordingSession, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	jk := s.jobKey(jobID)

	var out *model.RecordingSession
	txf := func(tx *redis.Tx) error {
		cur, err := s.decode(tx.Get(ctx, jk).Bytes())
		if err != nil {
			return err
		}
		if err := checkTransition(jobID, cur.Status, status); err != nil {
			return err
		}
		rk := s.roomKey(cur.RoomName)
		if err := tx.Watch(ctx, rk).Err(); err != nil {
			return err
		}
		holder, err := tx.Get(ctx, rk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		cur.Status = status
		cur.Result = result.Clone()
		payload, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, jk, payload, 0)
			if !status.IsActive() && holder == jobID {
				pipe.Del(ctx, rk)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = cur
		return nil
	}

	for attempt := 0; attempt < maxPatchAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, jk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("recording store: patch %s: too much contention", jobID)
}

func (s *RedisStore) decode(raw []byte, err error) (*model.RecordingSession, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var out model.RecordingSession
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("recording store: decode: %w", err)
	}
	return &out, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.RecordingSession, error) {
	return s.decode(s.client.Get(ctx, s.jobKey(jobID)).Bytes())
}

func (s *RedisStore) ActiveForRoom(ctx context.Context, room string) (*model.RecordingSession, error) {
	holder, err := s.client.Get(ctx, s.roomKey(room)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess, err := s.Get(ctx, holder)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sess, err
}

func (s *RedisStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.RecordingSession, error) {
	ids, err := s.client.ZRevRange(ctx, s.ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*model.RecordingSession, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		sess, err := s.decode([]byte(raw), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	sortNewestFirst(out)
	return out, nil
}
