// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/persistence/sqlite"
)

const (
	schemaVersion = 1

	maxPatchAttempts = 5
)

// SqliteStore implements Store using SQLite. A partial unique index on
// room_name over the active statuses makes the room check part of the insert.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the session database at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if dbPath == "" {
		return nil, errors.New("recording store: sqlite path is required")
	}
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &SqliteStore{DB: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recording store: migration failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	issues, err := sqlite.VerifyIntegrity(ctx, db, "quick")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recording store: integrity check: %w", err)
	}
	if len(issues) > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("recording store: database corrupt: %s", strings.Join(issues, "; "))
	}

	return s, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SqliteStore) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS recording_sessions (
		job_id TEXT PRIMARY KEY,
		room_name TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at_ms INTEGER NOT NULL,
		storage_key TEXT NOT NULL,
		result_json TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_recording_room_active
		ON recording_sessions(room_name)
		WHERE status IN ('recording', 'active', 'ending');

	CREATE INDEX IF NOT EXISTS idx_recording_owner_started
		ON recording_sessions(owner_id, started_at_ms DESC);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}

	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteStore) Create(ctx context.Context, sess *model.RecordingSession) error {
	if err := validateNew(sess); err != nil {
		return err
	}
	resultJSON, err := encodeResult(sess.Result)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO recording_sessions
			(job_id, room_name, actor_name, owner_id, status, started_at_ms, storage_key, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.JobID, sess.RoomName, sess.ActorName, sess.OwnerID, string(sess.Status),
		sess.StartedAt.UnixMilli(), sess.StorageKey, resultJSON)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed: recording_sessions.job_id"):
			return fmt.Errorf("%w: %s", ErrDuplicateJob, sess.JobID)
		case strings.Contains(msg, "UNIQUE constraint failed: recording_sessions.room_name"):
			return fmt.Errorf("%w: room %s", ErrRoomBusy, sess.RoomName)
		}
		return fmt.Errorf("recording store: insert: %w", err)
	}
	return nil
}

// PatchStatus is a compare-and-swap on the previous status so concurrent
// patches cannot skip the transition check.
func (s *SqliteStore) PatchStatus(ctx context.Context, jobID string, status model.Status, result *model.Result) (*model.RecordingSession, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	resultJSON, err := encodeResult(result)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxPatchAttempts; attempt++ {
		cur, err := s.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(jobID, cur.Status, status); err != nil {
			return nil, err
		}

		res, err := s.DB.ExecContext(ctx,
			`UPDATE recording_sessions SET status = ?, result_json = ? WHERE job_id = ? AND status = ?`,
			string(status), resultJSON, jobID, string(cur.Status))
		if err != nil {
			return nil, fmt.Errorf("recording store: update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 1 {
			cur.Status = status
			cur.Result = result.Clone()
			return cur, nil
		}
	}
	return nil, fmt.Errorf("recording store: patch %s: too much contention", jobID)
}

const selectColumns = `job_id, room_name, actor_name, owner_id, status, started_at_ms, storage_key, result_json`

func (s *SqliteStore) Get(ctx context.Context, jobID string) (*model.RecordingSession, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recording_sessions WHERE job_id = ?`, jobID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

func (s *SqliteStore) ActiveForRoom(ctx context.Context, room string) (*model.RecordingSession, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recording_sessions
		WHERE room_name = ? AND status IN ('recording', 'active', 'ending')`, room)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

func (s *SqliteStore) ListByOwner(ctx context.Context, ownerID string) ([]*model.RecordingSession, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+selectColumns+` FROM recording_sessions
		WHERE owner_id = ? ORDER BY started_at_ms DESC, job_id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.RecordingSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*model.RecordingSession, error) {
	var (
		sess       model.RecordingSession
		status     string
		startedAt  int64
		resultJSON sql.NullString
	)
	if err := r.Scan(&sess.JobID, &sess.RoomName, &sess.ActorName, &sess.OwnerID,
		&status, &startedAt, &sess.StorageKey, &resultJSON); err != nil {
		return nil, err
	}
	sess.Status = model.Status(status)
	sess.StartedAt = time.UnixMilli(startedAt).UTC()
	if resultJSON.Valid && resultJSON.String != "" {
		var res model.Result
		if err := json.Unmarshal([]byte(resultJSON.String), &res); err != nil {
			return nil, fmt.Errorf("recording store: decode result of %s: %w", sess.JobID, err)
		}
		sess.Result = &res
	}
	return &sess, nil
}

func encodeResult(r *model.Result) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("recording store: encode result: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
