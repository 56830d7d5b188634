// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager drives recording sessions through their lifecycle: it
// starts provider egress jobs, records them, and finalizes them on stop.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/tuto/meetd/internal/blobstore"
	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/domain/recording/store"
	"github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/metrics"
	"github.com/tuto/meetd/internal/telemetry"
)

const (
	// DefaultFinalizeDelay is the pause between a stop without synchronous
	// data and the follow-up status read.
	DefaultFinalizeDelay = 2 * time.Second

	// persistTimeout bounds store writes that run after the caller's context
	// may already be gone.
	persistTimeout = 5 * time.Second
)

// Orchestrator owns the recording lifecycle. Store and Egress are required;
// Blobs is only used to sign playlist URLs in ListRecordings.
type Orchestrator struct {
	Store  store.Store
	Egress ports.EgressClient
	Blobs  ports.BlobSigner

	FinalizeDelay time.Duration
	Clock         func() time.Time

	stops singleflight.Group
}

// StartRequest names the recording to start. OwnerID is the authenticated
// actor issuing the request.
type StartRequest struct {
	Room    string
	Actor   string
	OwnerID string
}

// RecordingView is a stored session plus a signed playlist URL.
type RecordingView struct {
	model.RecordingSession
	PlaylistURL string `json:"playlistUrl,omitempty"`
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o *Orchestrator) finalizeDelay() time.Duration {
	if o.FinalizeDelay > 0 {
		return o.FinalizeDelay
	}
	return DefaultFinalizeDelay
}

func tracer() trace.Tracer { return telemetry.Tracer("meetd/recording") }

// Start begins recording actor in room and returns the provider job id.
//
// A room with an active session is rejected before the provider is called.
// If the provider job starts but the session cannot be stored, the job id is
// still returned and a partial failure is reported; the one exception is a
// lost race for the room, which is returned as AlreadyRecordingError.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (string, error) {
	room := model.NormalizeName(req.Room)
	actor := model.NormalizeName(req.Actor)

	ctx, span := tracer().Start(ctx, "recording.start",
		trace.WithAttributes(telemetry.RecordingAttributes("", room, actor)...))
	defer span.End()

	if err := model.ValidateName("roomName", room); err != nil {
		metrics.IncRecordingStart("invalid")
		return "", err
	}
	if err := model.ValidateName("actorName", actor); err != nil {
		metrics.IncRecordingStart("invalid")
		return "", err
	}
	if req.OwnerID == "" {
		metrics.IncRecordingStart("invalid")
		return "", &model.ValidationError{Field: "ownerId", Message: "is required"}
	}

	ctx = log.ContextWithRoom(ctx, room)
	logger := log.WithComponentFromContext(ctx, "recording")

	active, err := o.Store.ActiveForRoom(ctx, room)
	if err != nil {
		metrics.IncRecordingStart("store_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "active lookup")
		return "", fmt.Errorf("check active recording for %s: %w", room, err)
	}
	if active != nil {
		metrics.IncRecordingStart("already_recording")
		return "", &model.AlreadyRecordingError{Room: room, JobID: active.JobID}
	}

	jobID, err := o.Egress.StartParticipantEgress(ctx, room, actor)
	if err != nil {
		metrics.IncRecordingStart("external_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "egress start")
		if !errors.Is(err, model.ErrExternalService) {
			err = &model.ExternalServiceError{Op: "start egress", Err: err}
		}
		return "", err
	}

	sess := &model.RecordingSession{
		JobID:      jobID,
		RoomName:   room,
		ActorName:  actor,
		OwnerID:    req.OwnerID,
		Status:     model.StatusRecording,
		StartedAt:  o.now().UTC(),
		StorageKey: model.StorageKeyFor(room, actor),
	}

	// The provider job exists now; the row must be written even if the
	// caller went away.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.Store.Create(pctx, sess); err != nil {
		o.reportPartialFailure(ctx, sess, err)
		span.RecordError(err)
		if errors.Is(err, store.ErrRoomBusy) {
			metrics.IncRecordingStart("already_recording")
			winner := ""
			if cur, lerr := o.Store.ActiveForRoom(pctx, room); lerr == nil && cur != nil {
				winner = cur.JobID
			}
			return "", &model.AlreadyRecordingError{Room: room, JobID: winner}
		}
		metrics.IncRecordingStart("partial_failure")
		return jobID, nil
	}

	metrics.IncRecordingStart("ok")
	logger.Info().
		Str(log.FieldEvent, "recording.started").
		Str(log.FieldJobID, jobID).
		Str(log.FieldActor, actor).
		Str(log.FieldOwnerID, req.OwnerID).
		Msg("recording started")
	return jobID, nil
}

// reportPartialFailure records a provider job that has no local row.
func (o *Orchestrator) reportPartialFailure(ctx context.Context, sess *model.RecordingSession, cause error) {
	pf := &model.PartialFailureError{JobID: sess.JobID, Room: sess.RoomName, Actor: sess.ActorName, Err: cause}
	reason := "store_error"
	if errors.Is(cause, store.ErrRoomBusy) {
		reason = "room_busy"
	}
	metrics.IncRecordingPartialFailure(reason)
	logger := log.WithComponentFromContext(ctx, "recording")
	logger.Error().
		Err(pf).
		Str(log.FieldEvent, "recording.partial_failure").
		Str(log.FieldJobID, sess.JobID).
		Str(log.FieldRoom, sess.RoomName).
		Str(log.FieldActor, sess.ActorName).
		Str("reason", reason).
		Msg("egress job running without a local record; reconcile manually")
}

// Status returns the stored session. It never calls the provider.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*model.RecordingSession, error) {
	if err := model.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	sess, err := o.Store.Get(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &model.NotFoundError{Kind: "recording", ID: jobID}
	}
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", jobID, err)
	}
	return sess, nil
}

// ListRecordings returns the owner's sessions, newest first, each with a
// signed playlist URL when a signer is configured. A signing failure leaves
// the URL empty.
func (o *Orchestrator) ListRecordings(ctx context.Context, ownerID string) ([]RecordingView, error) {
	if ownerID == "" {
		return nil, &model.ValidationError{Field: "ownerId", Message: "is required"}
	}
	sessions, err := o.Store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "recording")
	views := make([]RecordingView, 0, len(sessions))
	for _, s := range sessions {
		v := RecordingView{RecordingSession: *s}
		if o.Blobs != nil {
			url, err := o.Blobs.PresignGet(ctx, blobstore.PlaylistKey(s.StorageKey, s.RoomName), blobstore.PlaylistExpiry)
			if err != nil {
				logger.Warn().Err(err).Str(log.FieldJobID, s.JobID).Msg("presign playlist failed")
			} else {
				v.PlaylistURL = url
			}
		}
		views = append(views, v)
	}
	return views, nil
}
