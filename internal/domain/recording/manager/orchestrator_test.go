// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/store"
)

func TestStart_SecondStartIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orch.Start(ctx, StartRequest{Room: "room-1", Actor: "alice", OwnerID: "u1"})
	require.NoError(t, err)

	_, err = h.orch.Start(ctx, StartRequest{Room: "room-1", Actor: "bob", OwnerID: "u2"})
	require.Error(t, err)
	var already *model.AlreadyRecordingError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, first, already.JobID)
	assert.ErrorIs(t, err, model.ErrAlreadyRecording)

	assert.Equal(t, 1, activeCount(t, h.store, "room-1"))
	assert.Equal(t, 1, h.egress.Calls().Start, "no second provider job")
}

func TestStart_ConcurrentStartsAdmitOne(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		already int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.orch.Start(ctx, StartRequest{Room: "race", Actor: fmt.Sprintf("actor-%d", i), OwnerID: "u"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, model.ErrAlreadyRecording):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
	assert.Equal(t, 1, activeCount(t, h.store, "race"))
}

func TestStart_PersistsSession(t *testing.T) {
	h := newHarness(t)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	h.orch.Clock = func() time.Time { return at }
	h.egress.QueueIDs("EG_persist")

	// Names are trimmed and stored in NFC.
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: " Zo\u0308 ", Actor: "alice", OwnerID: "u1"})
	require.NoError(t, err)

	got, err := h.store.Get(context.Background(), jobID)
	require.NoError(t, err)
	want := &model.RecordingSession{
		JobID:      "EG_persist",
		RoomName:   "Z\u00f6",
		ActorName:  "alice",
		OwnerID:    "u1",
		Status:     model.StatusRecording,
		StartedAt:  at,
		StorageKey: "Z\u00f6/alice",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored session mismatch (-want +got):\n%s", diff)
	}
}

func TestStart_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []StartRequest{
		{Room: "", Actor: "alice", OwnerID: "u"},
		{Room: "room", Actor: "  ", OwnerID: "u"},
		{Room: "a/b", Actor: "alice", OwnerID: "u"},
		{Room: "room", Actor: "..", OwnerID: "u"},
		{Room: "room", Actor: "alice", OwnerID: ""},
	}
	for _, req := range tests {
		_, err := h.orch.Start(context.Background(), req)
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, "%+v", req)
	}
	assert.Zero(t, h.egress.Calls().Start)
}

func TestStart_ProviderFailure(t *testing.T) {
	h := newHarness(t)
	h.egress.FailStart(errors.New("egress unavailable"))

	_, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExternalService)
	assert.NotErrorIs(t, err, model.ErrAlreadyRecording)
	assert.Equal(t, 0, activeCount(t, h.store, "r"))
}

func TestStart_StoreFailureIsPartialFailure(t *testing.T) {
	h := newHarness(t)
	h.orch.Store = &failingStore{Store: h.store, createErr: errors.New("disk full")}
	h.egress.QueueIDs("EG_orphan")

	before := counterValue(t, "meetd_recording_partial_failures_total", map[string]string{"reason": "store_error"})

	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err, "the recording runs, so the caller gets its id")
	assert.Equal(t, "EG_orphan", jobID)

	after := counterValue(t, "meetd_recording_partial_failures_total", map[string]string{"reason": "store_error"})
	assert.Equal(t, before+1, after)
	assert.Equal(t, model.ProviderActive, h.egress.Status("EG_orphan"), "no compensating stop")
}

func TestStart_LostRoomRaceIsAlreadyRecording(t *testing.T) {
	h := newHarness(t)
	h.orch.Store = &failingStore{Store: h.store, createErr: fmt.Errorf("insert: %w", store.ErrRoomBusy)}

	before := counterValue(t, "meetd_recording_partial_failures_total", map[string]string{"reason": "room_busy"})
	_, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	assert.ErrorIs(t, err, model.ErrAlreadyRecording)
	assert.Equal(t, before+1, counterValue(t, "meetd_recording_partial_failures_total", map[string]string{"reason": "room_busy"}))
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Status(ctx, "EG_missing")
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "EG_missing", nf.ID)

	_, err = h.orch.Status(ctx, "bad id!")
	assert.ErrorIs(t, err, model.ErrValidation)

	jobID, err := h.orch.Start(ctx, StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)
	sess, err := h.orch.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRecording, sess.Status)

	calls := h.egress.Calls()
	assert.Zero(t, calls.Status, "status reads never reach the provider")
}

func TestListRecordings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	h.orch.Clock = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }
	h.orch.Blobs = &fakeSigner{fail: map[string]bool{"r2/a/r2.m3u8": true}}

	_, err := h.orch.Start(ctx, StartRequest{Room: "r1", Actor: "a", OwnerID: "owner"})
	require.NoError(t, err)
	_, err = h.orch.Start(ctx, StartRequest{Room: "r2", Actor: "a", OwnerID: "owner"})
	require.NoError(t, err)
	_, err = h.orch.Start(ctx, StartRequest{Room: "r3", Actor: "a", OwnerID: "someone-else"})
	require.NoError(t, err)

	views, err := h.orch.ListRecordings(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "r2", views[0].RoomName)
	assert.Empty(t, views[0].PlaylistURL, "signing failure leaves the url empty")
	assert.Equal(t, "r1", views[1].RoomName)
	assert.Equal(t, "https://blobs.example/r1/a/r1.m3u8?ttl=86400", views[1].PlaylistURL)

	_, err = h.orch.ListRecordings(ctx, "")
	assert.ErrorIs(t, err, model.ErrValidation)
}
