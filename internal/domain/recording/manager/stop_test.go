// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuto/meetd/internal/domain/recording/model"
)

func TestScenario_StartStopStop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	final := model.NewSegmentsResult(model.SegmentsResult{
		PlaylistName:     "room-1.m3u8",
		LivePlaylistName: "room-1-live.m3u8",
		Duration:         61_000_000_000,
		Size:             10_485_760,
		SegmentCount:     31,
	})
	h.egress.SetFinal(model.ProviderComplete, final)
	h.egress.QueueIDs("job-abc")

	jobID, err := h.orch.Start(ctx, StartRequest{Room: "room-1", Actor: "alice", OwnerID: "u1"})
	require.NoError(t, err)
	require.Equal(t, "job-abc", jobID)

	row, err := h.store.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "room-1", row.RoomName)
	assert.Equal(t, "alice", row.ActorName)
	assert.Equal(t, model.StatusRecording, row.Status)
	assert.Nil(t, row.Result)

	res, err := h.orch.Stop(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, StopResult{Success: true, JobID: "job-abc", Status: model.StatusCompleted, PlaylistRef: "room-1.m3u8"}, res)

	row, err = h.store.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, row.Status)
	if diff := cmp.Diff(final, row.Result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, h.egress.Calls().Status, "one follow-up read after the bounded wait")

	res, err = h.orch.Stop(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.StatusCompleted, res.Status)

	again, err := h.store.Get(ctx, jobID)
	require.NoError(t, err)
	if diff := cmp.Diff(row, again); diff != "" {
		t.Errorf("second stop mutated the row (-before +after):\n%s", diff)
	}
	assert.Equal(t, 1, h.egress.Calls().Stop, "second stop is a local no-op")
}

func TestStop_StatusMapping(t *testing.T) {
	tests := []struct {
		provider string
		want     model.Status
	}{
		{model.ProviderComplete, model.StatusCompleted},
		{model.ProviderEnding, model.StatusEnding},
		{model.ProviderFailed, model.StatusFailed},
		{model.ProviderAborted, model.StatusAborted},
		{model.ProviderActive, model.StatusActive},
		{"EGRESS_LIMIT_REACHED", model.StatusStopped},
	}
	for _, syncStop := range []bool{false, true} {
		for _, tt := range tests {
			name := tt.provider
			if syncStop {
				name += "/sync"
			}
			t.Run(name, func(t *testing.T) {
				h := newHarness(t)
				h.egress.SyncStop(syncStop)
				h.egress.SetFinal(tt.provider, nil)

				jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
				require.NoError(t, err)

				res, err := h.orch.Stop(context.Background(), jobID)
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Status)

				row, err := h.store.Get(context.Background(), jobID)
				require.NoError(t, err)
				assert.Equal(t, tt.want, row.Status)
			})
		}
	}
}

func TestStop_SynchronousResultSkipsFollowUp(t *testing.T) {
	h := newHarness(t)
	h.egress.SyncStop(true)
	h.orch.FinalizeDelay = time.Hour

	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)

	res, err := h.orch.Stop(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, "r.m3u8", res.PlaylistRef)
	assert.Zero(t, h.egress.Calls().Status)
}

func TestStop_ProviderGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("unknown everywhere", func(t *testing.T) {
		res, err := h.orch.Stop(ctx, "EG_never_started")
		require.NoError(t, err)
		assert.Equal(t, StopResult{Success: true, JobID: "EG_never_started", Status: model.StatusStopped}, res)
	})

	t.Run("active row settles as stopped", func(t *testing.T) {
		require.NoError(t, h.store.Create(ctx, &model.RecordingSession{
			JobID:     "EG_local_only",
			RoomName:  "r",
			ActorName: "a",
			OwnerID:   "u",
			Status:    model.StatusRecording,
			StartedAt: time.Now(),
		}))
		res, err := h.orch.Stop(ctx, "EG_local_only")
		require.NoError(t, err)
		assert.Equal(t, model.StatusStopped, res.Status)

		row, err := h.store.Get(ctx, "EG_local_only")
		require.NoError(t, err)
		assert.Equal(t, model.StatusStopped, row.Status)
		assert.Nil(t, row.Result)
	})

	t.Run("already stopped at provider", func(t *testing.T) {
		jobID, err := h.orch.Start(ctx, StartRequest{Room: "r2", Actor: "a", OwnerID: "u"})
		require.NoError(t, err)
		_, err = h.egress.StopEgress(ctx, jobID)
		require.NoError(t, err)

		res, err := h.orch.Stop(ctx, jobID)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, model.StatusStopped, res.Status)
	})
}

func TestStop_FollowUpFailureFallsBackToStopped(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)
	h.egress.FailStatus(errors.New("provider timeout"))

	res, err := h.orch.Stop(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, res.Status)

	row, err := h.store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStopped, row.Status)
	assert.Nil(t, row.Result)
}

func TestStop_StopErrorStillReconciles(t *testing.T) {
	h := newHarness(t)
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)
	h.egress.FailStop(&model.ExternalServiceError{Op: "stop egress", Err: errors.New("502")})

	res, err := h.orch.Stop(context.Background(), jobID)
	require.NoError(t, err, "stop never fails visibly")
	assert.Equal(t, model.StatusActive, res.Status, "provider still reports the job running")
	assert.Equal(t, 1, h.egress.Calls().Status)
}

func TestStop_CancelledCallerDoesNotDegradeSharedStop(t *testing.T) {
	h := newHarness(t)
	h.orch.FinalizeDelay = 150 * time.Millisecond
	h.egress.QueueIDs("job-1")
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "room-1", Actor: "alice", OwnerID: "u"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var (
		wg       sync.WaitGroup
		patient  StopResult
		patientE error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Joins the flight started below while it waits.
		time.Sleep(10 * time.Millisecond)
		patient, patientE = h.orch.Stop(context.Background(), jobID)
	}()

	start := time.Now()
	_, err = h.orch.Stop(ctx, jobID)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 140*time.Millisecond, "cancelled caller returns before the finalize wait ends")

	wg.Wait()
	require.NoError(t, patientE)
	assert.Equal(t, StopResult{Success: true, JobID: "job-1", Status: model.StatusCompleted, PlaylistRef: "room-1.m3u8"}, patient)

	row, err := h.store.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, row.Status)
	require.NotNil(t, row.Result)
	assert.Equal(t, "room-1.m3u8", row.Result.PlaylistRef())

	calls := h.egress.Calls()
	assert.Equal(t, 1, calls.Stop)
	assert.Equal(t, 1, calls.Status)
}

func TestStop_CancelledCallerAloneStillSettlesRow(t *testing.T) {
	h := newHarness(t)
	h.orch.FinalizeDelay = 50 * time.Millisecond
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.orch.Stop(ctx, jobID)
	require.ErrorIs(t, err, context.Canceled)

	require.Eventually(t, func() bool {
		row, err := h.store.Get(context.Background(), jobID)
		return err == nil && row.Status == model.StatusCompleted && row.Result != nil
	}, 2*time.Second, 10*time.Millisecond)

	res, err := h.orch.Stop(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 1, h.egress.Calls().Status)
}

func TestStop_ConcurrentCallsShareOneProviderStop(t *testing.T) {
	h := newHarness(t)
	h.orch.FinalizeDelay = 50 * time.Millisecond
	jobID, err := h.orch.Start(context.Background(), StartRequest{Room: "r", Actor: "a", OwnerID: "u"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]StopResult, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.orch.Stop(context.Background(), jobID)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.True(t, res.Success)
		assert.Equal(t, model.StatusCompleted, res.Status)
	}
	assert.Equal(t, 1, h.egress.Calls().Stop)
}

func TestStop_RejectsMalformedJobID(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"", "has space", "../etc"} {
		_, err := h.orch.Stop(context.Background(), id)
		assert.ErrorIs(t, err, model.ErrValidation, id)
	}
	assert.Zero(t, h.egress.Calls().Stop)
}
