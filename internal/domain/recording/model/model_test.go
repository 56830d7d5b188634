// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapProviderStatus_Table(t *testing.T) {
	tests := []struct {
		provider string
		want     Status
	}{
		{"complete", StatusCompleted},
		{"ending", StatusEnding},
		{"failed", StatusFailed},
		{"aborted", StatusAborted},
		{"active", StatusActive},
		{" COMPLETE ", StatusCompleted},
		{"EGRESS_LIMIT_REACHED", StatusStopped},
		{"starting", StatusStopped},
		{"", StatusStopped},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, MapProviderStatus(tt.provider))
			// deterministic across calls
			assert.Equal(t, MapProviderStatus(tt.provider), MapProviderStatus(tt.provider))
		})
	}
}

func TestStatus_Classification(t *testing.T) {
	for _, s := range ActiveStatuses {
		assert.True(t, s.IsActive(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusAborted, StatusStopped} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsActive(), s)
	}
	assert.False(t, Status("paused").Valid())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusRecording, StatusActive, true},
		{StatusRecording, StatusCompleted, true},
		{StatusActive, StatusEnding, true},
		{StatusEnding, StatusActive, false},
		{StatusActive, StatusRecording, false},
		{StatusRecording, StatusFailed, true},
		{StatusEnding, StatusAborted, true},
		{StatusCompleted, StatusRecording, false},
		{StatusStopped, StatusCompleted, true},
		{StatusFailed, StatusFailed, true},
		{StatusRecording, Status("bogus"), false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestErrors_ClassesAreDistinct(t *testing.T) {
	cause := errors.New("twirp unavailable")
	errs := map[error]error{
		&ValidationError{Field: "roomName", Message: "must not be empty"}: ErrValidation,
		&AlreadyRecordingError{Room: "r1", JobID: "EG_1"}:                 ErrAlreadyRecording,
		&ExternalServiceError{Op: "start egress", Err: cause}:             ErrExternalService,
		&PartialFailureError{JobID: "EG_2", Room: "r1", Err: cause}:       ErrPartialFailure,
		&NotFoundError{Kind: "recording", ID: "EG_3"}:                     ErrNotFound,
	}
	classes := []error{ErrValidation, ErrAlreadyRecording, ErrExternalService, ErrPartialFailure, ErrNotFound}

	for err, class := range errs {
		wrapped := fmt.Errorf("handler: %w", err)
		for _, c := range classes {
			assert.Equal(t, c == class, errors.Is(wrapped, c), "%v vs %v", err, c)
		}
	}

	ext := &ExternalServiceError{Op: "stop egress", Err: cause}
	assert.ErrorIs(t, ext, cause)

	var are *AlreadyRecordingError
	require.ErrorAs(t, fmt.Errorf("wrap: %w", &AlreadyRecordingError{Room: "r9"}), &are)
	assert.Equal(t, "r9", are.Room)
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("roomName", "daily-standup"))
	assert.NoError(t, ValidateName("actorName", "Zoë"))

	for _, bad := range []string{"", "a/b", "a\\b", "..", "tab\there"} {
		err := ValidateName("roomName", bad)
		require.Error(t, err, bad)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestNormalizeName_NFC(t *testing.T) {
	decomposed := "Zoe\u0308"
	assert.Equal(t, "Zo\u00eb", NormalizeName("  "+decomposed+" "))
}

func TestValidateJobID(t *testing.T) {
	assert.NoError(t, ValidateJobID("EG_abc123-x.y"))
	for _, bad := range []string{"", "EG abc", "EG/1", "é"} {
		assert.ErrorIs(t, ValidateJobID(bad), ErrValidation, bad)
	}
}

func TestResult_ValidateAndPlaylistRef(t *testing.T) {
	seg := NewSegmentsResult(SegmentsResult{PlaylistName: "r1.m3u8", Duration: 42})
	require.NoError(t, seg.Validate())
	assert.Equal(t, "r1.m3u8", seg.PlaylistRef())

	seg.Segments.PlaylistLocation = "https://blob/r1/alice/r1.m3u8"
	assert.Equal(t, "https://blob/r1/alice/r1.m3u8", seg.PlaylistRef())

	file := NewFileResult(FileResult{Filename: "r1.mp4"})
	require.NoError(t, file.Validate())
	assert.Equal(t, "r1.mp4", file.PlaylistRef())

	unknown := NewUnknownResult(json.RawMessage(`{"foo":1}`))
	require.NoError(t, unknown.Validate())
	assert.Empty(t, unknown.PlaylistRef())

	broken := &Result{Kind: ResultSegments, File: &FileResult{}}
	assert.Error(t, broken.Validate())
	assert.Error(t, (&Result{Kind: "blob"}).Validate())

	var nilResult *Result
	assert.NoError(t, nilResult.Validate())
	assert.Empty(t, nilResult.PlaylistRef())
}

func TestRecordingSession_CloneIsDeep(t *testing.T) {
	orig := &RecordingSession{
		JobID:    "EG_1",
		RoomName: "r1",
		Status:   StatusCompleted,
		Result:   NewSegmentsResult(SegmentsResult{PlaylistName: "r1.m3u8"}),
	}
	c := orig.Clone()
	if diff := cmp.Diff(orig, c); diff != "" {
		t.Fatalf("clone mismatch (-want +got):\n%s", diff)
	}
	c.Result.Segments.PlaylistName = "changed"
	assert.Equal(t, "r1.m3u8", orig.Result.Segments.PlaylistName)
}
