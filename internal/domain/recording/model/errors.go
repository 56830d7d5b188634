// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"fmt"
)

// Error classes. Every typed error below matches exactly one of these with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyRecording = errors.New("room already recording")
	ErrExternalService  = errors.New("external service error")
	ErrPartialFailure   = errors.New("partial failure")
	ErrNotFound         = errors.New("not found")
)

// ValidationError reports missing or malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AlreadyRecordingError is returned when the room already has an active recording.
type AlreadyRecordingError struct {
	Room  string
	JobID string
}

func (e *AlreadyRecordingError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("room %q is already being recorded", e.Room)
	}
	return fmt.Sprintf("room %q is already being recorded (job %s)", e.Room, e.JobID)
}

func (e *AlreadyRecordingError) Unwrap() error { return ErrAlreadyRecording }

// ExternalServiceError wraps a failure of the egress provider.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the class sentinel and the provider cause.
func (e *ExternalServiceError) Unwrap() []error { return []error{ErrExternalService, e.Err} }

// PartialFailureError records a provider job that was created without a
// matching local row. It is logged and counted, never returned to callers.
type PartialFailureError struct {
	JobID string
	Room  string
	Actor string
	Err   error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("provider job %s for room %q has no local record: %v", e.JobID, e.Room, e.Err)
}

func (e *PartialFailureError) Unwrap() []error { return []error{ErrPartialFailure, e.Err} }

// NotFoundError is returned when a job id or room has no matching state.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
