// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldOwnerID   = "owner_id"
	FieldRoom      = "room"
	FieldActor     = "actor"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldStream    = "stream"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
)
