// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	jobIDKey     ctxKey = "job_id"
	roomKey      ctxKey = "room"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithJobID stores the provided job ID in the context.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// ContextWithRoom stores the room name in the context.
func ContextWithRoom(ctx context.Context, room string) context.Context {
	return withValue(ctx, roomKey, room)
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// JobIDFromContext extracts the job ID from context if present.
func JobIDFromContext(ctx context.Context) string {
	return stringValue(ctx, jobIDKey)
}

// RoomFromContext extracts the room name from context if present.
func RoomFromContext(ctx context.Context) string {
	return stringValue(ctx, roomKey)
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := RequestIDFromContext(ctx); rid != "" {
		builder = builder.Str(FieldRequestID, rid)
		added = true
	}
	if jid := JobIDFromContext(ctx); jid != "" {
		builder = builder.Str(FieldJobID, jid)
		added = true
	}
	if room := RoomFromContext(ctx); room != "" {
		builder = builder.Str(FieldRoom, room)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger that is annotated with the component
// name and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
