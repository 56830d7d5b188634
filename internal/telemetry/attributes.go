// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Recording attributes
	RecordingJobIDKey  = "recording.job_id"
	RecordingRoomKey   = "recording.room"
	RecordingActorKey  = "recording.actor"
	RecordingStatusKey = "recording.status"

	// Egress provider attributes
	EgressModeKey           = "egress.mode"
	EgressProviderStatusKey = "egress.provider_status"

	// Companion worker attributes
	CompanionRoomKey = "companion.room"
	CompanionPIDKey  = "companion.pid"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RecordingAttributes creates recording-related span attributes. Empty values are skipped.
func RecordingAttributes(jobID, room, actor string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if jobID != "" {
		attrs = append(attrs, attribute.String(RecordingJobIDKey, jobID))
	}
	if room != "" {
		attrs = append(attrs, attribute.String(RecordingRoomKey, room))
	}
	if actor != "" {
		attrs = append(attrs, attribute.String(RecordingActorKey, actor))
	}
	return attrs
}

// CompanionAttributes creates worker-related span attributes.
func CompanionAttributes(room string, pid int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CompanionRoomKey, room),
		attribute.Int(CompanionPIDKey, pid),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
