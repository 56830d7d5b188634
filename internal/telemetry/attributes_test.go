// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestRecordingAttributes_SkipsEmpty(t *testing.T) {
	m := attrMap(RecordingAttributes("EG_1", "standup", ""))
	assert.Len(t, m, 2)
	assert.Equal(t, "EG_1", m[RecordingJobIDKey].AsString())
	assert.Equal(t, "standup", m[RecordingRoomKey].AsString())
	_, has := m[RecordingActorKey]
	assert.False(t, has)
}

func TestCompanionAttributes(t *testing.T) {
	m := attrMap(CompanionAttributes("standup", 4242))
	assert.Equal(t, "standup", m[CompanionRoomKey].AsString())
	assert.Equal(t, int64(4242), m[CompanionPIDKey].AsInt64())
}

func TestHTTPAndErrorAttributes(t *testing.T) {
	m := attrMap(HTTPAttributes("POST", "/api/v1/recordings", 201))
	assert.Equal(t, "POST", m[HTTPMethodKey].AsString())
	assert.Equal(t, int64(201), m[HTTPStatusCodeKey].AsInt64())

	e := attrMap(ErrorAttributes(nil, "external_service"))
	assert.True(t, e[ErrorKey].AsBool())
	assert.Equal(t, "external_service", e[ErrorTypeKey].AsString())
}
