// SPDX-License-Identifier: MIT
package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		switch {
		case pb.Counter != nil:
			total += pb.GetCounter().GetValue()
		case pb.Gauge != nil:
			total += pb.GetGauge().GetValue()
		}
	}
	return total
}

func TestRecordingCounters(t *testing.T) {
	c := recordingPartialFailures.WithLabelValues("store_write")
	before := counterValue(t, c)
	IncRecordingPartialFailure("store_write")
	assert.Equal(t, before+1, counterValue(t, c))

	s := recordingStopTotal.WithLabelValues("completed")
	before = counterValue(t, s)
	IncRecordingStop("completed")
	assert.Equal(t, before+1, counterValue(t, s))
}

func TestCompanionGauge(t *testing.T) {
	SetCompanionWorkersActive(3)
	assert.Equal(t, float64(3), counterValue(t, companionWorkersActive))
	SetCompanionWorkersActive(0)
	assert.Equal(t, float64(0), counterValue(t, companionWorkersActive))
}

func TestProcSignalCounter(t *testing.T) {
	c := procSignalTotal.WithLabelValues("SIGTERM", "ok")
	before := counterValue(t, c)
	IncProcSignal("SIGTERM", "ok")
	assert.Equal(t, before+1, counterValue(t, c))
}

func TestCircuitBreakerState_OneHot(t *testing.T) {
	SetCircuitBreakerState("unit", "open")
	assert.Equal(t, 1.0, counterValue(t, circuitBreakerState.WithLabelValues("unit", "open")))
	assert.Equal(t, 0.0, counterValue(t, circuitBreakerState.WithLabelValues("unit", "closed")))

	SetCircuitBreakerState("unit", "closed")
	assert.Equal(t, 0.0, counterValue(t, circuitBreakerState.WithLabelValues("unit", "open")))
	assert.Equal(t, 1.0, counterValue(t, circuitBreakerState.WithLabelValues("unit", "closed")))

	trips := circuitBreakerTrips.WithLabelValues("unit", "threshold_exceeded")
	before := counterValue(t, trips)
	RecordCircuitBreakerTrip("unit", "threshold_exceeded")
	assert.Equal(t, before+1, counterValue(t, trips))
}

func TestExposition(t *testing.T) {
	IncRecordingStart("ok")
	ObserveHTTPRequest("GET", "/healthz", "200", 0.001)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{"meetd_recording_start_total", "meetd_http_requests_total", "meetd_companion_workers_active"} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
