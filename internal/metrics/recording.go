// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordingStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_recording_start_total",
		Help: "Recording start attempts by outcome",
	}, []string{"outcome"}) // outcome=ok|invalid|already_recording|external_error|store_error|partial_failure

	recordingStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_recording_stop_total",
		Help: "Recording stop requests by resulting local status",
	}, []string{"status"})

	recordingFinalizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_recording_finalize_total",
		Help: "How stop obtained its final status",
	}, []string{"source"}) // source=sync|reconcile|fallback|provider_gone|local_terminal

	recordingPartialFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_recording_partial_failures_total",
		Help: "Provider jobs started without a local record (needs manual reconciliation)",
	}, []string{"reason"})

	egressRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_egress_requests_total",
		Help: "Egress provider calls by operation and outcome",
	}, []string{"op", "outcome"})

	egressRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetd_egress_request_duration_seconds",
		Help:    "Latency of egress provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// IncRecordingStart counts a start attempt.
func IncRecordingStart(outcome string) { recordingStartTotal.WithLabelValues(outcome).Inc() }

// IncRecordingStop counts a stop by the status it left the row in.
func IncRecordingStop(status string) { recordingStopTotal.WithLabelValues(status).Inc() }

// IncRecordingFinalize counts how a stop resolved its final status.
func IncRecordingFinalize(source string) { recordingFinalizeTotal.WithLabelValues(source).Inc() }

// IncRecordingPartialFailure counts an orphaned provider job.
func IncRecordingPartialFailure(reason string) {
	recordingPartialFailures.WithLabelValues(reason).Inc()
}

// ObserveEgressRequest records one provider call.
func ObserveEgressRequest(op, outcome string, seconds float64) {
	egressRequestsTotal.WithLabelValues(op, outcome).Inc()
	egressRequestDuration.WithLabelValues(op).Observe(seconds)
}
