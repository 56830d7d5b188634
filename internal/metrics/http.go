// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_http_requests_total",
		Help: "HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetd_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	configReloadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetd_config_reload_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route, code string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncConfigReload counts a config reload attempt.
func IncConfigReload(outcome string) { configReloadTotal.WithLabelValues(outcome).Inc() }
