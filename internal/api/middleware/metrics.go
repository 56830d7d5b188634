// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tuto/meetd/internal/metrics"
)

// Metrics records request count and latency per route pattern. Unmatched
// paths share one label to bound cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}
