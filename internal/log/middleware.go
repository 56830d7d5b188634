// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware logs one line per request with method, path, status and latency.
// Health probes are logged at debug level.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger := WithComponentFromContext(r.Context(), "http")
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			evt := logger.Info()
			switch {
			case status >= http.StatusInternalServerError:
				evt = logger.Error()
			case r.URL.Path == "/healthz" || r.URL.Path == "/readyz":
				evt = logger.Debug()
			}
			evt.
				Str(FieldEvent, "request.handled").
				Str(FieldMethod, r.Method).
				Str(FieldPath, r.URL.Path).
				Int(FieldStatus, status).
				Int("bytes", ww.BytesWritten()).
				Int64(FieldDurationMS, time.Since(start).Milliseconds()).
				Str(FieldRemoteAddr, r.RemoteAddr).
				Msg("request handled")
		})
	}
}
