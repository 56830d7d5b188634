// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/tuto/meetd/internal/api/problem"
	"github.com/tuto/meetd/internal/log"
)

// Recoverer turns a handler panic into a logged 500 problem response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)

			pathLabel := r.URL.Path
			if !utf8.ValidString(pathLabel) {
				pathLabel = strings.ToValidUTF8(pathLabel, "")
			}

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str("event", "panic.recovered").
				Str("method", r.Method).
				Str("path", pathLabel).
				Str("remote_addr", r.RemoteAddr).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", "INTERNAL", "An unexpected error occurred.", nil)
		}()

		next.ServeHTTP(w, r)
	})
}
