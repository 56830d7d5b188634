// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/tuto/meetd/internal/auth"
	"github.com/tuto/meetd/internal/log"
)

// authMiddleware requires a verified bearer token or session cookie and
// stores the principal on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "auth")

		raw := auth.ExtractToken(r)
		if raw == "" {
			logger.Debug().Str("event", "auth.missing_token").Msg("authorization header/cookie missing")
			writeProblem(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if s.deps.Verifier == nil {
			logger.Error().Str("event", "auth.fail_closed").Msg("no token verifier configured, denying access")
			writeProblem(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		p, err := s.deps.Verifier.Verify(raw)
		if err != nil {
			logger.Warn().Err(err).Str("event", "auth.invalid_token").Msg("token rejected")
			writeProblem(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// handleSessionLogin moves the verified bearer token into an HttpOnly cookie
// for browser clients.
// POST /api/v1/auth/session
func (s *Server) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    auth.ExtractToken(r),
		Path:     "/api/",
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((12 * time.Hour).Seconds()),
	})
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/auth/session
func (s *Server) handleSessionLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/api/",
		HttpOnly: true,
		Secure:   s.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// principal is set by authMiddleware on every /api/v1 route.
func principal(r *http.Request) *auth.Principal {
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		return p
	}
	return &auth.Principal{}
}
