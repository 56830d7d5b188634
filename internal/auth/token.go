// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"net/http"
	"strings"
)

// SessionCookie carries the bearer token for browser clients.
const SessionCookie = "meetd_session"

// ExtractToken retrieves the bearer token from the request.
// 1. Authorization: Bearer <token>
// 2. Cookie: meetd_session
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
