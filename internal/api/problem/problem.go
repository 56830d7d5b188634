// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/tuto/meetd/internal/log"
)

const (
	HeaderRequestID  = "X-Request-ID"
	JSONKeyRequestID = "requestId"
)

// Problem types. Each error class maps to exactly one type.
const (
	TypeValidation       = "recording/validation"
	TypeAlreadyRecording = "recording/already_recording"
	TypeExternalService  = "recording/external_service"
	TypeNotFound         = "system/not_found"
	TypeUnauthorized     = "auth/unauthorized"
	TypeRateLimited      = "system/rate_limited"
	TypeInternal         = "system/internal"
	TypeUnavailable      = "system/unavailable"
)

// Write writes an RFC 7807 problem details response.
//
// type is the canonical machine identifier, title a short label, code a
// stable upper-case code and detail the specific explanation. Extras are
// added at top level; reserved keys are ignored.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	reqID := log.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = w.Header().Get(HeaderRequestID)
	}

	res := map[string]any{
		"type":   problemType,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID != "" {
		res[JSONKeyRequestID] = reqID
		w.Header().Set(HeaderRequestID, reqID)
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance := r.URL.EscapedPath(); instance != "" {
		res["instance"] = instance
	}

	for k, v := range extra {
		switch k {
		case "type", "title", "status", "detail", "instance", "code", JSONKeyRequestID:
			log.L().Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}
