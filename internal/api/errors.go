// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tuto/meetd/internal/api/problem"
	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/log"
)

const maxBodyBytes = 64 << 10

// problemSpecs maps a status code to its problem type and title.
var problemSpecs = map[int]struct{ typ, title string }{
	http.StatusBadRequest:          {problem.TypeValidation, "Bad Request"},
	http.StatusUnauthorized:        {problem.TypeUnauthorized, "Unauthorized"},
	http.StatusNotFound:            {problem.TypeNotFound, "Not Found"},
	http.StatusMethodNotAllowed:    {problem.TypeNotFound, "Method Not Allowed"},
	http.StatusConflict:            {problem.TypeAlreadyRecording, "Conflict"},
	http.StatusBadGateway:          {problem.TypeExternalService, "Bad Gateway"},
	http.StatusServiceUnavailable:  {problem.TypeUnavailable, "Service Unavailable"},
	http.StatusInternalServerError: {problem.TypeInternal, "Internal Server Error"},
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	writeProblemExtra(w, r, status, code, detail, nil)
}

func writeProblemExtra(w http.ResponseWriter, r *http.Request, status int, code, detail string, extra map[string]any) {
	spec, ok := problemSpecs[status]
	if !ok {
		spec = problemSpecs[http.StatusInternalServerError]
	}
	problem.Write(w, r, status, spec.typ, spec.title, code, detail, extra)
}

// writeDomainError maps each recording error class to its own status.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *model.ValidationError
		already    *model.AlreadyRecordingError
		notFound   *model.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeProblemExtra(w, r, http.StatusBadRequest, "INVALID_INPUT", validation.Message, map[string]any{"field": validation.Field})
	case errors.As(err, &already):
		extra := map[string]any{"roomName": already.Room}
		if already.JobID != "" {
			extra["jobId"] = already.JobID
		}
		writeProblemExtra(w, r, http.StatusConflict, "ALREADY_RECORDING", err.Error(), extra)
	case errors.As(err, &notFound):
		writeProblem(w, r, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Str("event", "api.request_cancelled").Msg("request ended before the operation finished")
		writeProblem(w, r, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "the request ended before the operation finished")
	case errors.Is(err, model.ErrExternalService):
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str("event", "api.external_error").Msg("provider call failed")
		writeProblem(w, r, http.StatusBadGateway, "EXTERNAL_SERVICE", "the media provider rejected or failed the request")
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "api.internal_error").Msg("unexpected error")
		writeProblem(w, r, http.StatusInternalServerError, "INTERNAL", "An unexpected error occurred.")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("failed to encode response")
	}
}

// decodeBody reads a bounded JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &model.ValidationError{Field: "body", Message: "malformed JSON: " + err.Error()}
	}
	return nil
}
