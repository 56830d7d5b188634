// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/domain/recording/store"
	"github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/metrics"
	"github.com/tuto/meetd/internal/telemetry"
)

// Finalize sources, also used as metric labels.
const (
	sourceLocalTerminal = "local_terminal"
	sourceProviderGone  = "provider_gone"
	sourceSync          = "sync"
	sourceReconcile     = "reconcile"
	sourceFallback      = "fallback"
)

// StopResult is the outcome of Stop. Success is always true once the job id
// is well formed.
type StopResult struct {
	Success     bool         `json:"success"`
	JobID       string       `json:"jobId"`
	Status      model.Status `json:"status"`
	PlaylistRef string       `json:"playlistRef,omitempty"`
}

// Stop ends the provider job and finalizes the stored session. A malformed
// job id is returned as an error; every provider or store failure degrades to
// status stopped. Concurrent stops of one job share a single execution that
// does not depend on any caller's context: a caller whose ctx ends returns
// ctx.Err() early while the shared stop still settles the row.
func (o *Orchestrator) Stop(ctx context.Context, jobID string) (StopResult, error) {
	if err := model.ValidateJobID(jobID); err != nil {
		return StopResult{}, err
	}
	detached := context.WithoutCancel(ctx)
	ch := o.stops.DoChan(jobID, func() (any, error) {
		fctx, cancel := context.WithTimeout(detached, o.stopBudget())
		defer cancel()
		return o.stop(fctx, jobID), nil
	})
	select {
	case <-ctx.Done():
		return StopResult{}, ctx.Err()
	case res := <-ch:
		return res.Val.(StopResult), nil
	}
}

// stopBudget bounds one shared stop: the provider stop, the finalize wait and
// the follow-up read. The store write has its own persistTimeout.
func (o *Orchestrator) stopBudget() time.Duration {
	return o.finalizeDelay() + 2*persistTimeout
}

func (o *Orchestrator) stop(ctx context.Context, jobID string) StopResult {
	ctx, span := tracer().Start(ctx, "recording.stop",
		trace.WithAttributes(telemetry.RecordingAttributes(jobID, "", "")...))
	defer span.End()

	ctx = log.ContextWithJobID(ctx, jobID)
	logger := log.WithComponentFromContext(ctx, "recording")

	sess, err := o.Store.Get(ctx, jobID)
	switch {
	case err == nil && sess.Status.IsTerminal():
		metrics.IncRecordingFinalize(sourceLocalTerminal)
		span.SetAttributes(attribute.String("recording.finalize_source", sourceLocalTerminal))
		return resultFor(sess)
	case errors.Is(err, store.ErrNotFound):
		sess = nil
	case err != nil:
		logger.Warn().Err(err).Msg("load recording before stop failed")
		sess = nil
	}

	status, result, source := o.finalize(ctx, logger, jobID, sess)
	span.SetAttributes(
		attribute.String("recording.finalize_source", source),
		attribute.String(telemetry.RecordingStatusKey, string(status)),
	)
	metrics.IncRecordingFinalize(source)
	metrics.IncRecordingStop(string(status))

	out := StopResult{Success: true, JobID: jobID, Status: status, PlaylistRef: result.PlaylistRef()}

	// A provider that no longer knows the job only settles rows still open.
	if source == sourceProviderGone && (sess == nil || !sess.Status.IsActive()) {
		return out
	}
	if patched := o.patch(ctx, logger, jobID, status, result); patched != nil {
		out = resultFor(patched)
	}

	logger.Info().
		Str(log.FieldEvent, "recording.stopped").
		Str(log.FieldStatus, string(out.Status)).
		Str("source", source).
		Msg("recording stopped")
	return out
}

// finalize asks the provider to stop jobID and decides the final status.
func (o *Orchestrator) finalize(ctx context.Context, logger zerolog.Logger, jobID string, sess *model.RecordingSession) (model.Status, *model.Result, string) {
	info, err := o.Egress.StopEgress(ctx, jobID)
	switch {
	case errors.Is(err, ports.ErrJobNotFound), errors.Is(err, ports.ErrJobNotStoppable):
		logger.Debug().Err(err).Msg("provider job already gone")
		return model.StatusStopped, nil, sourceProviderGone
	case err == nil && hasFinalData(info):
		return model.MapProviderStatus(info.Status), info.Result, sourceSync
	case err != nil:
		logger.Warn().Err(err).Msg("stop request failed; reading provider status")
	}

	info, err = o.reconcile(ctx, jobID)
	if err != nil {
		logger.Warn().Err(err).Msg("provider status unavailable; marking stopped")
		return model.StatusStopped, nil, sourceFallback
	}
	if info.Error != "" {
		logger.Warn().Str("provider_error", info.Error).Msg("provider reported job error")
	}
	return model.MapProviderStatus(info.Status), info.Result, sourceReconcile
}

// hasFinalData reports whether a stop response already carries the outcome.
func hasFinalData(info *ports.ProviderInfo) bool {
	if info == nil {
		return false
	}
	if info.Result != nil {
		return true
	}
	switch model.MapProviderStatus(info.Status) {
	case model.StatusCompleted, model.StatusFailed, model.StatusAborted:
		return true
	}
	return false
}

// reconcile waits FinalizeDelay, then reads the provider status once.
func (o *Orchestrator) reconcile(ctx context.Context, jobID string) (*ports.ProviderInfo, error) {
	t := time.NewTimer(o.finalizeDelay())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
	}
	info, err := o.Egress.GetStatus(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.New("provider returned no status")
	}
	return info, nil
}

// patch writes the final status and returns the stored row, or nil if the
// write did not happen.
func (o *Orchestrator) patch(ctx context.Context, logger zerolog.Logger, jobID string, status model.Status, result *model.Result) *model.RecordingSession {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	sess, err := o.Store.PatchStatus(pctx, jobID, status, result)
	switch {
	case err == nil:
		return sess
	case errors.Is(err, store.ErrNotFound):
		logger.Info().Msg("stopped job has no local record; nothing to update")
	case errors.Is(err, store.ErrInvalidTransition):
		logger.Info().Err(err).Msg("recording already past requested status")
		if cur, gerr := o.Store.Get(pctx, jobID); gerr == nil {
			return cur
		}
	default:
		logger.Error().Err(err).Str(log.FieldNewState, string(status)).Msg("persist stop outcome failed")
	}
	return nil
}

func resultFor(sess *model.RecordingSession) StopResult {
	return StopResult{
		Success:     true,
		JobID:       sess.JobID,
		Status:      sess.Status,
		PlaylistRef: sess.Result.PlaylistRef(),
	}
}
