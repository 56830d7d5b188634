// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package egress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"
	"github.com/twitchtv/twirp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
	"github.com/tuto/meetd/internal/log"
	"github.com/tuto/meetd/internal/metrics"
	"github.com/tuto/meetd/internal/resilience"
	"github.com/tuto/meetd/internal/telemetry"
)

// egressAPI is the subset of *lksdk.EgressClient we call.
type egressAPI interface {
	StartParticipantEgress(ctx context.Context, req *livekit.ParticipantEgressRequest) (*livekit.EgressInfo, error)
	StartRoomCompositeEgress(ctx context.Context, req *livekit.RoomCompositeEgressRequest) (*livekit.EgressInfo, error)
	StopEgress(ctx context.Context, req *livekit.StopEgressRequest) (*livekit.EgressInfo, error)
	ListEgress(ctx context.Context, req *livekit.ListEgressRequest) (*livekit.ListEgressResponse, error)
}

// LiveKitClient implements ports.EgressClient on the LiveKit egress service.
type LiveKitClient struct {
	api     egressAPI
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	tracer  trace.Tracer
	logger  zerolog.Logger
}

var _ ports.EgressClient = (*LiveKitClient)(nil)

// NewLiveKitClient builds a client for the configured LiveKit deployment.
func NewLiveKitClient(cfg Config) (*LiveKitClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newClient(lksdk.NewEgressClient(cfg.URL, cfg.APIKey, cfg.APISecret), cfg), nil
}

func newClient(api egressAPI, cfg Config) *LiveKitClient {
	if cfg.Mode == "" {
		cfg.Mode = ModeParticipant
	}
	c := &LiveKitClient{
		api:    api,
		cfg:    cfg,
		tracer: telemetry.Tracer("meetd/egress"),
		logger: log.WithComponent("egress"),
		breaker: resilience.NewCircuitBreaker("egress", cfg.BreakerThreshold, cfg.BreakerCooldown,
			resilience.WithFailureFilter(providerFault)),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// call runs one provider request with rate limiting, timeout, span, metrics
// and the circuit breaker.
func (c *LiveKitClient) call(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "egress."+op, trace.WithAttributes(attrs...))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "rate limit wait")
			return fmt.Errorf("egress rate limit: %w", err)
		}
	}
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.breaker.Execute(func() error { return fn(ctx) })
	outcome := "ok"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
		span.SetStatus(codes.Error, "circuit open")
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
	}
	metrics.ObserveEgressRequest(op, outcome, time.Since(start).Seconds())
	return err
}

func (c *LiveKitClient) s3Upload() *livekit.S3Upload {
	u := c.cfg.Upload
	return &livekit.S3Upload{
		AccessKey:      u.AccessKey,
		Secret:         u.Secret,
		Region:         u.Region,
		Endpoint:       u.Endpoint,
		Bucket:         u.Bucket,
		ForcePathStyle: u.ForcePathStyle,
	}
}

func (c *LiveKitClient) segmentOutput(room, actor string) *livekit.SegmentedFileOutput {
	return &livekit.SegmentedFileOutput{
		FilenamePrefix:   filenamePrefix(room, actor),
		PlaylistName:     playlistName(room),
		LivePlaylistName: livePlaylistName(room),
		SegmentDuration:  SegmentDuration,
		Output: &livekit.SegmentedFileOutput_S3{
			S3: c.s3Upload(),
		},
	}
}

func (c *LiveKitClient) participantRequest(room, actor string) *livekit.ParticipantEgressRequest {
	return &livekit.ParticipantEgressRequest{
		RoomName:       room,
		Identity:       actor,
		ScreenShare:    false,
		Options:        &livekit.ParticipantEgressRequest_Preset{Preset: livekit.EncodingOptionsPreset_H264_1080P_30},
		SegmentOutputs: []*livekit.SegmentedFileOutput{c.segmentOutput(room, actor)},
	}
}

func (c *LiveKitClient) compositeRequest(room, actor string) *livekit.RoomCompositeEgressRequest {
	return &livekit.RoomCompositeEgressRequest{
		RoomName:       room,
		Layout:         compositeLayout,
		AudioOnly:      false,
		VideoOnly:      false,
		Options:        &livekit.RoomCompositeEgressRequest_Preset{Preset: livekit.EncodingOptionsPreset_H264_1080P_30},
		SegmentOutputs: []*livekit.SegmentedFileOutput{c.segmentOutput(room, actor)},
	}
}

// StartParticipantEgress submits a new recording job and returns its id.
func (c *LiveKitClient) StartParticipantEgress(ctx context.Context, room, actor string) (string, error) {
	attrs := append(telemetry.RecordingAttributes("", room, actor), attribute.String(telemetry.EgressModeKey, c.cfg.Mode))

	var info *livekit.EgressInfo
	err := c.call(ctx, "start", attrs, func(ctx context.Context) error {
		var err error
		if c.cfg.Mode == ModeRoomComposite {
			info, err = c.api.StartRoomCompositeEgress(ctx, c.compositeRequest(room, actor))
		} else {
			info, err = c.api.StartParticipantEgress(ctx, c.participantRequest(room, actor))
		}
		return err
	})
	if err != nil {
		return "", &model.ExternalServiceError{Op: "start egress", Err: err}
	}
	if info.GetEgressId() == "" {
		return "", &model.ExternalServiceError{Op: "start egress", Err: errors.New("provider returned no job id")}
	}

	c.logger.Info().
		Str(log.FieldEvent, "egress.started").
		Str(log.FieldJobID, info.GetEgressId()).
		Str(log.FieldRoom, room).
		Str(log.FieldActor, actor).
		Str("mode", c.cfg.Mode).
		Msg("egress job started")
	return info.GetEgressId(), nil
}

// StopEgress asks the provider to stop the job. A job the provider no longer
// knows or cannot stop yields ports.ErrJobNotFound / ports.ErrJobNotStoppable.
func (c *LiveKitClient) StopEgress(ctx context.Context, jobID string) (*ports.ProviderInfo, error) {
	var info *livekit.EgressInfo
	err := c.call(ctx, "stop", telemetry.RecordingAttributes(jobID, "", ""), func(ctx context.Context) error {
		var err error
		info, err = c.api.StopEgress(ctx, &livekit.StopEgressRequest{EgressId: jobID})
		return err
	})
	if err != nil {
		return nil, classifyStopError(err)
	}
	return toProviderInfo(info), nil
}

// GetStatus reads the provider's current view of the job.
func (c *LiveKitClient) GetStatus(ctx context.Context, jobID string) (*ports.ProviderInfo, error) {
	var resp *livekit.ListEgressResponse
	err := c.call(ctx, "status", telemetry.RecordingAttributes(jobID, "", ""), func(ctx context.Context) error {
		var err error
		resp, err = c.api.ListEgress(ctx, &livekit.ListEgressRequest{EgressId: jobID})
		return err
	})
	if err != nil {
		if isTwirpCode(err, twirp.NotFound) {
			return nil, fmt.Errorf("%w: %s", ports.ErrJobNotFound, jobID)
		}
		return nil, &model.ExternalServiceError{Op: "get egress status", Err: err}
	}
	for _, item := range resp.GetItems() {
		if item.GetEgressId() == jobID {
			return toProviderInfo(item), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ports.ErrJobNotFound, jobID)
}

// providerFault reports whether err says the provider is unhealthy, as
// opposed to rejecting this particular request.
func providerFault(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		isTwirpCode(err, twirp.NotFound),
		isTwirpCode(err, twirp.FailedPrecondition),
		isTwirpCode(err, twirp.InvalidArgument),
		strings.Contains(strings.ToLower(err.Error()), "cannot be stopped"):
		return false
	}
	return true
}

func isTwirpCode(err error, code twirp.ErrorCode) bool {
	var twerr twirp.Error
	return errors.As(err, &twerr) && twerr.Code() == code
}

func classifyStopError(err error) error {
	switch {
	case isTwirpCode(err, twirp.NotFound):
		return fmt.Errorf("%w: %v", ports.ErrJobNotFound, err)
	case isTwirpCode(err, twirp.FailedPrecondition),
		strings.Contains(strings.ToLower(err.Error()), "cannot be stopped"):
		return fmt.Errorf("%w: %v", ports.ErrJobNotStoppable, err)
	}
	return &model.ExternalServiceError{Op: "stop egress", Err: err}
}
