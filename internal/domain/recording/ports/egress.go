// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ports declares the boundaries the recording orchestrator depends on.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/tuto/meetd/internal/domain/recording/model"
)

var (
	// ErrJobNotFound is returned by an EgressClient when the provider does not
	// know the job id.
	ErrJobNotFound = errors.New("egress job not found")

	// ErrJobNotStoppable is returned when the provider reports the job is
	// already aborted or otherwise cannot be stopped.
	ErrJobNotStoppable = errors.New("egress job cannot be stopped")
)

// ProviderInfo is a point-in-time view of a provider job. Status uses the
// provider vocabulary (model.Provider* constants or a raw name).
type ProviderInfo struct {
	JobID  string
	Status string
	Error  string
	Result *model.Result
}

// EgressClient starts, stops and inspects provider recording jobs. It holds
// no local state and does not retry.
type EgressClient interface {
	StartParticipantEgress(ctx context.Context, room, actor string) (jobID string, err error)
	// StopEgress returns nil info when the provider gave no synchronous result.
	StopEgress(ctx context.Context, jobID string) (*ProviderInfo, error)
	GetStatus(ctx context.Context, jobID string) (*ProviderInfo, error)
}

// TokenIssuer mints join credentials for the media transport.
type TokenIssuer interface {
	Issue(room, identity, name string) (string, error)
}

// BlobSigner produces time-limited read URLs for stored artifacts.
type BlobSigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
