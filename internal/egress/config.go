// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package egress adapts the LiveKit egress API to the recording orchestrator.
package egress

import (
	"errors"
	"time"
)

// Output modes.
const (
	ModeParticipant   = "participant"
	ModeRoomComposite = "room_composite"
)

// Fixed output parameters shared by every recording.
const (
	SegmentDuration = 2
	compositeLayout = "single-speaker"
)

// Upload is the S3-compatible destination the provider writes segments to.
type Upload struct {
	AccessKey      string
	Secret         string
	Bucket         string
	Endpoint       string
	Region         string
	ForcePathStyle bool
}

// Config configures LiveKitClient.
type Config struct {
	URL       string
	APIKey    string
	APISecret string

	Mode   string
	Upload Upload

	// RequestTimeout bounds each provider call; zero keeps the caller's deadline.
	RequestTimeout time.Duration
	// RequestsPerSecond and Burst bound provider QPS; zero disables the limiter.
	RequestsPerSecond float64
	Burst             int

	// The breaker opens after BreakerThreshold consecutive provider faults
	// and probes again after BreakerCooldown. Zero values use defaults.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c Config) validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("egress: provider URL is required"))
	}
	if c.APIKey == "" || c.APISecret == "" {
		errs = append(errs, errors.New("egress: provider API key and secret are required"))
	}
	if c.Upload.Bucket == "" {
		errs = append(errs, errors.New("egress: upload bucket is required"))
	}
	switch c.Mode {
	case "", ModeParticipant, ModeRoomComposite:
	default:
		errs = append(errs, errors.New("egress: unknown mode "+c.Mode))
	}
	return errors.Join(errs...)
}

// filenamePrefix is where the provider writes segments: {room}/{actor}/{room}.
func filenamePrefix(room, actor string) string {
	return room + "/" + actor + "/" + room
}

func playlistName(room string) string     { return room + ".m3u8" }
func livePlaylistName(room string) string { return room + "-live.m3u8" }
