// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package token issues LiveKit room access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/tuto/meetd/internal/domain/recording/ports"
)

// DefaultTTL is the validity of issued tokens when Config.TTL is zero.
const DefaultTTL = 6 * time.Hour

// Config holds the provider key pair used to sign tokens.
type Config struct {
	APIKey    string
	APISecret string
	TTL       time.Duration
}

// Issuer signs room-join tokens.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

var _ ports.TokenIssuer = (*Issuer)(nil)

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("token: API key and secret are required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{apiKey: cfg.APIKey, apiSecret: cfg.APISecret, ttl: ttl}, nil
}

// Issue returns a signed token letting identity join room with publish and
// subscribe rights. name is the display name; empty falls back to identity.
func (i *Issuer) Issue(room, identity, name string) (string, error) {
	if room == "" || identity == "" {
		return "", errors.New("token: room and identity are required")
	}
	if name == "" {
		name = identity
	}

	grant := &auth.VideoGrant{RoomJoin: true, Room: room}
	grant.SetCanPublish(true)
	grant.SetCanSubscribe(true)

	at := auth.NewAccessToken(i.apiKey, i.apiSecret)
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(i.ttl)

	jwt, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return jwt, nil
}
