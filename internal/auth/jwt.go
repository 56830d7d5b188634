// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by Verify.
var (
	ErrMissingToken = errors.New("auth: missing token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

const clockSkew = 30 * time.Second

// Config configures token verification.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims is the token shape issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewVerifier returns a Verifier for cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

// Verify parses raw and returns the principal it names. exp and sub are
// required.
func (v *Verifier) Verify(raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return &Principal{ID: claims.Subject, Name: claims.Name}, nil
}

// Issue signs a token for userID. Used by tooling and tests; production
// tokens come from the identity provider.
func (v *Verifier) Issue(userID, name string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: name,
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
