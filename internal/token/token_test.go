// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw, secret string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	return claims
}

func TestIssue_GrantsRoomJoin(t *testing.T) {
	iss, err := NewIssuer(Config{APIKey: "APIkey", APISecret: "supersecretsupersecretsupersecret", TTL: time.Hour})
	require.NoError(t, err)

	raw, err := iss.Issue("standup", "AI-Assistant", "")
	require.NoError(t, err)

	claims := parse(t, raw, "supersecretsupersecretsupersecret")
	assert.Equal(t, "APIkey", claims["iss"])
	assert.Equal(t, "AI-Assistant", claims["sub"])
	assert.Equal(t, "AI-Assistant", claims["name"])

	video, ok := claims["video"].(map[string]any)
	require.True(t, ok, "video grant present")
	assert.Equal(t, "standup", video["room"])
	assert.Equal(t, true, video["roomJoin"])
	assert.Equal(t, true, video["canPublish"])
	assert.Equal(t, true, video["canSubscribe"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}

func TestIssue_RejectsWrongSecret(t *testing.T) {
	iss, err := NewIssuer(Config{APIKey: "k", APISecret: "right-secret-right-secret-right"})
	require.NoError(t, err)
	raw, err := iss.Issue("r", "bob", "Bob")
	require.NoError(t, err)

	_, err = jwt.Parse(raw, func(*jwt.Token) (any, error) { return []byte("wrong"), nil })
	assert.Error(t, err)
}

func TestNewIssuer_Validation(t *testing.T) {
	_, err := NewIssuer(Config{APIKey: "k"})
	assert.Error(t, err)

	iss, err := NewIssuer(Config{APIKey: "k", APISecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.ttl)

	_, err = iss.Issue("", "bob", "")
	assert.Error(t, err)
}
