// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tuto/meetd/internal/log"
)

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"secret", "password", "token", "access_key", "api_key"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// ParseString reads a string from the environment or returns defaultValue.
// The source is logged; values of sensitive keys are not.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	switch {
	case !ok:
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value")
		return defaultValue
	case value == "":
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value (environment variable is empty)")
		return defaultValue
	case sensitiveKey(key):
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
	default:
		logger.Debug().Str("key", key).Str("value", value).Str("source", "environment").Msg("using environment variable")
	}
	return value
}

// ParseInt reads an integer and falls back to defaultValue on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseTyped(key, defaultValue, "integer", strconv.Atoi)
}

// ParseFloat reads a float and falls back to defaultValue on parse errors.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseTyped(key, defaultValue, "float", func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseDuration reads a Go duration ("5s") and falls back to defaultValue on
// parse errors.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseTyped(key, defaultValue, "duration", time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	return parseTyped(key, defaultValue, "boolean", func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

func parseTyped[T any](key string, defaultValue T, kind string, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Interface("default", defaultValue).Str("source", "default").Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msgf("invalid %s in environment variable, using default", kind)
		return defaultValue
	}
	logger.Debug().Str("key", key).Interface("value", parsed).Str("source", "environment").Msg("using environment variable")
	return parsed
}

// ParseList splits a comma separated variable, dropping empty items.
func ParseList(key string, defaultValue []string) []string {
	raw := ParseString(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
