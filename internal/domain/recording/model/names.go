// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxNameLen  = 256
	maxJobIDLen = 128
)

// NormalizeName trims surrounding whitespace and applies Unicode NFC so
// visually identical room names map to the same storage key.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ValidateName checks a room or actor name after normalization. Names become
// blob path segments, so separators and traversal are rejected.
func ValidateName(field, name string) error {
	switch {
	case name == "":
		return &ValidationError{Field: field, Message: "must not be empty"}
	case len(name) > maxNameLen:
		return &ValidationError{Field: field, Message: "too long"}
	case strings.ContainsAny(name, "/\\"):
		return &ValidationError{Field: field, Message: "must not contain path separators"}
	case name == "." || name == "..":
		return &ValidationError{Field: field, Message: "reserved name"}
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return &ValidationError{Field: field, Message: "must not contain control characters"}
		}
	}
	return nil
}

// ValidateJobID checks the shape of a provider job id.
func ValidateJobID(id string) error {
	if id == "" {
		return &ValidationError{Field: "jobId", Message: "must not be empty"}
	}
	if len(id) > maxJobIDLen {
		return &ValidationError{Field: "jobId", Message: "too long"}
	}
	for _, r := range id {
		if !(r == '_' || r == '-' || r == '.' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return &ValidationError{Field: "jobId", Message: "contains invalid characters"}
		}
	}
	return nil
}
