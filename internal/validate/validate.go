// SPDX-License-Identifier: MIT

// Package validate accumulates configuration validation errors so a bad
// config reports every problem at once.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Error is a single failed check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects Errors.
type Validator struct {
	errors []Error
}

// ValidationError bundles the errors of one Validator.
type ValidationError struct {
	errors []Error
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid reports whether no check has failed.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns the failed checks in order.
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err returns nil or a ValidationError holding a copy of the failed checks.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Required fails when value is empty or whitespace. The value is never echoed
// back, so it is safe for secrets.
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required", nil)
	}
}

// URL checks that value parses, has a host, and uses one of schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(schemes) > 0 && !slices.Contains(schemes, u.Scheme) {
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, schemes), value)
	}
}

// ListenAddr checks a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		v.AddError(field, fmt.Sprintf("invalid port %q", port), addr)
	}
}

// Range checks minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// PositiveDuration checks d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// NonNegative checks value >= 0.
func (v *Validator) NonNegative(field string, value float64) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %g", value), value)
	}
}

// OneOf checks that value is in allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// ParentDirectory checks that the directory holding path exists or can be
// created.
func (v *Validator) ParentDirectory(field, path string) {
	if path == "" {
		v.AddError(field, "path cannot be empty", path)
		return
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case !info.IsDir():
		v.AddError(field, "parent is not a directory", path)
	}
}
