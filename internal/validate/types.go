// SPDX-License-Identifier: MIT
package validate

import "strings"

// LogLevel is a level name accepted in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogLevels lists the accepted names.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

func (l LogLevel) String() string { return string(l) }

// ParseLogLevel accepts any case.
func ParseLogLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if !level.IsValid() {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: trace, debug, info, warn, error)",
}
