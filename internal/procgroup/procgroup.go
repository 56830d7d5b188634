// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts children in their own process group and signals
// the whole group, so helpers a worker forks are not orphaned.
package procgroup

import (
	"errors"
	"syscall"

	"github.com/tuto/meetd/internal/metrics"
)

// ErrNotStarted is returned when signalling a command that never started.
var ErrNotStarted = errors.New("procgroup: process not started")

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGKILL:
		return "SIGKILL"
	default:
		return sig.String()
	}
}

func record(sig syscall.Signal, err error) error {
	switch {
	case err == nil:
		metrics.IncProcSignal(signalName(sig), "sent")
	case errors.Is(err, syscall.ESRCH):
		metrics.IncProcSignal(signalName(sig), "esrch")
		return nil
	default:
		metrics.IncProcSignal(signalName(sig), "error")
	}
	return err
}
