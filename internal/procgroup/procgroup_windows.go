// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

// Set is a no-op on Windows.
func Set(cmd *exec.Cmd) {}

// Kill terminates the process. Windows has no graceful signal for console-less
// children, so every signal ends the process.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return ErrNotStarted
	}
	return record(sig, cmd.Process.Kill())
}
