// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

// Set configures the command to start in a new process group.
func Set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Kill sends sig to the process group of cmd. A group that is already gone
// is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return ErrNotStarted
	}

	pid := cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return record(sig, err)
	}
	if pgid != pid {
		// not a group leader (Set was not applied); never signal our own group
		return record(sig, cmd.Process.Signal(sig))
	}

	if err := syscall.Kill(-pgid, sig); err != nil {
		if errors.Is(err, syscall.EPERM) {
			return record(sig, cmd.Process.Signal(sig))
		}
		return record(sig, err)
	}
	return record(sig, nil)
}
