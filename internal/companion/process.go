// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package companion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/tuto/meetd/internal/procgroup"
)

// Process is a running worker.
type Process interface {
	PID() int
	Signal(sig syscall.Signal) error
	// Wait blocks until the process exits. The exit code is -1 when the
	// process was terminated by a signal.
	Wait() (exitCode int, err error)
}

// LaunchSpec describes one worker launch.
type LaunchSpec struct {
	Room   string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts worker processes.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (Process, error)
}

// ExecLauncher runs Command with Args in Dir, each worker in its own process
// group.
type ExecLauncher struct {
	Command string
	Args    []string
	Dir     string
}

// Launch starts the worker. ctx only guards the start itself; the worker
// outlives the request that spawned it.
func (l *ExecLauncher) Launch(ctx context.Context, spec LaunchSpec) (Process, error) {
	if l.Command == "" {
		return nil, errors.New("companion: no worker command configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(l.Command, l.Args...) //nolint:gosec // operator-configured command
	cmd.Dir = l.Dir
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	procgroup.Set(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("companion: start %s: %w", l.Command, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Signal(sig syscall.Signal) error {
	return procgroup.Kill(p.cmd, sig)
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.cmd.ProcessState == nil {
		return -1, err
	}
	return p.cmd.ProcessState.ExitCode(), err
}
