// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package companion

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"syscall"
)

type fakeProcess struct {
	pid        int
	ignoreTerm bool

	mu      sync.Mutex
	signals []syscall.Signal
	exit    chan int
	once    sync.Once
}

func newFakeProcess(pid int, ignoreTerm bool) *fakeProcess {
	return &fakeProcess{pid: pid, ignoreTerm: ignoreTerm, exit: make(chan int, 1)}
}

func (p *fakeProcess) PID() int { return p.pid }

func (p *fakeProcess) Signal(sig syscall.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	if sig == syscall.SIGKILL || (sig == syscall.SIGTERM && !p.ignoreTerm) {
		p.exitWith(-1)
	}
	return nil
}

func (p *fakeProcess) Wait() (int, error) {
	code := <-p.exit
	if code != 0 {
		return code, fmt.Errorf("exit status %d", code)
	}
	return 0, nil
}

func (p *fakeProcess) exitWith(code int) {
	p.once.Do(func() { p.exit <- code })
}

func (p *fakeProcess) Signals() []syscall.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]syscall.Signal(nil), p.signals...)
}

type fakeLauncher struct {
	mu         sync.Mutex
	specs      []LaunchSpec
	procs      []*fakeProcess
	err        error
	ignoreTerm bool
	greeting   string

	// entered receives once per Launch call; gate, if set, blocks Launch
	// until closed.
	entered chan struct{}
	gate    chan struct{}
}

func (l *fakeLauncher) Launch(_ context.Context, spec LaunchSpec) (Process, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specs = append(l.specs, spec)
	if l.err != nil {
		return nil, l.err
	}
	if l.greeting != "" {
		_, _ = spec.Stdout.Write([]byte(l.greeting))
	}
	p := newFakeProcess(1000+len(l.procs), l.ignoreTerm)
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) Procs() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeProcess(nil), l.procs...)
}

func (l *fakeLauncher) Specs() []LaunchSpec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LaunchSpec(nil), l.specs...)
}

type issueCall struct {
	room, identity, name string
}

type fakeTokens struct {
	mu    sync.Mutex
	calls []issueCall
	err   error
}

func (f *fakeTokens) Issue(room, identity, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, issueCall{room, identity, name})
	if f.err != nil {
		return "", f.err
	}
	return "tok-" + room, nil
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
