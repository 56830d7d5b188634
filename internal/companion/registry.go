// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package companion

import (
	"sync"
	"syscall"
	"time"
)

// Handle tracks one worker. It is registered before the process exists so a
// room is claimed for the whole launch.
type Handle struct {
	Room      string
	StartedAt time.Time

	mu            sync.Mutex
	proc          Process
	stopRequested bool
	done          chan struct{}
}

func newHandle(room string, startedAt time.Time) *Handle {
	return &Handle{Room: room, StartedAt: startedAt, done: make(chan struct{})}
}

// PID returns the worker pid, or 0 while it is still launching.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.proc == nil {
		return 0
	}
	return h.proc.PID()
}

// Done is closed once the worker has exited or failed to launch.
func (h *Handle) Done() <-chan struct{} { return h.done }

// attach binds the launched process. It reports whether a stop arrived while
// the launch was in flight.
func (h *Handle) attach(p Process) (stopRequested bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.proc = p
	return h.stopRequested
}

// signal delivers sig, or records the request if the process is not up yet.
func (h *Handle) signal(sig syscall.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopRequested = true
	if h.proc == nil {
		return nil
	}
	return h.proc.Signal(sig)
}

// Registry maps rooms to worker handles. Implementations must be safe for
// concurrent use and apply each operation atomically.
type Registry interface {
	// Reserve stores h unless the room already has a handle.
	Reserve(h *Handle) bool
	Get(room string) (*Handle, bool)
	Remove(room string) (*Handle, bool)
	// RemoveIf removes the room's handle only if it is h.
	RemoveIf(room string, h *Handle) bool
	// Drain removes and returns every handle.
	Drain() []*Handle
	Len() int
}

// MemoryRegistry is the in-process Registry.
type MemoryRegistry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{handles: make(map[string]*Handle)}
}

func (r *MemoryRegistry) Reserve(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[h.Room]; ok {
		return false
	}
	r.handles[h.Room] = h
	return true
}

func (r *MemoryRegistry) Get(room string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[room]
	return h, ok
}

func (r *MemoryRegistry) Remove(room string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[room]
	if ok {
		delete(r.handles, room)
	}
	return h, ok
}

func (r *MemoryRegistry) RemoveIf(room string, h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[room]; ok && cur == h {
		delete(r.handles, room)
		return true
	}
	return false
}

func (r *MemoryRegistry) Drain() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Handle, 0, len(r.handles))
	for room, h := range r.handles {
		out = append(out, h)
		delete(r.handles, room)
	}
	return out
}

func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
