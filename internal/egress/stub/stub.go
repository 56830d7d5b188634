// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stub is a deterministic in-memory egress provider for tests and
// local runs without a media server.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
)

type job struct {
	room    string
	actor   string
	status  string
	result  *model.Result
	stopped bool
}

// Calls counts adapter invocations.
type Calls struct {
	Start  int
	Stop   int
	Status int
}

// Client implements ports.EgressClient in memory. New jobs are active; a
// stop moves them to ending and the next GetStatus reports the configured
// final status. With SyncStop the final data is returned by StopEgress.
type Client struct {
	mu sync.Mutex

	seq     int
	ids     []string
	jobs    map[string]*job
	calls   Calls
	syncOn  bool
	final   string
	finalFn func(room, actor string) *model.Result

	startErr  error
	stopErr   error
	statusErr error
}

var _ ports.EgressClient = (*Client)(nil)

// New returns a Client whose stopped jobs finish as "complete" with a
// segments result named after the room.
func New() *Client {
	return &Client{
		jobs:  make(map[string]*job),
		final: model.ProviderComplete,
		finalFn: func(room, actor string) *model.Result {
			return model.NewSegmentsResult(model.SegmentsResult{
				PlaylistName:     room + ".m3u8",
				LivePlaylistName: room + "-live.m3u8",
			})
		},
	}
}

// QueueIDs makes the next starts return ids in order.
func (c *Client) QueueIDs(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
}

// SyncStop makes StopEgress return final data synchronously.
func (c *Client) SyncStop(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncOn = on
}

// SetFinal sets the provider status and result reported once a job ends.
func (c *Client) SetFinal(status string, result *model.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.final = status
	c.finalFn = func(string, string) *model.Result { return result.Clone() }
}

// FailStart makes subsequent starts fail with err (nil clears).
func (c *Client) FailStart(err error) { c.setErr(&c.startErr, err) }

// FailStop makes subsequent stops fail with err (nil clears).
func (c *Client) FailStop(err error) { c.setErr(&c.stopErr, err) }

// FailStatus makes subsequent status reads fail with err (nil clears).
func (c *Client) FailStatus(err error) { c.setErr(&c.statusErr, err) }

func (c *Client) setErr(dst *error, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*dst = err
}

// Calls returns a snapshot of the invocation counters.
func (c *Client) Calls() Calls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Status returns the provider status of jobID, or "" if unknown.
func (c *Client) Status(jobID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j, ok := c.jobs[jobID]; ok {
		return j.status
	}
	return ""
}

func (c *Client) StartParticipantEgress(ctx context.Context, room, actor string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.Start++
	if c.startErr != nil {
		return "", &model.ExternalServiceError{Op: "start egress", Err: c.startErr}
	}

	var id string
	if len(c.ids) > 0 {
		id, c.ids = c.ids[0], c.ids[1:]
	} else {
		c.seq++
		id = fmt.Sprintf("EG_stub%04d", c.seq)
	}
	c.jobs[id] = &job{room: room, actor: actor, status: model.ProviderActive}
	return id, nil
}

func (c *Client) StopEgress(ctx context.Context, jobID string) (*ports.ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.Stop++
	if c.stopErr != nil {
		return nil, c.stopErr
	}

	j, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrJobNotFound, jobID)
	}
	if j.stopped {
		return nil, fmt.Errorf("%w: %s", ports.ErrJobNotStoppable, jobID)
	}
	j.stopped = true
	j.status = c.final
	j.result = c.finalFn(j.room, j.actor)

	if c.syncOn {
		return &ports.ProviderInfo{JobID: jobID, Status: j.status, Result: j.result.Clone()}, nil
	}
	return nil, nil
}

func (c *Client) GetStatus(ctx context.Context, jobID string) (*ports.ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls.Status++
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	j, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrJobNotFound, jobID)
	}
	return &ports.ProviderInfo{JobID: jobID, Status: j.status, Result: j.result.Clone()}, nil
}
