package layoutengine

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"
)

// roundTripDeadline bounds a single request/reply exchange with an
// engine subprocess. Expiry kills and respawns the engine and reports a
// one-shot error; there is no retry loop (§5).
const roundTripDeadline = 500 * time.Millisecond

// client owns one layout-engine subprocess: it serialises requests
// (only one in flight at a time, matching the core's single-threaded
// call pattern) and frames replies by newline.
type client struct {
	name string
	proc Process

	mu sync.Mutex

	lines   chan []byte
	readErr chan error
	dead    bool
}

func newClient(name string, proc Process) *client {
	c := &client{
		name:    name,
		proc:    proc,
		lines:   make(chan []byte, 1),
		readErr: make(chan error, 1),
	}
	go c.readLoop()
	return c
}

func (c *client) readLoop() {
	scanner := bufio.NewScanner(c.proc.Stdout())
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		c.lines <- line
	}
	if err := scanner.Err(); err != nil {
		c.readErr <- err
		return
	}
	c.readErr <- fmt.Errorf("layoutengine %s: stdout closed", c.name)
}

// roundTrip writes one framed request and waits for one reply line,
// bounded by roundTripDeadline. On timeout or a read error the engine is
// killed so the manager respawns it on next use.
func (c *client) roundTrip(ctx context.Context, payload []byte) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return Response{}, fmt.Errorf("layoutengine %s: dead", c.name)
	}

	payload = append(payload, '\n')
	if _, err := c.proc.Stdin().Write(payload); err != nil {
		c.markDead()
		return Response{}, fmt.Errorf("layoutengine %s: write: %w", c.name, err)
	}

	deadline := time.NewTimer(roundTripDeadline)
	defer deadline.Stop()

	select {
	case line := <-c.lines:
		resp, err := decodeResponse(line)
		if err != nil {
			return Response{}, fmt.Errorf("layoutengine %s: %w", c.name, err)
		}
		return resp, nil
	case err := <-c.readErr:
		c.markDead()
		return Response{}, fmt.Errorf("layoutengine %s: %w", c.name, err)
	case <-deadline.C:
		c.markDead()
		return Response{}, fmt.Errorf("layoutengine %s: round-trip timed out after %s", c.name, roundTripDeadline)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// markDead kills the subprocess and marks the client unusable. Must be
// called with mu held.
func (c *client) markDead() {
	if c.dead {
		return
	}
	c.dead = true
	_ = c.proc.Kill()
}

func (c *client) isDead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markDead()
}
