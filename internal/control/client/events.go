package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/tilewm/tilewm/internal/control"
)

// EventStream delivers a connected subscription's events until the
// connection is closed or ctx is cancelled.
type EventStream struct {
	conn       net.Conn
	events     chan control.StateEvent
	errc       chan error
	closedByUs atomic.Bool
}

// Subscribe dials the event socket, sends sub, and starts streaming
// decoded events into the returned EventStream's channel. Call Close
// when done; the stream's Events channel is closed once the connection
// ends, with any read error available from Err.
func Subscribe(ctx context.Context, socketPath string, sub control.Subscription) (*EventStream, error) {
	if socketPath == "" {
		var err error
		socketPath, err = control.DefaultEventSocketPath()
		if err != nil {
			return nil, err
		}
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial event socket: %w", err)
	}
	if err := json.NewEncoder(conn).Encode(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode subscription: %w", err)
	}

	s := &EventStream{
		conn:   conn,
		events: make(chan control.StateEvent, 64),
		errc:   make(chan error, 1),
	}
	go s.readLoop()

	go func() {
		<-ctx.Done()
		s.closedByUs.Store(true)
		conn.Close()
	}()

	return s, nil
}

func (s *EventStream) readLoop() {
	defer close(s.events)
	dec := json.NewDecoder(s.conn)
	for {
		var event control.StateEvent
		if err := dec.Decode(&event); err != nil {
			if !s.closedByUs.Load() {
				s.errc <- err
			}
			return
		}
		s.events <- event
	}
}

// Events returns the channel events are delivered on. It is closed when
// the stream ends, whether by Close, context cancellation, or the
// daemon disconnecting.
func (s *EventStream) Events() <-chan control.StateEvent { return s.events }

// Err returns the error that ended the stream, if any. It must only be
// read after Events has been drained and closed; it returns nil for a
// clean shutdown caused by Close or context cancellation.
func (s *EventStream) Err() error {
	select {
	case err := <-s.errc:
		return err
	default:
		return nil
	}
}

// Close ends the subscription.
func (s *EventStream) Close() error {
	s.closedByUs.Store(true)
	return s.conn.Close()
}
