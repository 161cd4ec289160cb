package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/tilewm/tilewm/internal/util"
)

// SnapshotFunc returns the current state snapshot, used to answer a
// subscription that asked for one. Calling it must not mutate state;
// the core loop supplies an implementation that reads under its own
// single-threaded invariant.
type SnapshotFunc func() StateView

// EventServer hosts the event-stream socket.
type EventServer struct {
	hub        *Hub
	snapshot   SnapshotFunc
	logger     *util.Logger
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewEventServer creates an event server backed by hub.
func NewEventServer(hub *Hub, snapshot SnapshotFunc, logger *util.Logger, socketPath string) (*EventServer, error) {
	if socketPath == "" {
		path, err := DefaultEventSocketPath()
		if err != nil {
			return nil, err
		}
		socketPath = path
	}
	return &EventServer{hub: hub, snapshot: snapshot, logger: logger, socketPath: socketPath}, nil
}

// SocketPath returns the socket path this server listens on.
func (s *EventServer) SocketPath() string { return s.socketPath }

// Serve listens until ctx is cancelled.
func (s *EventServer) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("event server listening on %s", s.socketPath)
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("event accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *EventServer) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *EventServer) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on event socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod event socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *EventServer) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove event socket: %v", err)
	}
}

// handle reads the subscription envelope, optionally sends a snapshot,
// then relays events until the client disconnects (EOF) or ctx is
// cancelled. EOF is treated as cancellation: the server stops sending
// and tears the subscription down, never erroring.
func (s *EventServer) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var sub Subscription
	if err := json.NewDecoder(conn).Decode(&sub); err != nil {
		s.logger.Warnf("event subscription decode error: %v", err)
		return
	}

	id, events := s.hub.subscribe(sub.Filter)
	defer s.hub.unsubscribe(id)

	enc := json.NewEncoder(conn)
	if sub.Snapshot && s.snapshot != nil {
		view := s.snapshot()
		if err := enc.Encode(StateEvent{Type: EventSnapshot, Snapshot: &view}); err != nil {
			return
		}
	}

	// A dropped connection is only detected by the write failing (or,
	// faster, by this goroutine watching the read side for EOF).
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := enc.Encode(event); err != nil {
				return
			}
		}
	}
}
