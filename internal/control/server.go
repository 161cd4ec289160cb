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

// Dispatcher answers one command with one response. The core loop's
// command dispatcher implements this; the server never mutates state
// itself, only marshals requests to and from the wire.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) Response
}

// Server hosts the command socket. Each connection reads exactly one
// request, dispatches it, writes exactly one response, and closes.
type Server struct {
	dispatcher Dispatcher
	logger     *util.Logger
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a command server backed by the given dispatcher.
func NewServer(dispatcher Dispatcher, logger *util.Logger, socketPath string) (*Server, error) {
	if socketPath == "" {
		path, err := DefaultCommandSocketPath()
		if err != nil {
			return nil, err
		}
		socketPath = path
	}
	return &Server{dispatcher: dispatcher, logger: logger, socketPath: socketPath}, nil
}

// SocketPath returns the socket path this server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Serve listens until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Infof("command server listening on %s", s.socketPath)
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
			s.logger.Errorf("command accept error: %v", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
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

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on command socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod command socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove command socket: %v", err)
	}
}

// handle treats decode EOF/errors as transport failures (logged, the
// connection is simply closed with no response), per the error design's
// IPC transport failure kind.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.logger.Warnf("command decode error: %v", err)
		return
	}
	resp := s.dispatcher.Dispatch(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warnf("command encode error: %v", err)
	}
}
