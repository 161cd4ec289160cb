package client

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/tilewm/tilewm/internal/control"
)

func TestSubscribeReceivesEvents(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		var sub control.Subscription
		if err := json.NewDecoder(conn).Decode(&sub); err != nil {
			return
		}
		enc := json.NewEncoder(conn)
		_ = enc.Encode(control.StateEvent{Type: control.EventWindowCreated})
		_ = enc.Encode(control.StateEvent{Type: control.EventLayoutChanged})
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := Subscribe(ctx, socketPath, control.Subscription{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stream.Close()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				t.Fatal("events channel closed early")
			}
			got = append(got, event.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	if len(got) != 2 || got[0] != control.EventWindowCreated || got[1] != control.EventLayoutChanged {
		t.Fatalf("got %v", got)
	}
}

func TestSubscribeClosedCleanlyHasNoError(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	ctx := context.Background()
	stream, err := Subscribe(ctx, socketPath, control.Subscription{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted connection")
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case _, ok := <-stream.Events():
		if ok {
			t.Fatal("expected events channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events channel to close")
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("Err() = %v, want nil after clean Close", err)
	}
}
