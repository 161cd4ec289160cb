package control

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestEventServerDeliversSnapshotThenEvents(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")

	hub := NewHub()
	snapshot := func() StateView {
		return StateView{DefaultLayout: "tatami"}
	}
	srv, err := NewEventServer(hub, snapshot, newTestLogger(), socketPath)
	if err != nil {
		t.Fatalf("NewEventServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	waitForSocket(t, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Subscription{Snapshot: true}); err != nil {
		t.Fatalf("encode subscription: %v", err)
	}

	dec := json.NewDecoder(conn)
	var first StateEvent
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("decode snapshot event: %v", err)
	}
	if first.Type != EventSnapshot {
		t.Fatalf("first event type = %s, want %s", first.Type, EventSnapshot)
	}
	if first.Snapshot == nil || first.Snapshot.DefaultLayout != "tatami" {
		t.Fatalf("unexpected snapshot payload: %+v", first.Snapshot)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(StateEvent{Type: EventWindowCreated})

	var second StateEvent
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("decode window event: %v", err)
	}
	if second.Type != EventWindowCreated {
		t.Fatalf("second event type = %s, want %s", second.Type, EventWindowCreated)
	}
}

func TestEventServerFilterExcludesNonMatchingEvents(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")

	hub := NewHub()
	srv, err := NewEventServer(hub, nil, newTestLogger(), socketPath)
	if err != nil {
		t.Fatalf("NewEventServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	waitForSocket(t, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(Subscription{Filter: Filter{Display: true}}); err != nil {
		t.Fatalf("encode subscription: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(StateEvent{Type: EventWindowCreated})
	hub.Publish(StateEvent{Type: EventDisplayAdded})

	dec := json.NewDecoder(conn)
	var event StateEvent
	if err := dec.Decode(&event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != EventDisplayAdded {
		t.Fatalf("got %s, want only the display event to be delivered", event.Type)
	}
}

func TestEventServerDisconnectUnsubscribes(t *testing.T) {
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")

	hub := NewHub()
	srv, err := NewEventServer(hub, nil, newTestLogger(), socketPath)
	if err != nil {
		t.Fatalf("NewEventServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Serve(ctx)
	waitForSocket(t, socketPath)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := json.NewEncoder(conn).Encode(Subscription{}); err != nil {
		t.Fatalf("encode subscription: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d after disconnect, want 0", hub.SubscriberCount())
	}
}
