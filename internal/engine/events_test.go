package engine

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/util"
)

// subscribeToCore starts an event server backed by core's hub and returns
// the raw connection, already subscribed and registered with the hub.
func subscribeToCore(t *testing.T, core *Core, filter control.Filter) net.Conn {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "events.sock")

	srv, err := control.NewEventServer(core.Hub(), nil, util.NewLogger(util.LevelError), socketPath)
	if err != nil {
		t.Fatalf("NewEventServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Serve(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			if err := json.NewEncoder(conn).Encode(control.Subscription{Filter: filter}); err != nil {
				t.Fatalf("encode subscription: %v", err)
			}
			waitForSubscriber(t, core.Hub())
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("event socket never came up")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForSubscriber(t *testing.T, hub *control.Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.SubscriberCount() == 0 {
		t.Fatalf("subscriber never registered")
	}
}

// drainEvents reads every event the daemon publishes within a short
// window, rather than a fixed count, since a mutation's exact event
// count can depend on incidental state (e.g. whether a window already
// happened to sit on the affected display).
func drainEvents(t *testing.T, conn net.Conn, window time.Duration) []control.StateEvent {
	t.Helper()
	dec := json.NewDecoder(conn)
	var out []control.StateEvent
	for {
		conn.SetReadDeadline(time.Now().Add(window))
		var ev control.StateEvent
		if err := dec.Decode(&ev); err != nil {
			return out
		}
		out = append(out, ev)
	}
}

func hasEventType(events []control.StateEvent, eventType string) (control.StateEvent, bool) {
	for _, ev := range events {
		if ev.Type == eventType {
			return ev, true
		}
	}
	return control.StateEvent{}, false
}

func TestBootstrapPublishesWindowCreatedAndDisplayAdded(t *testing.T) {
	core, fake, _ := newTestCore(t)
	conn := subscribeToCore(t, core, control.Filter{})

	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	events := drainEvents(t, conn, 300*time.Millisecond)

	created, ok := hasEventType(events, control.EventWindowCreated)
	if !ok {
		t.Fatalf("expected a %s event, got %+v", control.EventWindowCreated, events)
	}
	if created.Window == nil || created.Window.ID != 10 {
		t.Fatalf("window-created event has wrong payload: %+v", created.Window)
	}

	added, ok := hasEventType(events, control.EventDisplayAdded)
	if !ok {
		t.Fatalf("expected a %s event, got %+v", control.EventDisplayAdded, events)
	}
	if added.Display == nil || added.Display.ID != 1 {
		t.Fatalf("display-added event has wrong payload: %+v", added.Display)
	}
}

func TestDispatchWindowMoveToTagPublishesTagsChanged(t *testing.T) {
	core, fake, _ := newTestCore(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	conn := subscribeToCore(t, core, control.Filter{})

	core.state.FocusedWindow = 10
	resp := core.Dispatch(context.Background(), control.Request{Type: control.CmdWindowMoveToTag, Tag: 2})
	if resp.Type == control.RespError {
		t.Fatalf("window-move-to-tag errored: %s", resp.Error)
	}

	events := drainEvents(t, conn, 300*time.Millisecond)
	changed, ok := hasEventType(events, control.EventTagsChanged)
	if !ok {
		t.Fatalf("expected a %s event, got %+v", control.EventTagsChanged, events)
	}
	if changed.WindowID != 10 {
		t.Fatalf("tags-changed event has wrong window id: %+v", changed)
	}
	if changed.PreviousTags != 1 || changed.NewTags != 2 {
		t.Fatalf("tags-changed event has wrong tag transition: %+v", changed)
	}
}

func TestDispatchWindowClosePublishesWindowDestroyed(t *testing.T) {
	core, fake, _ := newTestCore(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	conn := subscribeToCore(t, core, control.Filter{})

	core.state.FocusedWindow = 10
	resp := core.Dispatch(context.Background(), control.Request{Type: control.CmdWindowClose})
	if resp.Type == control.RespError {
		t.Fatalf("window-close errored: %s", resp.Error)
	}

	events := drainEvents(t, conn, 300*time.Millisecond)
	destroyed, ok := hasEventType(events, control.EventWindowDestroyed)
	if !ok {
		t.Fatalf("expected a %s event, got %+v", control.EventWindowDestroyed, events)
	}
	if destroyed.WindowID != 10 {
		t.Fatalf("window-destroyed event has wrong window id: %+v", destroyed)
	}
}

func TestPollFocusLockedPublishesWindowFocused(t *testing.T) {
	core, fake, _ := newTestCore(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	conn := subscribeToCore(t, core, control.Filter{})

	fake.SetFocusedWindow(100, 10, true)
	core.mu.Lock()
	core.pollFocusLocked(context.Background())
	core.mu.Unlock()

	events := drainEvents(t, conn, 300*time.Millisecond)
	focused, ok := hasEventType(events, control.EventWindowFocused)
	if !ok {
		t.Fatalf("expected a %s event, got %+v", control.EventWindowFocused, events)
	}
	if focused.WindowID != 10 {
		t.Fatalf("window-focused event has wrong window id: %+v", focused)
	}
}

func TestEventFilterExcludesTagsWhenDisplayOnlyRequested(t *testing.T) {
	core, fake, _ := newTestCore(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	conn := subscribeToCore(t, core, control.Filter{Display: true})

	core.state.FocusedWindow = 10
	resp := core.Dispatch(context.Background(), control.Request{Type: control.CmdWindowMoveToTag, Tag: 2})
	if resp.Type == control.RespError {
		t.Fatalf("window-move-to-tag errored: %s", resp.Error)
	}

	events := drainEvents(t, conn, 300*time.Millisecond)
	if _, ok := hasEventType(events, control.EventTagsChanged); ok {
		t.Fatalf("tags-changed event should have been excluded by a display-only filter, got %+v", events)
	}
}
