package engine

import (
	"context"
	"testing"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/metrics"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/util"
)

func newTestCoreWithFakeTap(t *testing.T) (*Core, *platform.Fake, *hotkey.Fake) {
	t.Helper()
	fake := platform.NewFake()
	tap := hotkey.NewFake()
	layouts := layoutengine.NewManager(&rowLauncher{}, stubExecPath(t))
	core := New(fake, fake, layouts, hotkey.NewTable(), tap, control.NewHub(), metrics.NewCollector(true), util.NewLogger(util.LevelError))
	return core, fake, tap
}

func TestTickSyncsNewWindowsAndRetiles(t *testing.T) {
	core, fake, _ := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	bootstrap(t, core)

	seedWindow(fake, 10, 100)
	core.tick(context.Background())

	core.mu.Lock()
	w, ok := core.state.Windows[10]
	core.mu.Unlock()
	if !ok {
		t.Fatalf("expected tick to pick up the newly appeared window")
	}
	if w.Frame.Width == 100 {
		t.Fatalf("expected the new window to have been retiled away from its raw bounds")
	}
}

func TestTickReconcilesDisplayChanges(t *testing.T) {
	core, fake, _ := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	fake.RemoveDisplay(1)
	core.tick(context.Background())

	core.mu.Lock()
	_, stillThere := core.state.Displays[1]
	core.mu.Unlock()
	if stillThere {
		t.Fatalf("expected tick to notice the display was disconnected")
	}
}

func TestHandleHotkeyEventDispatchesParsedCommand(t *testing.T) {
	core, fake, tap := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)
	bootstrap(t, core)

	chord, err := hotkey.ParseChord("cmd+1")
	if err != nil {
		t.Fatalf("ParseChord: %v", err)
	}
	core.mu.Lock()
	core.hotkeys.Bind(chord, "tag-view 2")
	core.mu.Unlock()
	if err := tap.Rebuild(context.Background(), core.hotkeys.Bindings()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	core.handleHotkeyEvent(context.Background(), hotkey.Event{Command: "tag-view 2"})

	core.mu.Lock()
	hidden := core.state.Windows[10].Hidden()
	core.mu.Unlock()
	if !hidden {
		t.Fatalf("expected the bound tag-view 2 command to hide the tag-1 window")
	}
}

func TestHandleHotkeyEventIgnoresMalformedCommand(t *testing.T) {
	core, fake, _ := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	bootstrap(t, core)

	// parseHotkeyCommand should reject this without panicking; there's
	// nothing to assert beyond "it didn't crash the loop".
	core.handleHotkeyEvent(context.Background(), hotkey.Event{Command: "tag-view not-a-number"})
}

func TestRunStopsOnQuit(t *testing.T) {
	core, fake, _ := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)

	done := make(chan error, 1)
	go func() { done <- core.Run(context.Background()) }()

	core.Dispatch(context.Background(), control.Request{Type: control.CmdQuit})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after a quit command")
	}
}

func TestRunAppliesTriggeredHotkey(t *testing.T) {
	core, fake, tap := newTestCoreWithFakeTap(t)
	seedDisplay(fake, 1, true)
	seedWindow(fake, 10, 100)

	core.mu.Lock()
	chord, err := hotkey.ParseChord("cmd+2")
	if err != nil {
		core.mu.Unlock()
		t.Fatalf("ParseChord: %v", err)
	}
	core.hotkeys.Bind(chord, "tag-view 2")
	core.mu.Unlock()
	if err := tap.Rebuild(context.Background(), core.hotkeys.Bindings()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- core.Run(ctx) }()

	if !tap.Trigger(chord) {
		t.Fatalf("expected the bound chord to trigger")
	}

	deadline := time.After(2 * time.Second)
	for {
		core.mu.Lock()
		w, ok := core.state.Windows[10]
		hidden := ok && w.Hidden()
		core.mu.Unlock()
		if hidden {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("hotkey-triggered command never took effect")
		case <-time.After(10 * time.Millisecond):
		}
	}

	core.requestQuit()
	<-done
}
