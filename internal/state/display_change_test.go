package state

import (
	"testing"

	"github.com/tilewm/tilewm/internal/platform"
)

func newTwoDisplayState() *State {
	s := New()
	s.Displays[1] = &Display{
		ID: 1, Name: "main",
		FullBounds:   Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		UsableBounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1040},
		VisibleTags:  DefaultTags,
	}
	s.Displays[2] = &Display{
		ID: 2, Name: "secondary",
		FullBounds:   Rect{X: 1920, Y: 0, Width: 1920, Height: 1080},
		UsableBounds: Rect{X: 1920, Y: 0, Width: 1920, Height: 1040},
		VisibleTags:  Tag(2),
	}
	s.FocusedDisplay = 1
	return s
}

func displayInfo(id platform.DisplayID, name string, isMain bool, x int) platform.DisplayInfo {
	return platform.DisplayInfo{
		ID: id, Name: name, IsMain: isMain,
		FullBounds:   platform.Bounds{X: x, Y: 0, Width: 1920, Height: 1080},
		UsableBounds: platform.Bounds{X: x, Y: 0, Width: 1920, Height: 1040},
	}
}

// Disconnecting a display orphans its windows onto the fallback display,
// remembering where they came from so a reconnect can restore them.
func TestHandleDisplayChangeOrphansWindowsOnDisconnect(t *testing.T) {
	s := newTwoDisplayState()
	w := &Window{ID: 10, Display: 2, Tags: Tag(2), Frame: Rect{Width: 100, Height: 100}}
	s.Windows[10] = w
	s.AddToWindowOrder(10)

	result := s.HandleDisplayChange([]platform.DisplayInfo{displayInfo(1, "main", true, 0)})

	if len(result.Disconnected) != 1 || result.Disconnected[0] != 2 {
		t.Fatalf("expected display 2 to be reported disconnected, got %+v", result.Disconnected)
	}
	if w.Display != 1 {
		t.Fatalf("orphaned window should move to the fallback display, got %d", w.Display)
	}
	if w.OrphanedFrom == nil || *w.OrphanedFrom != 2 {
		t.Fatalf("window should remember it was orphaned from display 2")
	}
	if _, stillPresent := s.Displays[2]; stillPresent {
		t.Fatalf("disconnected display should be removed from state")
	}
	if _, saved := s.SavedDisplayTags[2]; !saved {
		t.Fatalf("disconnected display's visible tags should be saved for a future reconnect")
	}
}

// Reconnecting the same display id restores orphaned windows to it and
// restores its saved visible tags.
func TestHandleDisplayChangeRestoresOrphansOnReconnect(t *testing.T) {
	s := newTwoDisplayState()
	w := &Window{ID: 10, Display: 2, Tags: Tag(2), Frame: Rect{Width: 100, Height: 100}}
	s.Windows[10] = w
	s.AddToWindowOrder(10)

	s.HandleDisplayChange([]platform.DisplayInfo{displayInfo(1, "main", true, 0)})
	if w.Display != 1 {
		t.Fatalf("precondition: window should have been orphaned onto display 1")
	}

	result := s.HandleDisplayChange([]platform.DisplayInfo{
		displayInfo(1, "main", true, 0),
		displayInfo(2, "secondary", false, 1920),
	})

	if len(result.Connected) != 1 || result.Connected[0] != 2 {
		t.Fatalf("expected display 2 to be reported connected, got %+v", result.Connected)
	}
	if w.Display != 2 {
		t.Fatalf("window should be restored to its original display, got %d", w.Display)
	}
	if w.OrphanedFrom != nil {
		t.Fatalf("orphan marker should be cleared once restored")
	}
	d, ok := s.Displays[2]
	if !ok {
		t.Fatalf("display 2 should be back in state")
	}
	if d.VisibleTags != Tag(2) {
		t.Fatalf("restored display should have its saved visible tags, got %d want %d", d.VisibleTags, Tag(2))
	}
	if _, retiled := result.Retile[2]; !retiled {
		t.Fatalf("reconnecting display 2 should be flagged for retile")
	}
}

// Disconnecting the focused display moves focus to the fallback display.
func TestHandleDisplayChangeMovesFocusOffDisconnectedDisplay(t *testing.T) {
	s := newTwoDisplayState()
	s.FocusedDisplay = 2

	s.HandleDisplayChange([]platform.DisplayInfo{displayInfo(1, "main", true, 0)})

	if s.FocusedDisplay != 1 {
		t.Fatalf("focus should fall back to the remaining display, got %d", s.FocusedDisplay)
	}
}

// Disconnecting every display leaves windows orphaned with no fallback
// target, and does not crash despite there being nowhere to move them.
func TestHandleDisplayChangeAllDisplaysGone(t *testing.T) {
	s := newTwoDisplayState()
	w := &Window{ID: 10, Display: 1, Frame: Rect{Width: 100, Height: 100}}
	s.Windows[10] = w

	result := s.HandleDisplayChange(nil)

	if len(result.Disconnected) != 2 {
		t.Fatalf("expected both displays to be reported disconnected, got %+v", result.Disconnected)
	}
	if w.OrphanedFrom == nil || *w.OrphanedFrom != 1 {
		t.Fatalf("window should still remember its origin display")
	}
	if len(s.Displays) != 0 {
		t.Fatalf("state should have no displays left")
	}
}

// Reconnecting a display that wasn't previously known (no saved tags)
// falls back to the default tag set.
func TestHandleDisplayChangeNewDisplayGetsDefaultTags(t *testing.T) {
	s := New()
	result := s.HandleDisplayChange([]platform.DisplayInfo{displayInfo(5, "new", true, 0)})

	if len(result.Connected) != 1 || result.Connected[0] != 5 {
		t.Fatalf("expected display 5 to be reported connected, got %+v", result.Connected)
	}
	d, ok := s.Displays[5]
	if !ok {
		t.Fatalf("display 5 should be in state")
	}
	if d.VisibleTags != DefaultTags {
		t.Fatalf("brand-new display should default to tag 1, got %d", d.VisibleTags)
	}
}

// A display that persists across the call has its geometry refreshed
// in place (e.g. a resolution change) without affecting its windows.
func TestHandleDisplayChangeRefreshesGeometryForPersistingDisplay(t *testing.T) {
	s := newTwoDisplayState()
	info := displayInfo(1, "main", true, 0)
	info.UsableBounds = platform.Bounds{X: 0, Y: 0, Width: 2560, Height: 1400}

	s.HandleDisplayChange([]platform.DisplayInfo{info, displayInfo(2, "secondary", false, 1920)})

	if s.Displays[1].UsableBounds.Width != 2560 {
		t.Fatalf("persisting display's usable bounds should be refreshed, got %+v", s.Displays[1].UsableBounds)
	}
}

func TestFocusOutputCyclesBySortedID(t *testing.T) {
	s := newTwoDisplayState()
	s.Windows[10] = &Window{ID: 10, Display: 2, Tags: Tag(2)}
	s.Windows[10].Tags = s.Displays[2].VisibleTags
	s.AddToWindowOrder(10)
	s.FocusedDisplay = 1

	target, w, err := s.FocusOutput("next")
	if err != nil {
		t.Fatalf("FocusOutput: %v", err)
	}
	if target != 2 {
		t.Fatalf("expected next display to be 2, got %d", target)
	}
	if w == nil || w.ID != 10 {
		t.Fatalf("expected top-of-stack window 10 on display 2")
	}
}

func TestFocusOutputReturnsErrEmptyDisplay(t *testing.T) {
	s := newTwoDisplayState()
	s.FocusedDisplay = 1

	_, _, err := s.FocusOutput("next")
	if err == nil {
		t.Fatalf("expected an error when the target display has no focusable window")
	}
	if _, ok := err.(ErrEmptyDisplay); !ok {
		t.Fatalf("expected ErrEmptyDisplay, got %T", err)
	}
}

func TestSendToOutputRelocatesWindowToTargetOrigin(t *testing.T) {
	s := newTwoDisplayState()
	w := &Window{ID: 10, Display: 1, Tags: DefaultTags, Frame: Rect{X: 500, Y: 500, Width: 100, Height: 100}}
	s.Windows[10] = w

	target, _ := s.SendToOutput(w, "next")

	if target != 2 {
		t.Fatalf("expected target display 2, got %d", target)
	}
	if w.Display != 2 {
		t.Fatalf("window should have moved to display 2")
	}
	if w.Frame.X != s.Displays[2].UsableBounds.X || w.Frame.Y != s.Displays[2].UsableBounds.Y {
		t.Fatalf("window frame should be relocated to the target display's origin, got %+v", w.Frame)
	}
}
