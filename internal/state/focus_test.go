package state

import (
	"testing"
	"time"
)

func newFocusTestState() *State {
	s := New()
	s.Displays[1] = &Display{
		ID: 1, Name: "main",
		FullBounds:   Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		UsableBounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1040},
		VisibleTags:  DefaultTags,
	}
	return s
}

// A focus callback for a different window of the same process, arriving
// while a deliberate focus intent for another window is still valid, is
// flagged spurious and leaves state untouched.
func TestReconcileExternalFocusFlagsSpuriousCallback(t *testing.T) {
	s := newFocusTestState()
	w1 := &Window{ID: 1, PID: 100, Display: 1, Tags: DefaultTags}
	w2 := &Window{ID: 2, PID: 100, Display: 1, Tags: DefaultTags}
	s.Windows[1], s.Windows[2] = w1, w2
	now := time.Now()
	s.SetFocusIntent(w1, now)

	outcome := s.ReconcileExternalFocus(100, 2, true, now.Add(10*time.Millisecond))

	if !outcome.Spurious {
		t.Fatalf("expected the callback to be flagged spurious")
	}
	if outcome.IntendedID != 1 {
		t.Fatalf("spurious outcome should name the intended window, got %d", outcome.IntendedID)
	}
	if s.FocusedWindow != 1 {
		t.Fatalf("FocusedWindow should remain the intended window, got %d", s.FocusedWindow)
	}
}

// Once the focus intent's TTL has elapsed, the same callback is no
// longer considered spurious and is accepted normally.
func TestReconcileExternalFocusAcceptsCallbackAfterIntentExpires(t *testing.T) {
	s := newFocusTestState()
	w1 := &Window{ID: 1, PID: 100, Display: 1, Tags: DefaultTags}
	w2 := &Window{ID: 2, PID: 100, Display: 1, Tags: DefaultTags}
	s.Windows[1], s.Windows[2] = w1, w2
	now := time.Now()
	s.SetFocusIntent(w1, now)

	outcome := s.ReconcileExternalFocus(100, 2, true, now.Add(time.Second))

	if outcome.Spurious {
		t.Fatalf("an expired intent should not suppress the callback")
	}
	if s.FocusedWindow != 2 {
		t.Fatalf("FocusedWindow should be updated to 2, got %d", s.FocusedWindow)
	}
}

// A focus callback for a window on a different process than the
// intended target is accepted immediately, regardless of TTL.
func TestReconcileExternalFocusAcceptsDifferentProcess(t *testing.T) {
	s := newFocusTestState()
	w1 := &Window{ID: 1, PID: 100, Display: 1, Tags: DefaultTags}
	w2 := &Window{ID: 2, PID: 200, Display: 1, Tags: DefaultTags}
	s.Windows[1], s.Windows[2] = w1, w2
	now := time.Now()
	s.SetFocusIntent(w1, now)

	outcome := s.ReconcileExternalFocus(200, 2, true, now.Add(10*time.Millisecond))

	if outcome.Spurious {
		t.Fatalf("a callback for an unrelated process should never be spurious")
	}
	if s.FocusedWindow != 2 {
		t.Fatalf("FocusedWindow should be updated to 2, got %d", s.FocusedWindow)
	}
}

// A focus callback without AX confirmation is dropped without mutating
// state.
func TestReconcileExternalFocusIgnoresWithoutAX(t *testing.T) {
	s := newFocusTestState()
	w := &Window{ID: 1, PID: 100, Display: 1, Tags: DefaultTags}
	s.Windows[1] = w

	outcome := s.ReconcileExternalFocus(100, 1, false, time.Now())

	if outcome.Spurious {
		t.Fatalf("a !axOK callback is dropped, not flagged spurious")
	}
	if s.FocusedWindow == 1 {
		t.Fatalf("FocusedWindow should not be set from an unconfirmed callback")
	}
}

// Accepting focus on a hidden window auto-switches the display's
// visible tags to reveal it.
func TestReconcileExternalFocusAutoSwitchesTagsForHiddenWindow(t *testing.T) {
	s := newFocusTestState()
	saved := Rect{X: 100, Y: 100, Width: 200, Height: 200}
	w := &Window{ID: 1, PID: 100, Display: 1, Tags: Tag(3), SavedFrame: &saved, Frame: Rect{X: -500, Y: -500, Width: 200, Height: 200}}
	s.Windows[1] = w

	outcome := s.ReconcileExternalFocus(100, 1, true, time.Now())

	if !outcome.TagSwitched {
		t.Fatalf("expected the display's tags to be switched to reveal the hidden window")
	}
	if s.Displays[1].VisibleTags != Tag(3) {
		t.Fatalf("display should now show tag 3, got %d", s.Displays[1].VisibleTags)
	}
	if w.Hidden() {
		t.Fatalf("window should no longer be hidden after the tag switch reveals it")
	}
}

func TestDirectionalTargetFindsNearestInDirection(t *testing.T) {
	s := newFocusTestState()
	from := &Window{ID: 1, Display: 1, Tags: DefaultTags, Frame: Rect{X: 0, Y: 0, Width: 100, Height: 100}}
	near := &Window{ID: 2, Display: 1, Tags: DefaultTags, Frame: Rect{X: 200, Y: 0, Width: 100, Height: 100}}
	far := &Window{ID: 3, Display: 1, Tags: DefaultTags, Frame: Rect{X: 1000, Y: 0, Width: 100, Height: 100}}
	wrongWay := &Window{ID: 4, Display: 1, Tags: DefaultTags, Frame: Rect{X: -500, Y: 0, Width: 100, Height: 100}}
	s.Windows[1], s.Windows[2], s.Windows[3], s.Windows[4] = from, near, far, wrongWay

	got, ok := s.DirectionalTarget(from, "right")
	if !ok || got.ID != 2 {
		t.Fatalf("expected nearest window to the right (id 2), got %v ok=%v", got, ok)
	}
}

func TestDirectionalTargetIgnoresHiddenAndWrongTag(t *testing.T) {
	s := newFocusTestState()
	from := &Window{ID: 1, Display: 1, Tags: DefaultTags, Frame: Rect{X: 0, Y: 0, Width: 100, Height: 100}}
	saved := Rect{X: 150, Y: 0, Width: 100, Height: 100}
	hidden := &Window{ID: 2, Display: 1, Tags: DefaultTags, SavedFrame: &saved, Frame: Rect{X: -900, Y: -900, Width: 100, Height: 100}}
	wrongTag := &Window{ID: 3, Display: 1, Tags: Tag(4), Frame: Rect{X: 300, Y: 0, Width: 100, Height: 100}}
	s.Windows[1], s.Windows[2], s.Windows[3] = from, hidden, wrongTag

	_, ok := s.DirectionalTarget(from, "right")
	if ok {
		t.Fatalf("hidden and tag-mismatched windows must not be directional targets")
	}
}

func TestNextPrevTargetWrapsAround(t *testing.T) {
	s := newFocusTestState()
	s.Windows[1] = &Window{ID: 1, Display: 1, Tags: DefaultTags}
	s.Windows[2] = &Window{ID: 2, Display: 1, Tags: DefaultTags}
	s.AddToWindowOrder(1)
	s.AddToWindowOrder(2)
	// WindowOrder front is most-recently-added: [2, 1]
	next, ok := s.NextPrevTarget(1, "next")
	if !ok || next.ID != 2 {
		t.Fatalf("expected wrap to window 2, got %v ok=%v", next, ok)
	}
}

func TestNextPrevTargetExcludesHiddenWindows(t *testing.T) {
	s := newFocusTestState()
	saved := Rect{}
	s.Windows[1] = &Window{ID: 1, Display: 1, Tags: DefaultTags}
	s.Windows[2] = &Window{ID: 2, Display: 1, Tags: DefaultTags, SavedFrame: &saved}
	s.AddToWindowOrder(1)
	s.AddToWindowOrder(2)

	got, ok := s.NextPrevTarget(1, "next")
	if !ok || got.ID != 1 {
		t.Fatalf("hidden window 2 should be skipped, expected to land back on 1, got %v", got)
	}
}

func TestShouldWarpCursor(t *testing.T) {
	cases := []struct {
		mode          CursorWarpMode
		outputChanged bool
		want          bool
	}{
		{CursorWarpDisabled, true, false},
		{CursorWarpDisabled, false, false},
		{CursorWarpOnFocusChange, false, true},
		{CursorWarpOnFocusChange, true, true},
		{CursorWarpOnOutputChange, false, false},
		{CursorWarpOnOutputChange, true, true},
	}
	for _, c := range cases {
		if got := ShouldWarpCursor(c.mode, c.outputChanged); got != c.want {
			t.Errorf("mode=%s outputChanged=%v: got %v want %v", c.mode, c.outputChanged, got, c.want)
		}
	}
}
