package hotkey

import (
	"context"
	"testing"
)

func TestFakeTapTriggerDeliversBoundCommand(t *testing.T) {
	tap := NewFake()
	chord := Chord{Mods: ModCmd, Key: "t"}

	if err := tap.Rebuild(context.Background(), []Binding{{Chord: chord, Command: "retile"}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if tap.RebuildCount != 1 {
		t.Fatalf("expected RebuildCount 1, got %d", tap.RebuildCount)
	}

	if !tap.Trigger(chord) {
		t.Fatalf("expected Trigger to deliver for a bound chord")
	}
	select {
	case ev := <-tap.Events():
		if ev.Command != "retile" {
			t.Fatalf("unexpected event: %#v", ev)
		}
	default:
		t.Fatalf("expected event to be queued")
	}

	if tap.Trigger(Chord{Key: "z"}) {
		t.Fatalf("expected Trigger to report false for an unbound chord")
	}
}

func TestUnavailableTapRejectsRebuild(t *testing.T) {
	tap := NewUnavailable()
	if err := tap.Rebuild(context.Background(), nil); err == nil {
		t.Fatalf("expected Rebuild to fail on Unavailable")
	}
	select {
	case <-tap.Events():
		t.Fatalf("expected Unavailable to never raise an event")
	default:
	}
}
