package hotkey

import (
	"context"
	"sync"
)

// Fake is an in-memory Tap for tests and for the bench harness: tests
// call Trigger to simulate a key match instead of driving a real OS
// event tap.
type Fake struct {
	mu sync.Mutex

	events   chan Event
	bindings map[Chord]string

	RebuildCount int
}

// NewFake returns an empty fake tap.
func NewFake() *Fake {
	return &Fake{
		events:   make(chan Event, 1),
		bindings: make(map[Chord]string),
	}
}

func (f *Fake) Events() <-chan Event { return f.events }

func (f *Fake) Rebuild(ctx context.Context, bindings []Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings = make(map[Chord]string, len(bindings))
	for _, b := range bindings {
		f.bindings[b.Chord] = b.Command
	}
	f.RebuildCount++
	return nil
}

func (f *Fake) Close() error { return nil }

// Trigger simulates the chord firing, delivering the bound command's
// event if the chord is currently installed. Reports whether anything
// was delivered.
func (f *Fake) Trigger(chord Chord) bool {
	f.mu.Lock()
	command, ok := f.bindings[chord]
	f.mu.Unlock()
	if !ok {
		return false
	}
	f.events <- Event{Command: command}
	return true
}

var _ Tap = (*Fake)(nil)
