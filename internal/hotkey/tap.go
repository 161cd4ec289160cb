package hotkey

import "context"

// Event carries the command name bound to whichever chord the tap just
// matched.
type Event struct {
	Command string
}

// Tap is the global event tap: it owns the OS-level key grab and raises
// Event on its channel as soon as a bound chord fires, so the core loop
// wakes on the same tick rather than waiting for the next timer tick.
type Tap interface {
	// Events returns the channel the core loop selects on.
	Events() <-chan Event

	// Rebuild installs a new set of chord grabs, replacing whatever was
	// previously installed. Called from the timer tick when the table's
	// dirty flag is set.
	Rebuild(ctx context.Context, bindings []Binding) error

	// Close tears down the tap and releases any OS-level grabs.
	Close() error
}

// Unavailable implements Tap by reporting ErrUnavailable on every
// rebuild and never raising an event. The real tap requires cgo access
// to the desktop's global event-tap API, treated as an external
// collaborator; swapping this type for one built against that API is
// the only change needed to make hotkeys live.
type Unavailable struct {
	events chan Event
}

// NewUnavailable returns a Tap that never fires.
func NewUnavailable() *Unavailable {
	return &Unavailable{events: make(chan Event)}
}

func (u *Unavailable) Events() <-chan Event { return u.events }

func (u *Unavailable) Rebuild(ctx context.Context, bindings []Binding) error {
	return ErrUnavailable
}

func (u *Unavailable) Close() error { return nil }

var _ Tap = (*Unavailable)(nil)
