package hotkey

import "sync"

// Binding maps one chord to a command name, opaque to this package; the
// core loop resolves it against whatever the bind IPC command or the
// config's static seed registered.
type Binding struct {
	Chord   Chord
	Command string
}

// Table is the hotkey→command table. Mutations only mark the table
// dirty; rebuilding the underlying Tap is coalesced into the next timer
// tick rather than happening inline, per the core loop's ordering
// guarantees.
type Table struct {
	mu       sync.Mutex
	bindings map[Chord]string
	dirty    bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{bindings: make(map[Chord]string)}
}

// Bind registers or replaces the command bound to a chord.
func (t *Table) Bind(chord Chord, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.bindings[chord]; ok && existing == command {
		return
	}
	t.bindings[chord] = command
	t.dirty = true
}

// Unbind removes a chord's binding, if any. Reports whether anything was
// removed.
func (t *Table) Unbind(chord Chord) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.bindings[chord]; !ok {
		return false
	}
	delete(t.bindings, chord)
	t.dirty = true
	return true
}

// Bindings returns a snapshot of every binding, in no particular order.
func (t *Table) Bindings() []Binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Binding, 0, len(t.bindings))
	for chord, command := range t.bindings {
		out = append(out, Binding{Chord: chord, Command: command})
	}
	return out
}

// Lookup resolves a chord to its bound command.
func (t *Table) Lookup(chord Chord) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	command, ok := t.bindings[chord]
	return command, ok
}

// TakeDirty reports whether any binding changed since the last call and
// clears the flag. The timer tick calls this once per tick to decide
// whether the tap needs rebuilding.
func (t *Table) TakeDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	dirty := t.dirty
	t.dirty = false
	return dirty
}
