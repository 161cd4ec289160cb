package platform

import (
	"context"
	"sync"
)

// Fake is an in-memory WindowSystem + WindowManipulator used by tests and
// by the bench harness. It lets a test script observed OS state
// directly, and records manipulator calls for assertions.
type Fake struct {
	mu sync.Mutex

	windows    map[WindowID]WindowInfo
	extended   map[WindowID]ExtendedAttributes
	displays   map[DisplayID]DisplayInfo
	axAlive    map[int]bool       // pid -> still AX-accessible
	axWindows  map[int][]WindowID // pid -> windows still present in AX
	focusedPID int
	focusedID  WindowID
	focusOK    bool

	Moves    []FakeMove
	Resizes  []FakeResize
	Activate []int
	Raises   []FakeMove
	Warps    []FakePoint
	Execs    []string
	Closed   []WindowID
}

type FakeMove struct {
	PID  int
	ID   WindowID
	X, Y int
}

type FakeResize struct {
	PID           int
	ID            WindowID
	Width, Height int
}

type FakePoint struct{ X, Y int }

// NewFake returns an empty fake platform.
func NewFake() *Fake {
	return &Fake{
		windows:   make(map[WindowID]WindowInfo),
		extended:  make(map[WindowID]ExtendedAttributes),
		displays:  make(map[DisplayID]DisplayInfo),
		axAlive:   make(map[int]bool),
		axWindows: make(map[int][]WindowID),
	}
}

// SetWindow upserts a window as currently on-screen.
func (f *Fake) SetWindow(info WindowInfo, ext ExtendedAttributes) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[info.ID] = info
	f.extended[info.ID] = ext
	f.axAlive[info.PID] = true
	if !containsID(f.axWindows[info.PID], info.ID) {
		f.axWindows[info.PID] = append(f.axWindows[info.PID], info.ID)
	}
}

// RemoveWindowFromOnScreenList drops a window from the on-screen list
// without touching its AX-liveness bookkeeping, simulating a transient
// disappearance (e.g. native fullscreen transition).
func (f *Fake) RemoveWindowFromOnScreenList(id WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, id)
}

// DestroyWindow removes a window from the on-screen list and from AX,
// simulating a genuine close.
func (f *Fake) DestroyWindow(id WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pid := f.windows[id].PID
	delete(f.windows, id)
	delete(f.extended, id)
	f.axWindows[pid] = removeID(f.axWindows[pid], id)
}

// SetProcessAXAccessible controls the two-phase removal check's first
// condition for a given pid.
func (f *Fake) SetProcessAXAccessible(pid int, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.axAlive[pid] = alive
}

// SetDisplay upserts a physical output.
func (f *Fake) SetDisplay(d DisplayInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.displays[d.ID] = d
}

// RemoveDisplay simulates a disconnect.
func (f *Fake) RemoveDisplay(id DisplayID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.displays, id)
}

// SetFocusedWindow sets what FocusedWindow reports.
func (f *Fake) SetFocusedWindow(pid int, id WindowID, axOK bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focusedPID, f.focusedID, f.focusOK = pid, id, axOK
}

func (f *Fake) ListWindows(ctx context.Context) ([]WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WindowInfo, 0, len(f.windows))
	for _, w := range f.windows {
		out = append(out, w)
	}
	return out, nil
}

func (f *Fake) ListWindowsForPID(ctx context.Context, pid int) ([]WindowInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WindowInfo, 0)
	for _, w := range f.windows {
		if w.PID == pid {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *Fake) ListDisplays(ctx context.Context) ([]DisplayInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DisplayInfo, 0, len(f.displays))
	for _, d := range f.displays {
		out = append(out, d)
	}
	return out, nil
}

func (f *Fake) ExtendedAttributesFor(ctx context.Context, pid int, id WindowID) (ExtendedAttributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext, ok := f.extended[id]
	if !ok {
		return ExtendedAttributes{}, ErrTransient
	}
	return ext, nil
}

func (f *Fake) FocusedWindow(ctx context.Context) (int, WindowID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focusedPID, f.focusedID, f.focusOK, nil
}

func (f *Fake) IsProcessAXAccessible(ctx context.Context, pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.axAlive[pid]
}

func (f *Fake) IsWindowStillInAX(ctx context.Context, pid int, id WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return containsID(f.axWindows[pid], id)
}

func (f *Fake) MoveWindow(ctx context.Context, pid int, id WindowID, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moves = append(f.Moves, FakeMove{PID: pid, ID: id, X: x, Y: y})
	if w, ok := f.windows[id]; ok {
		w.Bounds.X, w.Bounds.Y = x, y
		f.windows[id] = w
	}
	return nil
}

func (f *Fake) ResizeWindow(ctx context.Context, pid int, id WindowID, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resizes = append(f.Resizes, FakeResize{PID: pid, ID: id, Width: width, Height: height})
	if w, ok := f.windows[id]; ok {
		w.Bounds.Width, w.Bounds.Height = width, height
		f.windows[id] = w
	}
	return nil
}

func (f *Fake) ActivateProcess(ctx context.Context, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Activate = append(f.Activate, pid)
	return nil
}

func (f *Fake) RaiseWindow(ctx context.Context, pid int, id WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Raises = append(f.Raises, FakeMove{PID: pid, ID: id})
	f.focusedPID, f.focusedID, f.focusOK = pid, id, true
	return nil
}

func (f *Fake) CloseWindow(ctx context.Context, pid int, id WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.windows[id]; !ok {
		return ErrTransient
	}
	delete(f.windows, id)
	delete(f.extended, id)
	f.axWindows[pid] = removeID(f.axWindows[pid], id)
	f.Closed = append(f.Closed, id)
	return nil
}

func (f *Fake) WarpCursor(ctx context.Context, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Warps = append(f.Warps, FakePoint{X: x, Y: y})
	return nil
}

func (f *Fake) Exec(ctx context.Context, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Execs = append(f.Execs, command)
	return nil
}

func containsID(ids []WindowID, id WindowID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []WindowID, id WindowID) []WindowID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

var _ WindowSystem = (*Fake)(nil)
var _ WindowManipulator = (*Fake)(nil)
