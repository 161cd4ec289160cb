// Package platform defines the two capability boundaries through which the
// core talks to the operating system: a read-only window-system query
// surface and a window-manipulator effect surface. All OS calls funnel
// through these two interfaces; the core never touches the OS directly.
package platform

import "context"

// WindowID is the stable identifier the window system assigns to an
// on-screen window.
type WindowID uint32

// DisplayID is the stable identifier the window system assigns to a
// physical output.
type DisplayID uint32

// Bounds is an integer rectangle in the top-left-origin coordinate space of
// the full display union.
type Bounds struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the x coordinate one past the rectangle's right edge.
func (b Bounds) Right() int { return b.X + b.Width }

// Bottom returns the y coordinate one past the rectangle's bottom edge.
func (b Bounds) Bottom() int { return b.Y + b.Height }

// ButtonState describes the observed state of a titlebar button.
type ButtonState int

const (
	// ButtonAbsent means the window has no such button.
	ButtonAbsent ButtonState = iota
	ButtonEnabled
	ButtonDisabled
)

// WindowInfo is the raw, OS-reported description of an on-screen window, as
// returned by the window-list query API.
type WindowInfo struct {
	ID       WindowID
	PID      int
	Owner    string // application display name
	BundleID string // application bundle identifier, if known
	Title    string
	Bounds   Bounds
}

// ExtendedAttributes is the raw, OS-reported accessibility description of a
// window, fetched lazily (it is more expensive than WindowInfo).
type ExtendedAttributes struct {
	AXID          string // empty means absent
	Subrole       string // empty means absent
	WindowLevel   int
	CloseButton   ButtonState
	MinimizeBtn   ButtonState
	ZoomButton    ButtonState
	FullscreenBtn ButtonState
}

// DisplayInfo is the raw, OS-reported description of a physical output.
type DisplayInfo struct {
	ID           DisplayID
	Name         string
	IsMain       bool
	FullBounds   Bounds
	UsableBounds Bounds // full bounds minus menu bar and dock
}

// WindowSystem is the read-only query surface. Implementations must never
// mutate OS state.
type WindowSystem interface {
	// ListWindows returns every on-screen window the OS currently reports.
	ListWindows(ctx context.Context) ([]WindowInfo, error)
	// ListWindowsForPID returns the on-screen windows owned by a single
	// process, used on app-launch and focus-change events.
	ListWindowsForPID(ctx context.Context, pid int) ([]WindowInfo, error)
	// ListDisplays returns every physical output the OS currently reports.
	ListDisplays(ctx context.Context) ([]DisplayInfo, error)
	// ExtendedAttributesFor fetches the accessibility attributes of a single
	// window. Returns ErrTransient if the AX call yields no value.
	ExtendedAttributesFor(ctx context.Context, pid int, id WindowID) (ExtendedAttributes, error)
	// FocusedWindow reports the OS-observed frontmost process and, if AX
	// succeeds, its focused window id.
	FocusedWindow(ctx context.Context) (pid int, id WindowID, axOK bool, err error)
	// IsProcessAXAccessible reports whether a process still responds to AX
	// queries at all. Used by the two-phase removal check.
	IsProcessAXAccessible(ctx context.Context, pid int) bool
	// IsWindowStillInAX reports whether a specific window id is still
	// present in the process's AX window list. Used by the two-phase
	// removal check.
	IsWindowStillInAX(ctx context.Context, pid int, id WindowID) bool
}

// WindowManipulator is the effect surface. No method here may be called
// from anywhere but the effect executor (C9).
type WindowManipulator interface {
	// MoveWindow repositions a window's top-left corner, preserving size.
	MoveWindow(ctx context.Context, pid int, id WindowID, x, y int) error
	// ResizeWindow sets a window's size, preserving position.
	ResizeWindow(ctx context.Context, pid int, id WindowID, width, height int) error
	// ActivateProcess brings a process to the front without necessarily
	// focusing any particular window.
	ActivateProcess(ctx context.Context, pid int) error
	// RaiseWindow requests AX focus for a specific window.
	RaiseWindow(ctx context.Context, pid int, id WindowID) error
	// CloseWindow presses the window's AX close button. Returns
	// ErrTransient if the window has no close button.
	CloseWindow(ctx context.Context, pid int, id WindowID) error
	// WarpCursor moves the OS cursor to the given point.
	WarpCursor(ctx context.Context, x, y int) error
	// Exec runs an external command, detached from the daemon's lifetime.
	Exec(ctx context.Context, command string) error
}
