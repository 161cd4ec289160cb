package platform

import (
	"context"
	"fmt"
)

// Unavailable implements both WindowSystem and WindowManipulator by
// reporting permanent denial on every call. The real bindings require
// cgo access to the Accessibility and CoreGraphics frameworks, which this
// repository treats as an external collaborator (see the specification's
// platform bindings out-of-scope note): integrating them is a matter of
// swapping this type for one built against those frameworks, without
// touching any caller of the WindowSystem/WindowManipulator interfaces.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	if u.Reason != "" {
		return fmt.Errorf("%s: %w", u.Reason, ErrPermanentDenial)
	}
	return ErrPermanentDenial
}

func (u Unavailable) ListWindows(ctx context.Context) ([]WindowInfo, error) { return nil, u.err() }
func (u Unavailable) ListWindowsForPID(ctx context.Context, pid int) ([]WindowInfo, error) {
	return nil, u.err()
}
func (u Unavailable) ListDisplays(ctx context.Context) ([]DisplayInfo, error) { return nil, u.err() }
func (u Unavailable) ExtendedAttributesFor(ctx context.Context, pid int, id WindowID) (ExtendedAttributes, error) {
	return ExtendedAttributes{}, u.err()
}
func (u Unavailable) FocusedWindow(ctx context.Context) (int, WindowID, bool, error) {
	return 0, 0, false, u.err()
}
func (u Unavailable) IsProcessAXAccessible(ctx context.Context, pid int) bool { return false }
func (u Unavailable) IsWindowStillInAX(ctx context.Context, pid int, id WindowID) bool {
	return false
}

func (u Unavailable) MoveWindow(ctx context.Context, pid int, id WindowID, x, y int) error {
	return u.err()
}
func (u Unavailable) ResizeWindow(ctx context.Context, pid int, id WindowID, w, h int) error {
	return u.err()
}
func (u Unavailable) ActivateProcess(ctx context.Context, pid int) error { return u.err() }
func (u Unavailable) RaiseWindow(ctx context.Context, pid int, id WindowID) error {
	return u.err()
}
func (u Unavailable) CloseWindow(ctx context.Context, pid int, id WindowID) error {
	return u.err()
}
func (u Unavailable) WarpCursor(ctx context.Context, x, y int) error { return u.err() }
func (u Unavailable) Exec(ctx context.Context, command string) error { return u.err() }

var _ WindowSystem = Unavailable{}
var _ WindowManipulator = Unavailable{}
