package state

import "github.com/tilewm/tilewm/internal/platform"

// WindowMove is an effect-level instruction: reposition a window's
// top-left corner, preserving its current size.
type WindowMove struct {
	ID  platform.WindowID
	PID int
	X   int
	Y   int
}

// otherFullBounds returns the full bounds of every display except skip.
func (s *State) otherFullBounds(skip platform.DisplayID) []Rect {
	out := make([]Rect, 0, len(s.Displays))
	for id, d := range s.Displays {
		if id != skip {
			out = append(out, d.FullBounds)
		}
	}
	return out
}

// computeHideForWindow returns the position at which w should be placed
// to hide it off its current display while preserving one pixel inside
// the display's full bounds.
func (s *State) computeHideForWindow(w *Window) (x, y int) {
	d, ok := s.Displays[w.Display]
	if !ok {
		return computeGlobalHidePosition(allFullBounds(s.Displays))
	}
	return computeHidePositionForDisplay(d.FullBounds, s.otherFullBounds(w.Display), w.Frame.Width, w.Frame.Height)
}

func allFullBounds(displays map[platform.DisplayID]*Display) []Rect {
	out := make([]Rect, 0, len(displays))
	for _, d := range displays {
		out = append(out, d.FullBounds)
	}
	return out
}

// VisibleWindowsOnDisplay returns the windows assigned to displayID that
// are currently visible, not hidden, and tiled (not floating, not
// fullscreen), in focus-stack order (most-recently-focused first),
// falling back to ascending window id for windows absent from the
// stack.
func (s *State) VisibleWindowsOnDisplay(displayID platform.DisplayID) []*Window {
	d, ok := s.Displays[displayID]
	if !ok {
		return nil
	}
	var out []*Window
	for _, w := range s.Windows {
		if w.Display != displayID {
			continue
		}
		if !w.Tags.Intersects(d.VisibleTags) {
			continue
		}
		if w.Hidden() || !w.IsTiled() {
			continue
		}
		out = append(out, w)
	}
	sortWindowsByOrder(out, s)
	return out
}

func sortWindowsByOrder(windows []*Window, s *State) {
	for i := 1; i < len(windows); i++ {
		for j := i; j > 0 && windowLess(windows[j], windows[j-1], s); j-- {
			windows[j-1], windows[j] = windows[j], windows[j-1]
		}
	}
}

func windowLess(a, b *Window, s *State) bool {
	ai, bi := s.orderIndex(a.ID), s.orderIndex(b.ID)
	switch {
	case ai == -1 && bi == -1:
		return a.ID < b.ID
	case ai == -1:
		return false
	case bi == -1:
		return true
	default:
		return ai < bi
	}
}

// ComputeLayoutChangesForDisplay reconciles every window assigned to
// displayID against the display's visible tags: windows whose tags now
// intersect the visible set are shown (their saved frame is restored),
// and windows whose tags no longer intersect it are hidden (their
// current frame is saved and replaced by the computed hide position).
func (s *State) ComputeLayoutChangesForDisplay(displayID platform.DisplayID) []WindowMove {
	d, ok := s.Displays[displayID]
	if !ok {
		return nil
	}
	var moves []WindowMove
	for _, w := range s.Windows {
		if w.Display != displayID {
			continue
		}
		visible := w.Tags.Intersects(d.VisibleTags)
		switch {
		case visible && w.Hidden():
			saved := *w.SavedFrame
			w.Frame = saved
			w.SavedFrame = nil
			moves = append(moves, WindowMove{ID: w.ID, PID: w.PID, X: w.Frame.X, Y: w.Frame.Y})
		case !visible && !w.Hidden():
			saved := w.Frame
			x, y := s.computeHideForWindow(w)
			w.SavedFrame = &saved
			w.Frame.X, w.Frame.Y = x, y
			moves = append(moves, WindowMove{ID: w.ID, PID: w.PID, X: x, Y: y})
		}
	}
	return moves
}

// ComputeLayoutChanges runs ComputeLayoutChangesForDisplay over every
// display, returning the union of all resulting moves.
func (s *State) ComputeLayoutChanges() []WindowMove {
	var all []WindowMove
	for id := range s.Displays {
		all = append(all, s.ComputeLayoutChangesForDisplay(id)...)
	}
	return all
}
