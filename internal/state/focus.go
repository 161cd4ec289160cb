package state

import (
	"time"

	"github.com/tilewm/tilewm/internal/platform"
)

// VisibleFocusableWindowsOnDisplay returns every window assigned to
// displayID that is currently visible (not hidden by tag-view),
// regardless of floating or fullscreen state, in focus-stack order.
// Unlike VisibleWindowsOnDisplay this includes floating and fullscreen
// windows, since any visible window is a valid focus target.
func (s *State) VisibleFocusableWindowsOnDisplay(displayID platform.DisplayID) []*Window {
	d, ok := s.Displays[displayID]
	if !ok {
		return nil
	}
	var out []*Window
	for _, w := range s.Windows {
		if w.Display != displayID {
			continue
		}
		if w.Hidden() || !w.Tags.Intersects(d.VisibleTags) {
			continue
		}
		out = append(out, w)
	}
	sortWindowsByOrder(out, s)
	return out
}

// DirectionalTarget finds the nearest currently-visible window in the
// given compass direction ("left", "right", "up", "down") from from's
// centre point, using Manhattan distance restricted to candidates that
// actually lie in that direction. Ties favour focus-stack recency.
func (s *State) DirectionalTarget(from *Window, direction string) (*Window, bool) {
	fx, fy := from.Frame.Center()
	var best *Window
	var bestDist int
	var bestOrder int
	for _, w := range s.Windows {
		if w.ID == from.ID || w.Hidden() {
			continue
		}
		if d, ok := s.Displays[w.Display]; !ok || !w.Tags.Intersects(d.VisibleTags) {
			continue
		}
		wx, wy := w.Frame.Center()
		dx, dy := wx-fx, wy-fy
		var inDirection bool
		switch direction {
		case "left":
			inDirection = dx < 0
		case "right":
			inDirection = dx > 0
		case "up":
			inDirection = dy < 0
		case "down":
			inDirection = dy > 0
		}
		if !inDirection {
			continue
		}
		dist := abs(dx) + abs(dy)
		order := s.orderIndex(w.ID)
		if order == -1 {
			order = len(s.WindowOrder)
		}
		if best == nil || dist < bestDist || (dist == bestDist && order < bestOrder) {
			best, bestDist, bestOrder = w, dist, order
		}
	}
	return best, best != nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// NextPrevTarget returns the window adjacent to focused in the focus
// stack, wrapping around. The stack is scoped to windows currently
// visible anywhere, matching the window-next/window-prev commands.
func (s *State) NextPrevTarget(focused platform.WindowID, direction string) (*Window, bool) {
	var visible []platform.WindowID
	for _, id := range s.WindowOrder {
		w, ok := s.Windows[id]
		if !ok || w.Hidden() {
			continue
		}
		if d, ok := s.Displays[w.Display]; !ok || !w.Tags.Intersects(d.VisibleTags) {
			continue
		}
		visible = append(visible, id)
	}
	if len(visible) == 0 {
		return nil, false
	}
	idx := 0
	for i, id := range visible {
		if id == focused {
			idx = i
			break
		}
	}
	if direction == "prev" {
		idx = (idx - 1 + len(visible)) % len(visible)
	} else {
		idx = (idx + 1) % len(visible)
	}
	return s.Windows[visible[idx]], true
}

// SetFocusIntent records a deliberate focus assignment the core is about
// to enact, so the next OS focus callback for a different window of the
// same process can be recognised as a spurious side effect (common
// during AX raise calls) and corrected rather than accepted.
func (s *State) SetFocusIntent(w *Window, now time.Time) {
	s.FocusIntent = &FocusIntent{TargetID: w.ID, TargetPID: w.PID, At: now}
	s.FocusedWindow = w.ID
	s.FocusedDisplay = w.Display
	s.AddToWindowOrder(w.ID)
	w.FocusedAt = now
}

// ExternalFocusOutcome is the result of reconciling an OS-observed focus
// callback against any pending focus intent.
type ExternalFocusOutcome struct {
	// Spurious is true when the callback contradicts a still-valid focus
	// intent for the same process; the caller should re-raise IntendedID
	// rather than accept the OS-reported window.
	Spurious   bool
	IntendedID platform.WindowID

	// TagSwitched is true when accepting the focus required switching
	// the owning display's visible tags to reveal a hidden window.
	TagSwitched bool
	Display     platform.DisplayID
	Moves       []WindowMove
}

// ReconcileExternalFocus processes an OS-reported focus change. If it
// contradicts a live focus intent for the same process, it is flagged
// spurious and the state is left untouched. Otherwise it is accepted:
// FocusedWindow/FocusedDisplay are updated, the window is moved to the
// front of the focus stack, and if the window was hidden by tag-view its
// display's visible tags are switched to reveal it (auto tag-switch).
func (s *State) ReconcileExternalFocus(pid int, id platform.WindowID, axOK bool, now time.Time) ExternalFocusOutcome {
	if s.FocusIntent.Valid(now) && s.FocusIntent.TargetPID == pid && s.FocusIntent.TargetID != id {
		return ExternalFocusOutcome{Spurious: true, IntendedID: s.FocusIntent.TargetID}
	}
	if !axOK {
		return ExternalFocusOutcome{}
	}
	w, ok := s.Windows[id]
	if !ok {
		return ExternalFocusOutcome{}
	}

	s.FocusedWindow = id
	s.FocusedDisplay = w.Display
	s.AddToWindowOrder(id)
	w.FocusedAt = now

	outcome := ExternalFocusOutcome{Display: w.Display}
	if w.Hidden() {
		if d, ok := s.Displays[w.Display]; ok {
			s.PreviousTags[w.Display] = d.VisibleTags
			d.VisibleTags = Tag(w.Tags.First())
			outcome.TagSwitched = true
			outcome.Moves = s.ComputeLayoutChangesForDisplay(w.Display)
		}
	}
	return outcome
}

// ShouldWarpCursor reports whether a focus change under the given mode
// should warp the OS cursor. outputChanged is true when the newly
// focused window sits on a different display than the previous focus.
func ShouldWarpCursor(mode CursorWarpMode, outputChanged bool) bool {
	switch mode {
	case CursorWarpOnFocusChange:
		return true
	case CursorWarpOnOutputChange:
		return outputChanged
	default:
		return false
	}
}
