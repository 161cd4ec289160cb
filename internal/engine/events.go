package engine

import (
	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/platform"
)

// eventSnapshot is the event-relevant projection of state that the
// event-diff step compares before and after a mutation. It mirrors
// snapshotLocked's shape but keyed by id, so added/removed/changed
// entries can be found by map lookup rather than by re-sorting and
// walking two slices in lockstep.
type eventSnapshot struct {
	windows        map[platform.WindowID]control.WindowView
	displays       map[platform.DisplayID]control.DisplayView
	focusedWindow  platform.WindowID
	focusedDisplay platform.DisplayID
}

// snapshotForDiffLocked captures the event-relevant projection of the
// current state. Caller must hold c.mu.
func (c *Core) snapshotForDiffLocked() eventSnapshot {
	windows := make(map[platform.WindowID]control.WindowView, len(c.state.Windows))
	for id, w := range c.state.Windows {
		windows[id] = windowView(w)
	}
	displays := make(map[platform.DisplayID]control.DisplayView, len(c.state.Displays))
	for id, d := range c.state.Displays {
		displays[id] = displayView(d)
	}
	return eventSnapshot{
		windows:        windows,
		displays:       displays,
		focusedWindow:  c.state.FocusedWindow,
		focusedDisplay: c.state.FocusedDisplay,
	}
}

// publishDiffLocked compares before against the current state and
// publishes the minimal set of events implied by their symmetric
// difference over the window, display, and focus projections. Called
// around every command dispatch and every periodic poll, so a pass that
// changed nothing publishes nothing. Caller must hold c.mu.
func (c *Core) publishDiffLocked(before eventSnapshot) {
	if c.hub == nil {
		return
	}
	after := c.snapshotForDiffLocked()

	for id := range before.windows {
		if _, ok := after.windows[id]; !ok {
			c.hub.Publish(control.StateEvent{Type: control.EventWindowDestroyed, WindowID: id})
		}
	}
	for id, aw := range after.windows {
		bw, existed := before.windows[id]
		if !existed {
			view := aw
			c.hub.Publish(control.StateEvent{Type: control.EventWindowCreated, Window: &view})
			continue
		}
		if bw.Tags != aw.Tags {
			c.hub.Publish(control.StateEvent{Type: control.EventTagsChanged, WindowID: id, PreviousTags: bw.Tags, NewTags: aw.Tags})
		}
		if windowViewChangedIgnoringTags(bw, aw) {
			view := aw
			c.hub.Publish(control.StateEvent{Type: control.EventWindowUpdated, Window: &view})
		}
	}

	for id := range before.displays {
		if _, ok := after.displays[id]; !ok {
			c.hub.Publish(control.StateEvent{Type: control.EventDisplayRemoved, DisplayID: id})
		}
	}
	for id, ad := range after.displays {
		bd, existed := before.displays[id]
		if !existed {
			view := ad
			c.hub.Publish(control.StateEvent{Type: control.EventDisplayAdded, Display: &view})
			continue
		}
		if bd.CurrentLayout != ad.CurrentLayout {
			c.hub.Publish(control.StateEvent{Type: control.EventLayoutChanged, DisplayID: id, Layout: ad.CurrentLayout})
		}
		if displayViewChangedIgnoringLayout(bd, ad) {
			view := ad
			c.hub.Publish(control.StateEvent{Type: control.EventDisplayUpdated, Display: &view})
		}
	}

	if before.focusedWindow != after.focusedWindow {
		c.hub.Publish(control.StateEvent{Type: control.EventWindowFocused, WindowID: after.focusedWindow})
	}
	if before.focusedDisplay != after.focusedDisplay {
		c.hub.Publish(control.StateEvent{Type: control.EventDisplayFocused, DisplayID: after.focusedDisplay})
	}
}

// windowViewChangedIgnoringTags reports whether a and b differ in any
// field other than Tags, which is diffed separately into TagsChanged.
func windowViewChangedIgnoringTags(a, b control.WindowView) bool {
	a.Tags, b.Tags = 0, 0
	return a != b
}

// displayViewChangedIgnoringLayout reports whether a and b differ in any
// field other than CurrentLayout, which is diffed separately into
// LayoutChanged.
func displayViewChangedIgnoringLayout(a, b control.DisplayView) bool {
	a.CurrentLayout, b.CurrentLayout = "", ""
	return a != b
}
