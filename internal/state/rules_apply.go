package state

import (
	"strconv"

	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/rules"
)

// ResolveDisplaySpecifier looks up a display by numeric id or by name,
// as accepted by the rules DSL's `output <idOrName>` action and the
// `output-send`/`output-focus` commands.
func (s *State) ResolveDisplaySpecifier(spec string) (platform.DisplayID, bool) {
	if n, err := strconv.ParseUint(spec, 10, 32); err == nil {
		id := platform.DisplayID(n)
		if _, ok := s.Displays[id]; ok {
			return id, true
		}
	}
	for id, d := range s.Displays {
		if d.Name == spec {
			return id, true
		}
	}
	return 0, false
}

// ShouldIgnoreWindow reports whether the rule table resolves ignore=true
// for the given window attributes.
func (s *State) ShouldIgnoreWindow(a rules.Attrs) bool {
	return s.Rules.Resolve(a).Ignore
}

// nonNormalUnmanaged reports whether a, a non-normal-level window's
// attributes, fails the default layer filter: non-normal windows (level
// != 0) stay unmanaged unless some non-ignore rule matches them.
func (s *State) nonNormalUnmanaged(a rules.Attrs) bool {
	return a.WindowLevel != 0 && !s.Rules.HasMatchingNonIgnoreRule(a)
}

// applyRulesToWindow resolves the rule table against w's current
// attributes and applies every category the rules speak on: tags,
// target display, and floating. Non-normal windows default to floating
// unless a rule explicitly sets float=false ("no-float"). Returns the
// set of window moves produced by any resulting hide/show transition
// plus whether w's display changed (the caller must retile both the old
// and new display in that case).
func (s *State) applyRulesToWindow(w *Window) (moves []WindowMove, displayChanged bool) {
	res := s.Rules.Resolve(w.RuleAttrs())

	if res.TagsSet {
		w.Tags = Tags(res.Tags)
	}

	if res.DisplaySet {
		if id, ok := s.ResolveDisplaySpecifier(res.Display); ok && id != w.Display {
			w.Display = id
			displayChanged = true
		}
	}

	if res.FloatSet {
		w.Floating = res.Float
	} else if w.NonNormal() {
		w.Floating = true
	}

	if res.PositionSet {
		w.Frame.X, w.Frame.Y = res.X, res.Y
	}
	if res.DimensionsSet {
		w.Frame.Width, w.Frame.Height = res.Width, res.Height
	}

	if d, ok := s.Displays[w.Display]; ok {
		visible := w.Tags.Intersects(d.VisibleTags)
		if !visible && !w.Hidden() {
			saved := w.Frame
			x, y := s.computeHideForWindow(w)
			w.SavedFrame = &saved
			w.Frame.X, w.Frame.Y = x, y
			moves = append(moves, WindowMove{ID: w.ID, PID: w.PID, X: x, Y: y})
		} else if visible && w.Hidden() {
			saved := *w.SavedFrame
			w.Frame = saved
			w.SavedFrame = nil
			moves = append(moves, WindowMove{ID: w.ID, PID: w.PID, X: w.Frame.X, Y: w.Frame.Y})
		}
	}
	return moves, displayChanged
}

// ApplyRulesToNewWindow creates a Window for a freshly observed,
// non-ignored on-screen entry: its display id is derived from its
// frame's centre point (falling back to the focused display if the
// centre lands outside every display), its tags are inherited from the
// target display's visible tags unless a rule overrides them, and any
// rule-supplied position, dimensions, or floating state is applied
// immediately.
func (s *State) ApplyRulesToNewWindow(info platform.WindowInfo, ext platform.ExtendedAttributes) (*Window, []WindowMove) {
	w := &Window{
		ID:               info.ID,
		PID:              info.PID,
		Owner:            info.Owner,
		BundleID:         info.BundleID,
		Title:            info.Title,
		AXID:             ext.AXID,
		Subrole:          ext.Subrole,
		WindowLevel:      ext.WindowLevel,
		CloseButton:      ext.CloseButton,
		FullscreenButton: ext.FullscreenBtn,
		MinimizeButton:   ext.MinimizeBtn,
		ZoomButton:       ext.ZoomButton,
		Frame: Rect{
			X: info.Bounds.X, Y: info.Bounds.Y,
			Width: info.Bounds.Width, Height: info.Bounds.Height,
		},
	}

	w.Display = s.displayForCenter(w.Frame)
	if d, ok := s.Displays[w.Display]; ok {
		w.Tags = d.VisibleTags
	} else {
		w.Tags = DefaultTags
	}

	moves, _ := s.applyRulesToWindow(w)
	s.Windows[w.ID] = w
	s.AddToWindowOrder(w.ID)
	return w, moves
}

// displayForCenter returns the display whose full bounds contain w's
// centre point, falling back to the focused display, then to any
// display, then to the zero value.
func (s *State) displayForCenter(frame Rect) platform.DisplayID {
	cx, cy := frame.Center()
	for id, d := range s.Displays {
		if cx >= d.FullBounds.X && cx < d.FullBounds.Right() && cy >= d.FullBounds.Y && cy < d.FullBounds.Bottom() {
			return id
		}
	}
	if _, ok := s.Displays[s.FocusedDisplay]; ok {
		return s.FocusedDisplay
	}
	for id := range s.Displays {
		return id
	}
	return 0
}

// ApplyRulesToAllWindows re-evaluates the ignore category, plus the
// non-normal-level default layer filter, for every managed and ignored
// window against the current rule table: windows that no longer match an
// ignore rule and aren't held back by the layer filter are promoted to
// managed, and managed windows that now match an ignore rule or have
// lost their matching non-ignore rule are demoted into the ignored set.
// Every other window already managed is re-evaluated for tags, display,
// and floating. Returns the set of displays touched, which the caller
// must retile.
func (s *State) ApplyRulesToAllWindows() (affectedDisplays map[platform.DisplayID]struct{}, moves []WindowMove) {
	affectedDisplays = make(map[platform.DisplayID]struct{})

	for id, iw := range s.Ignored {
		attrs := iw.RuleAttrs()
		if s.Rules.Resolve(attrs).Ignore || s.nonNormalUnmanaged(attrs) {
			continue
		}
		w, wMoves := s.promoteIgnored(iw)
		delete(s.Ignored, id)
		moves = append(moves, wMoves...)
		affectedDisplays[w.Display] = struct{}{}
	}

	for id, w := range s.Windows {
		attrs := w.RuleAttrs()
		if s.Rules.Resolve(attrs).Ignore || s.nonNormalUnmanaged(attrs) {
			s.demoteToIgnored(w)
			delete(s.Windows, id)
			s.RemoveFromWindowOrder(id)
			continue
		}
		prevDisplay := w.Display
		wMoves, displayChanged := s.applyRulesToWindow(w)
		moves = append(moves, wMoves...)
		if displayChanged {
			affectedDisplays[prevDisplay] = struct{}{}
			affectedDisplays[w.Display] = struct{}{}
		} else if len(wMoves) > 0 {
			affectedDisplays[w.Display] = struct{}{}
		}
	}
	return affectedDisplays, moves
}

func (s *State) promoteIgnored(iw *IgnoredWindow) (*Window, []WindowMove) {
	w := &Window{
		ID:               iw.ID,
		PID:              iw.PID,
		Owner:            iw.Owner,
		BundleID:         iw.BundleID,
		Title:            iw.Title,
		AXID:             iw.AXID,
		Subrole:          iw.Subrole,
		WindowLevel:      iw.WindowLevel,
		CloseButton:      iw.CloseButton,
		FullscreenButton: iw.FullscreenButton,
		MinimizeButton:   iw.MinimizeButton,
		ZoomButton:       iw.ZoomButton,
	}
	w.Display = s.displayForCenter(w.Frame)
	if d, ok := s.Displays[w.Display]; ok {
		w.Tags = d.VisibleTags
	} else {
		w.Tags = DefaultTags
	}
	moves, _ := s.applyRulesToWindow(w)
	s.Windows[w.ID] = w
	s.AddToWindowOrder(w.ID)
	return w, moves
}

func (s *State) demoteToIgnored(w *Window) {
	s.Ignored[w.ID] = &IgnoredWindow{
		ID:               w.ID,
		PID:              w.PID,
		Owner:            w.Owner,
		BundleID:         w.BundleID,
		Title:            w.Title,
		AXID:             w.AXID,
		Subrole:          w.Subrole,
		WindowLevel:      w.WindowLevel,
		CloseButton:      w.CloseButton,
		FullscreenButton: w.FullscreenButton,
		MinimizeButton:   w.MinimizeButton,
		ZoomButton:       w.ZoomButton,
	}
}
