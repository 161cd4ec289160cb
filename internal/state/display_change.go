package state

import "github.com/tilewm/tilewm/internal/platform"

// DisplayChangeResult reports which displays the caller must retile
// after HandleDisplayChange, plus the window moves that hiding/showing
// across the affected displays already produced.
type DisplayChangeResult struct {
	Disconnected []platform.DisplayID
	Connected    []platform.DisplayID
	Retile       map[platform.DisplayID]struct{}
	WindowMoves  []WindowMove
}

// HandleDisplayChange reconciles the OS-reported display list against
// state, running the disconnect branch for ids that vanished and the
// reconnect branch for ids that appeared.
func (s *State) HandleDisplayChange(observed []platform.DisplayInfo) DisplayChangeResult {
	result := DisplayChangeResult{Retile: make(map[platform.DisplayID]struct{})}

	observedByID := make(map[platform.DisplayID]platform.DisplayInfo, len(observed))
	var mainID platform.DisplayID
	var haveMain bool
	for _, d := range observed {
		observedByID[d.ID] = d
		if d.IsMain {
			mainID, haveMain = d.ID, true
		}
	}

	for id := range s.Displays {
		if _, present := observedByID[id]; !present {
			result.Disconnected = append(result.Disconnected, id)
		}
	}
	for id := range observedByID {
		if _, present := s.Displays[id]; !present {
			result.Connected = append(result.Connected, id)
		}
	}

	if len(result.Disconnected) > 0 {
		s.handleDisplaysDisconnected(result.Disconnected, mainID, haveMain, &result)
	}

	// Refresh geometry for displays that persist across the change, so
	// a resolution change doesn't leave the tileable rect stale.
	for id, info := range observedByID {
		if d, ok := s.Displays[id]; ok {
			d.Name = info.Name
			d.FullBounds = toRect(info.FullBounds)
			d.UsableBounds = toRect(info.UsableBounds)
		}
	}

	if len(result.Connected) > 0 {
		s.handleDisplaysConnected(result.Connected, observedByID, &result)
	}

	if _, ok := s.Displays[s.FocusedDisplay]; !ok {
		if id, ok := s.MainOrFirstDisplay(mainID, haveMain); ok {
			s.FocusedDisplay = id
		}
	}

	return result
}

func toRect(b platform.Bounds) Rect {
	return Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

func (s *State) handleDisplaysDisconnected(disconnected []platform.DisplayID, mainID platform.DisplayID, haveMain bool, result *DisplayChangeResult) {
	gone := make(map[platform.DisplayID]struct{}, len(disconnected))
	for _, id := range disconnected {
		gone[id] = struct{}{}
	}

	remainingIDs := make([]platform.DisplayID, 0, len(s.Displays))
	for id := range s.Displays {
		if _, isGone := gone[id]; !isGone {
			remainingIDs = append(remainingIDs, id)
		}
	}
	sortDisplayIDs(remainingIDs)

	fallback := func() (platform.DisplayID, bool) {
		if haveMain {
			for _, id := range remainingIDs {
				if id == mainID {
					return id, true
				}
			}
		}
		if len(remainingIDs) == 0 {
			return 0, false
		}
		return remainingIDs[0], true
	}

	for _, w := range s.Windows {
		if _, affected := gone[w.Display]; !affected {
			continue
		}
		oldDisplay := w.Display
		if w.OrphanedFrom == nil {
			od := oldDisplay
			w.OrphanedFrom = &od
		}
		if target, ok := fallback(); ok {
			w.Display = target
			result.Retile[target] = struct{}{}
		}
	}

	for _, id := range disconnected {
		if d, ok := s.Displays[id]; ok {
			s.SavedDisplayTags[id] = d.VisibleTags
		}
	}

	if _, focusedGone := gone[s.FocusedDisplay]; focusedGone {
		if target, ok := fallback(); ok {
			s.FocusedDisplay = target
		}
	}

	for _, id := range disconnected {
		delete(s.Displays, id)
	}
}

func (s *State) handleDisplaysConnected(connected []platform.DisplayID, observedByID map[platform.DisplayID]platform.DisplayInfo, result *DisplayChangeResult) {
	for _, id := range connected {
		info := observedByID[id]
		tags := DefaultTags
		if saved, ok := s.SavedDisplayTags[id]; ok {
			tags = saved
			delete(s.SavedDisplayTags, id)
		}
		s.Displays[id] = &Display{
			ID:           id,
			Name:         info.Name,
			FullBounds:   toRect(info.FullBounds),
			UsableBounds: toRect(info.UsableBounds),
			VisibleTags:  tags,
		}
		result.Retile[id] = struct{}{}
	}

	reconnected := make(map[platform.DisplayID]struct{}, len(connected))
	for _, id := range connected {
		reconnected[id] = struct{}{}
	}

	for _, w := range s.Windows {
		if w.OrphanedFrom == nil {
			continue
		}
		if _, back := reconnected[*w.OrphanedFrom]; !back {
			continue
		}
		w.Display = *w.OrphanedFrom
		w.OrphanedFrom = nil
		result.Retile[w.Display] = struct{}{}
	}

	for id := range result.Retile {
		result.WindowMoves = append(result.WindowMoves, s.ComputeLayoutChangesForDisplay(id)...)
	}
}

// ErrEmptyDisplay is returned by FocusOutput when the target display has
// no focusable window.
type ErrEmptyDisplay struct{ Display platform.DisplayID }

func (e ErrEmptyDisplay) Error() string { return "display has no focusable window" }

// FocusOutput cycles displays by sorted id in the given direction
// ("next" or "prev") and returns the top-of-stack window on the target
// display.
func (s *State) FocusOutput(direction string) (platform.DisplayID, *Window, error) {
	ids := s.SortedDisplayIDs()
	if len(ids) == 0 {
		return 0, nil, ErrEmptyDisplay{}
	}
	idx := 0
	for i, id := range ids {
		if id == s.FocusedDisplay {
			idx = i
			break
		}
	}
	if direction == "prev" {
		idx = (idx - 1 + len(ids)) % len(ids)
	} else {
		idx = (idx + 1) % len(ids)
	}
	target := ids[idx]
	windows := s.VisibleFocusableWindowsOnDisplay(target)
	if len(windows) == 0 {
		return target, nil, ErrEmptyDisplay{Display: target}
	}
	return target, windows[0], nil
}

// SendToOutput moves w to the next/prev display by sorted id, clears
// any orphan intent, and relocates its frame to the target display's
// origin. Returns the moves produced by retiling the affected display.
func (s *State) SendToOutput(w *Window, direction string) (platform.DisplayID, []WindowMove) {
	ids := s.SortedDisplayIDs()
	idx := 0
	for i, id := range ids {
		if id == w.Display {
			idx = i
			break
		}
	}
	if direction == "prev" {
		idx = (idx - 1 + len(ids)) % len(ids)
	} else {
		idx = (idx + 1) % len(ids)
	}
	target := ids[idx]

	w.OrphanedFrom = nil
	w.Display = target
	if d, ok := s.Displays[target]; ok {
		w.Frame.X, w.Frame.Y = d.UsableBounds.X, d.UsableBounds.Y
		if w.SavedFrame != nil {
			w.SavedFrame.X, w.SavedFrame.Y = d.UsableBounds.X, d.UsableBounds.Y
		}
	}
	s.AddToWindowOrder(w.ID)

	return target, s.ComputeLayoutChangesForDisplay(target)
}
