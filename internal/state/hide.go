package state

// hasRightAdjacentDisplay reports whether some other display's bounds
// share a vertical range with d and sit immediately to its right,
// making the right edge unsafe to hide a window against.
func hasRightAdjacentDisplay(d Rect, others []Rect) bool {
	for _, o := range others {
		if o.X == d.Right() && rangesOverlap(d.Y, d.Bottom(), o.Y, o.Bottom()) {
			return true
		}
	}
	return false
}

func hasLeftAdjacentDisplay(d Rect, others []Rect) bool {
	for _, o := range others {
		if o.Right() == d.X && rangesOverlap(d.Y, d.Bottom(), o.Y, o.Bottom()) {
			return true
		}
	}
	return false
}

func hasBottomAdjacentDisplay(d Rect, others []Rect) bool {
	for _, o := range others {
		if o.Y == d.Bottom() && rangesOverlap(d.X, d.Right(), o.X, o.Right()) {
			return true
		}
	}
	return false
}

func hasTopAdjacentDisplay(d Rect, others []Rect) bool {
	for _, o := range others {
		if o.Bottom() == d.Y && rangesOverlap(d.X, d.Right(), o.X, o.Right()) {
			return true
		}
	}
	return false
}

// computeGlobalHidePosition returns a position that is safely off every
// display in the union: one pixel inside the bottom-right corner of the
// union's bounding box. Used as a last resort when no per-display corner
// is available (e.g. a single-display setup is itself disconnecting).
func computeGlobalHidePosition(allFullBounds []Rect) (x, y int) {
	if len(allFullBounds) == 0 {
		return -1, -1
	}
	maxX, maxY := allFullBounds[0].Right(), allFullBounds[0].Bottom()
	for _, r := range allFullBounds[1:] {
		if r.Right() > maxX {
			maxX = r.Right()
		}
		if r.Bottom() > maxY {
			maxY = r.Bottom()
		}
	}
	return maxX - 1, maxY - 1
}

// computeHidePositionForDisplay returns the top-left corner at which a
// window of the given size should be placed so that it is hidden off
// display d but still has exactly one pixel inside d's full bounds,
// guarding against the corner being swallowed by an adjacent display.
// Priority: bottom-right, bottom-left, top-right, top-left; if every
// corner is unsafe, bottom-right is used anyway (a single-display setup
// has no adjacent displays at all, so this is the common case).
func computeHidePositionForDisplay(d Rect, others []Rect, windowWidth, windowHeight int) (x, y int) {
	right := hasRightAdjacentDisplay(d, others)
	left := hasLeftAdjacentDisplay(d, others)
	bottom := hasBottomAdjacentDisplay(d, others)
	top := hasTopAdjacentDisplay(d, others)

	switch {
	case !right && !bottom:
		return d.Right() - 1, d.Bottom() - 1
	case !left && !bottom:
		return d.X - windowWidth + 1, d.Bottom() - 1
	case !right && !top:
		return d.Right() - 1, d.Y - windowHeight + 1
	case !left && !top:
		return d.X - windowWidth + 1, d.Y - windowHeight + 1
	default:
		return d.Right() - 1, d.Bottom() - 1
	}
}
