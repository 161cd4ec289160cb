package state

// Rect is an integer rectangle in the top-left-origin coordinate space of
// the full display union.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Right returns the x coordinate one past the rectangle's right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the y coordinate one past the rectangle's bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Center returns the rectangle's center point.
func (r Rect) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Intersects reports whether two rectangles share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	if r.Width <= 0 || r.Height <= 0 || o.Width <= 0 || o.Height <= 0 {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Insets is a CSS-style four-sided inset, used for the outer gap.
type Insets struct {
	Top, Right, Bottom, Left int
}

// Shrink returns the rectangle inset by the given amounts on each side.
func (r Rect) Shrink(in Insets) Rect {
	out := Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Left - in.Right,
		Height: r.Height - in.Top - in.Bottom,
	}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// rangesOverlap reports whether two half-open 1D ranges overlap.
func rangesOverlap(aLo, aHi, bLo, bHi int) bool {
	return aLo < bHi && bLo < aHi
}
