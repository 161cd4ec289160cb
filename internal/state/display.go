package state

import "github.com/tilewm/tilewm/internal/platform"

// Display is a physical output tracked by the core.
type Display struct {
	ID   platform.DisplayID
	Name string

	FullBounds   Rect
	UsableBounds Rect

	VisibleTags Tags

	CurrentLayout  string
	PreviousLayout string
}

// TileableRect is the display's usable bounds minus the process-wide
// outer gap, applied by the core and never by a layout engine.
func (d *Display) TileableRect(outerGap Insets) Rect {
	return d.UsableBounds.Shrink(outerGap)
}
