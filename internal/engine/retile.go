package engine

import (
	"context"

	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/state"
)

// retileDisplayLocked runs one tiling round trip for a display: it
// collects the display's tiled windows in focus-stack order, asks the
// display's current layout engine to place them within the tileable
// rect, translates the engine's reply from the engine's own coordinate
// space back into world coordinates, and dispatches the resulting
// moves. A display with a fullscreen window occupying it skips the
// tiling round trip and instead re-applies the current tileable rect to
// that window, so it keeps tracking the outer gap and display bounds
// across every retile trigger, not just the toggle that first made it
// fullscreen. A display with no tiled windows otherwise is a no-op.
// Caller must hold c.mu.
func (c *Core) retileDisplayLocked(ctx context.Context, id platform.DisplayID) {
	d, ok := c.state.Displays[id]
	if !ok {
		return
	}

	if fs := fullscreenWindow(c.state.VisibleFocusableWindowsOnDisplay(id)); fs != nil {
		c.resizeFullscreenWindowLocked(ctx, fs, d)
		return
	}

	windows := c.state.VisibleWindowsOnDisplay(id)
	if len(windows) == 0 {
		return
	}

	rect := d.TileableRect(c.state.OuterGap)
	layoutName := c.state.LayoutForTags(d, d.VisibleTags)

	ids := make([]platform.WindowID, len(windows))
	byID := make(map[platform.WindowID]*windowRef, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
		byID[w.ID] = &windowRef{pid: w.PID}
	}

	result, err := c.layouts.Layout(ctx, layoutName, layoutengine.LayoutRequest{
		Width:   rect.Width,
		Height:  rect.Height,
		Windows: ids,
	})
	if err != nil {
		c.logger.Warnf("retile display %d via %s: %v", id, layoutName, err)
		return
	}

	for _, placement := range result.Windows {
		ref, ok := byID[placement.ID]
		if !ok {
			continue
		}
		x, y := rect.X+placement.X, rect.Y+placement.Y
		if err := c.wm.MoveWindow(ctx, ref.pid, placement.ID, x, y); err != nil {
			c.logger.Warnf("move window %d: %v", placement.ID, err)
			continue
		}
		if err := c.wm.ResizeWindow(ctx, ref.pid, placement.ID, placement.Width, placement.Height); err != nil {
			c.logger.Warnf("resize window %d: %v", placement.ID, err)
			continue
		}
		if w, ok := c.state.Windows[placement.ID]; ok {
			w.Frame.X, w.Frame.Y = x, y
			w.Frame.Width, w.Frame.Height = placement.Width, placement.Height
		}
	}
}

type windowRef struct {
	pid int
}

func fullscreenWindow(windows []*state.Window) *state.Window {
	for _, w := range windows {
		if w.Fullscreen {
			return w
		}
	}
	return nil
}

// resizeFullscreenWindowLocked re-applies the display's current
// tileable rect (usable bounds minus outer gap) to a fullscreen window,
// so a later gap/resolution change or rule reload doesn't leave it
// holding a stale frame from whenever it was toggled fullscreen.
func (c *Core) resizeFullscreenWindowLocked(ctx context.Context, w *state.Window, d *state.Display) {
	rect := d.TileableRect(c.state.OuterGap)
	if w.Frame == rect {
		return
	}
	if err := c.wm.MoveWindow(ctx, w.PID, w.ID, rect.X, rect.Y); err != nil {
		c.logger.Warnf("move fullscreen window %d: %v", w.ID, err)
		return
	}
	if err := c.wm.ResizeWindow(ctx, w.PID, w.ID, rect.Width, rect.Height); err != nil {
		c.logger.Warnf("resize fullscreen window %d: %v", w.ID, err)
		return
	}
	w.Frame = rect
}

// retileAllLocked retiles every known display. Used at startup, after a
// sync pass that added or removed windows, and by the commands whose
// effect spans every display. Caller must hold c.mu.
func (c *Core) retileAllLocked(ctx context.Context) {
	for id := range c.state.Displays {
		c.retileDisplayLocked(ctx, id)
	}
}
