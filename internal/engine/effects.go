package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/state"
)

// EffectKind discriminates the effect union a command handler returns
// alongside its response. Most handlers route their side effects through
// one of these kinds; a few call the platform or the retile path
// directly (window-close closes the window, layout-cmd retiles the
// focused display, and the commands that affect every display call
// retileAllLocked).
type EffectKind int

const (
	EffectApplyWindowMoves EffectKind = iota
	EffectFocusWindow
	EffectMoveWindowToPosition
	EffectSetWindowDimensions
	EffectRetile
	EffectRetileDisplays
	EffectSendLayoutCommand
	EffectExecCommand
	EffectUpdateLayoutExecPath
	EffectFocusVisibleWindowIfNeeded
)

// Effect carries whichever fields its Kind needs; the rest are zero.
type Effect struct {
	Kind EffectKind

	Moves []state.WindowMove

	WindowID       platform.WindowID
	PID            int
	IsOutputChange bool

	X, Y          int
	Width, Height int

	Displays []platform.DisplayID

	Layout string
	Cmd    string
	Args   []string

	Command string
	Path    string

	ExecPathEntries []string
}

// runEffects executes effects in order. Caller must hold c.mu: every
// effect either touches the platform facades (safe to call while
// holding the lock, mirroring how the rest of Core's command handling
// already serialises OS calls) or recurses into another locked helper.
func (c *Core) runEffects(ctx context.Context, effects []Effect) {
	for _, e := range effects {
		c.runEffect(ctx, e)
	}
}

func (c *Core) runEffect(ctx context.Context, e Effect) {
	switch e.Kind {
	case EffectApplyWindowMoves:
		c.applyWindowMovesLocked(ctx, e.Moves)
	case EffectFocusWindow:
		c.focusWindowLocked(ctx, e.WindowID, e.PID, e.IsOutputChange)
	case EffectMoveWindowToPosition:
		if err := c.wm.MoveWindow(ctx, e.PID, e.WindowID, e.X, e.Y); err != nil {
			c.logger.Warnf("move window %d: %v", e.WindowID, err)
		}
	case EffectSetWindowDimensions:
		if err := c.wm.ResizeWindow(ctx, e.PID, e.WindowID, e.Width, e.Height); err != nil {
			c.logger.Warnf("resize window %d: %v", e.WindowID, err)
		}
	case EffectRetile:
		c.retileDisplayLocked(ctx, c.state.FocusedDisplay)
	case EffectRetileDisplays:
		for _, id := range e.Displays {
			c.retileDisplayLocked(ctx, id)
		}
	case EffectSendLayoutCommand:
		if _, err := c.layouts.Command(ctx, e.Layout, layoutengine.CommandRequest{Cmd: e.Cmd, Args: e.Args}); err != nil {
			c.logger.Warnf("layout command %s/%s: %v", e.Layout, e.Cmd, err)
		}
	case EffectExecCommand:
		if err := c.wm.Exec(ctx, e.Command); err != nil {
			c.logger.Warnf("exec %q: %v", e.Command, err)
		}
	case EffectUpdateLayoutExecPath:
		c.layouts.SetExecPath(e.ExecPathEntries)
	case EffectFocusVisibleWindowIfNeeded:
		c.focusVisibleWindowIfNeededLocked(ctx, e.Displays)
	}
}

// applyWindowMovesLocked sends each move to the window manipulator. It
// does not update state.Window.Frame: the caller (state package code)
// already did that synchronously before producing the moves.
func (c *Core) applyWindowMovesLocked(ctx context.Context, moves []state.WindowMove) {
	for _, m := range moves {
		if err := c.wm.MoveWindow(ctx, m.PID, m.ID, m.X, m.Y); err != nil {
			c.logger.Warnf("move window %d: %v", m.ID, err)
		}
	}
}

// focusWindowLocked raises a window, updates the focus-intent bookkeeping
// that suppresses the spurious OS callback it provokes, and warps the
// cursor if the active mode calls for it.
func (c *Core) focusWindowLocked(ctx context.Context, id platform.WindowID, pid int, isOutputChange bool) {
	w, ok := c.state.Windows[id]
	if !ok {
		return
	}
	if err := c.wm.RaiseWindow(ctx, pid, id); err != nil {
		c.logger.Warnf("raise window %d: %v", id, err)
		return
	}
	c.state.SetFocusIntent(w, time.Now())
	if state.ShouldWarpCursor(c.state.CursorWarpMode, isOutputChange) {
		cx, cy := w.Frame.Center()
		if err := c.wm.WarpCursor(ctx, cx, cy); err != nil {
			c.logger.Warnf("warp cursor: %v", err)
		}
	}
	c.notifyFocusChangedLocked(ctx, w)
}

// notifyFocusChangedLocked sends the focus-changed command to the
// engine currently tiling w's display, retiling if the engine asks for
// it. A dead or unreachable engine is logged and otherwise ignored:
// missing this notification only affects that engine's internal state,
// never this core's.
func (c *Core) notifyFocusChangedLocked(ctx context.Context, w *state.Window) {
	d, ok := c.state.Displays[w.Display]
	if !ok {
		return
	}
	layout := c.state.LayoutForTags(d, d.VisibleTags)
	resp, err := c.layouts.Command(ctx, layout, layoutengine.CommandRequest{
		Cmd:  "focus-changed",
		Args: []string{fmt.Sprint(w.ID)},
	})
	if err != nil {
		c.logger.Warnf("focus-changed notify %s: %v", layout, err)
		return
	}
	if resp.Kind == layoutengine.ResponseNeedsRetile {
		c.retileDisplayLocked(ctx, w.Display)
	}
}

// focusVisibleWindowIfNeededLocked re-focuses the top-of-stack visible
// window on each named display when the currently focused window is no
// longer a valid target (closed, hidden, or moved away), used after
// window-close and tag-view changes.
func (c *Core) focusVisibleWindowIfNeededLocked(ctx context.Context, displays []platform.DisplayID) {
	for _, id := range displays {
		if id != c.state.FocusedDisplay {
			continue
		}
		if w, ok := c.state.Windows[c.state.FocusedWindow]; ok && !w.Hidden() {
			continue
		}
		candidates := c.state.VisibleFocusableWindowsOnDisplay(id)
		if len(candidates) == 0 {
			continue
		}
		c.focusWindowLocked(ctx, candidates[0].ID, candidates[0].PID, false)
	}
}
