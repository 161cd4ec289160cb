package engine

import (
	"context"
	"fmt"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/state"
)

var _ control.Dispatcher = (*Core)(nil)

// Dispatch resolves one command against the current state, applies any
// resulting mutation synchronously, runs the effects the mutation
// produced, and returns the response. Query commands (list-*, get-*)
// never reach the mutating branches below and never produce effects.
func (c *Core) Dispatch(ctx context.Context, req control.Request) control.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.snapshotForDiffLocked()
	defer c.publishDiffLocked(before)

	switch req.Type {
	case control.CmdTagView:
		return c.cmdTagView(ctx, req)
	case control.CmdTagToggle:
		return c.cmdTagToggle(ctx, req)
	case control.CmdTagViewLast:
		return c.cmdTagViewLast(ctx, req)
	case control.CmdWindowMoveToTag:
		return c.cmdWindowMoveToTag(ctx, req)
	case control.CmdWindowToggleTag:
		return c.cmdWindowToggleTag(ctx, req)
	case control.CmdWindowFocus:
		return c.cmdWindowFocus(ctx, req)
	case control.CmdWindowSwap:
		return c.cmdWindowSwap(ctx, req)
	case control.CmdWindowToggleFull:
		return c.cmdWindowToggleFullscreen(ctx, req)
	case control.CmdWindowToggleFloat:
		return c.cmdWindowToggleFloat(ctx, req)
	case control.CmdWindowClose:
		return c.cmdWindowClose(ctx, req)
	case control.CmdOutputFocus:
		return c.cmdOutputFocus(ctx, req)
	case control.CmdOutputSend:
		return c.cmdOutputSend(ctx, req)
	case control.CmdRetile:
		return c.cmdRetile(ctx, req)
	case control.CmdLayoutSetDefault:
		return c.cmdLayoutSetDefault(ctx, req)
	case control.CmdLayoutSet:
		return c.cmdLayoutSet(ctx, req)
	case control.CmdLayoutGet:
		return c.cmdLayoutGet(req)
	case control.CmdLayoutCmd:
		return c.cmdLayoutCmd(ctx, req)
	case control.CmdListWindows:
		return c.cmdListWindows()
	case control.CmdListOutputs:
		return c.cmdListOutputs()
	case control.CmdGetState:
		return control.Response{Type: control.RespState, State: ptrStateView(c.snapshotLocked())}
	case control.CmdExec:
		c.runEffects(ctx, []Effect{{Kind: EffectExecCommand, Command: req.Command, Path: req.Path}})
		return control.Ok()
	case control.CmdExecOrFocus:
		return c.cmdExecOrFocus(ctx, req)
	case control.CmdRuleAdd:
		return c.cmdRuleAdd(ctx, req)
	case control.CmdRuleDel:
		return c.cmdRuleDel(ctx, req)
	case control.CmdListRules:
		return control.Response{Type: control.RespRules, Rules: c.state.Rules.Rules()}
	case control.CmdSetCursorWarp:
		return c.cmdSetCursorWarp(req)
	case control.CmdSetOuterGap:
		return c.cmdSetOuterGap(ctx, req)
	case control.CmdQuit:
		c.requestQuit()
		return control.Ok()
	case control.CmdBind:
		return c.cmdBind(req)
	case control.CmdUnbind:
		return c.cmdUnbind(req)
	case control.CmdListBindings:
		return control.Response{Type: control.RespBindings, Bindings: control.BindingsFromTable(c.hotkeys.Bindings())}
	case control.CmdSetExecPath:
		c.layouts.SetExecPath(req.ExecPath)
		return control.Ok()
	case control.CmdAddExecPath:
		return c.cmdAddExecPath(req)
	case control.CmdExecPath:
		return control.Response{Type: control.RespExecPath, ExecPath: c.layouts.ExecPath()}
	default:
		return control.Err(fmt.Errorf("unknown command: %s", req.Type))
	}
}

func ptrStateView(v control.StateView) *control.StateView { return &v }

// resolveDisplay resolves a display specifier, falling back to the
// currently focused display when spec is empty.
func (c *Core) resolveDisplay(spec string) (platform.DisplayID, bool) {
	if spec == "" {
		_, ok := c.state.Displays[c.state.FocusedDisplay]
		return c.state.FocusedDisplay, ok
	}
	return c.state.ResolveDisplaySpecifier(spec)
}

// resolveWindow resolves a window id, falling back to the currently
// focused window when id is zero.
func (c *Core) resolveWindow(id platform.WindowID) (*state.Window, bool) {
	if id == 0 {
		id = c.state.FocusedWindow
	}
	w, ok := c.state.Windows[id]
	return w, ok
}

func (c *Core) cmdTagView(ctx context.Context, req control.Request) control.Response {
	id, ok := c.resolveDisplay(req.Display)
	if !ok {
		return control.Err(fmt.Errorf("no such display: %q", req.Display))
	}
	d := c.state.Displays[id]
	c.state.PreviousTags[id] = d.VisibleTags
	d.VisibleTags = state.Tag(req.Tag)
	moves := c.state.ComputeLayoutChangesForDisplay(id)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{id}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{id}},
	})
	return control.Ok()
}

func (c *Core) cmdTagToggle(ctx context.Context, req control.Request) control.Response {
	id, ok := c.resolveDisplay(req.Display)
	if !ok {
		return control.Err(fmt.Errorf("no such display: %q", req.Display))
	}
	d := c.state.Displays[id]
	toggled := d.VisibleTags.Toggled(req.Tag)
	if toggled == 0 {
		return control.Ok() // refuse to hide every tag on a display
	}
	c.state.PreviousTags[id] = d.VisibleTags
	d.VisibleTags = toggled
	moves := c.state.ComputeLayoutChangesForDisplay(id)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{id}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{id}},
	})
	return control.Ok()
}

func (c *Core) cmdTagViewLast(ctx context.Context, req control.Request) control.Response {
	id, ok := c.resolveDisplay(req.Display)
	if !ok {
		return control.Err(fmt.Errorf("no such display: %q", req.Display))
	}
	d := c.state.Displays[id]
	prev, ok := c.state.PreviousTags[id]
	if !ok {
		return control.Ok()
	}
	c.state.PreviousTags[id] = d.VisibleTags
	d.VisibleTags = prev
	moves := c.state.ComputeLayoutChangesForDisplay(id)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{id}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{id}},
	})
	return control.Ok()
}

func (c *Core) cmdWindowMoveToTag(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	w.Tags = state.Tag(req.Tag)
	moves := c.state.ComputeLayoutChangesForDisplay(w.Display)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{w.Display}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{w.Display}},
	})
	return control.Ok()
}

func (c *Core) cmdWindowToggleTag(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	w.Tags = w.Tags.Toggled(req.Tag)
	moves := c.state.ComputeLayoutChangesForDisplay(w.Display)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{w.Display}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{w.Display}},
	})
	return control.Ok()
}

func (c *Core) cmdWindowFocus(ctx context.Context, req control.Request) control.Response {
	from, ok := c.state.Windows[c.state.FocusedWindow]
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	target, ok := c.directionalOrStackTarget(from, req.Direction)
	if !ok {
		return control.Ok() // no candidate in that direction; a no-op, not an error
	}
	c.runEffects(ctx, []Effect{
		{Kind: EffectFocusWindow, WindowID: target.ID, PID: target.PID, IsOutputChange: target.Display != from.Display},
	})
	return control.Ok()
}

func (c *Core) directionalOrStackTarget(from *state.Window, direction string) (*state.Window, bool) {
	switch direction {
	case control.DirLeft, control.DirRight, control.DirUp, control.DirDown:
		return c.state.DirectionalTarget(from, direction)
	default:
		return c.state.NextPrevTarget(from.ID, direction)
	}
}

func (c *Core) cmdWindowSwap(ctx context.Context, req control.Request) control.Response {
	from, ok := c.state.Windows[c.state.FocusedWindow]
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	target, ok := c.directionalOrStackTarget(from, req.Direction)
	if !ok {
		return control.Ok()
	}
	from.Frame, target.Frame = target.Frame, from.Frame
	from.Display, target.Display = target.Display, from.Display
	displays := []platform.DisplayID{from.Display}
	if target.Display != from.Display {
		displays = append(displays, target.Display)
	}
	c.runEffects(ctx, []Effect{{Kind: EffectRetileDisplays, Displays: displays}})
	return control.Ok()
}

func (c *Core) cmdWindowToggleFullscreen(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	w.Fullscreen = !w.Fullscreen
	if w.Fullscreen {
		d, ok := c.state.Displays[w.Display]
		if !ok {
			return control.Ok()
		}
		w.Frame = d.TileableRect(c.state.OuterGap)
		c.runEffects(ctx, []Effect{
			{Kind: EffectMoveWindowToPosition, WindowID: w.ID, PID: w.PID, X: w.Frame.X, Y: w.Frame.Y},
			{Kind: EffectSetWindowDimensions, WindowID: w.ID, PID: w.PID, Width: w.Frame.Width, Height: w.Frame.Height},
		})
		return control.Ok()
	}
	c.runEffects(ctx, []Effect{{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{w.Display}}})
	return control.Ok()
}

func (c *Core) cmdWindowToggleFloat(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	w.Floating = !w.Floating
	if !w.Floating {
		c.runEffects(ctx, []Effect{{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{w.Display}}})
	}
	return control.Ok()
}

func (c *Core) cmdWindowClose(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	if err := c.wm.CloseWindow(ctx, w.PID, w.ID); err != nil {
		return control.Err(err)
	}
	delete(c.state.Windows, w.ID)
	c.state.RemoveFromWindowOrder(w.ID)
	moves := c.state.ComputeLayoutChangesForDisplay(w.Display)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{w.Display}},
		{Kind: EffectFocusVisibleWindowIfNeeded, Displays: []platform.DisplayID{w.Display}},
	})
	return control.Ok()
}

func (c *Core) cmdOutputFocus(ctx context.Context, req control.Request) control.Response {
	id, w, err := c.state.FocusOutput(req.Direction)
	if err != nil {
		if _, empty := err.(state.ErrEmptyDisplay); empty {
			c.state.FocusedDisplay = id
			return control.Ok()
		}
		return control.Err(err)
	}
	c.state.FocusedDisplay = id
	c.runEffects(ctx, []Effect{{Kind: EffectFocusWindow, WindowID: w.ID, PID: w.PID, IsOutputChange: true}})
	return control.Ok()
}

func (c *Core) cmdOutputSend(ctx context.Context, req control.Request) control.Response {
	w, ok := c.resolveWindow(req.WindowID)
	if !ok {
		return control.Err(fmt.Errorf("no focused window"))
	}
	if id, ok := c.state.ResolveDisplaySpecifier(req.Display); ok {
		old := w.Display
		w.OrphanedFrom = nil
		w.Display = id
		if d, dok := c.state.Displays[id]; dok {
			w.Frame.X, w.Frame.Y = d.UsableBounds.X, d.UsableBounds.Y
		}
		c.state.AddToWindowOrder(w.ID)
		moves := c.state.ComputeLayoutChangesForDisplay(id)
		c.runEffects(ctx, []Effect{
			{Kind: EffectApplyWindowMoves, Moves: moves},
			{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{old, id}},
		})
		return control.Ok()
	}
	target, moves := c.state.SendToOutput(w, req.Display)
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{target}},
	})
	return control.Ok()
}

func (c *Core) cmdRetile(ctx context.Context, req control.Request) control.Response {
	if req.Display == "" {
		c.retileAllLocked(ctx)
		return control.Ok()
	}
	id, ok := c.resolveDisplay(req.Display)
	if !ok {
		return control.Err(fmt.Errorf("no such display: %q", req.Display))
	}
	c.runEffects(ctx, []Effect{{Kind: EffectRetileDisplays, Displays: []platform.DisplayID{id}}})
	return control.Ok()
}

func (c *Core) cmdLayoutSetDefault(ctx context.Context, req control.Request) control.Response {
	c.state.DefaultLayout = req.Layout
	c.retileAllLocked(ctx)
	return control.Ok()
}

func (c *Core) cmdLayoutSet(ctx context.Context, req control.Request) control.Response {
	c.state.TagLayouts[req.Tag] = req.Layout
	c.retileAllLocked(ctx)
	return control.Ok()
}

func (c *Core) cmdLayoutGet(req control.Request) control.Response {
	if layout, ok := c.state.TagLayouts[req.Tag]; ok {
		return control.Response{Type: control.RespLayout, Layout: layout}
	}
	return control.Response{Type: control.RespLayout, Layout: c.state.DefaultLayout}
}

// cmdLayoutCmd sends a command to a layout engine. With no explicit
// layout name it targets the focused display's current engine and
// retiles that display afterward; with an explicit name it targets that
// engine directly and does not retile.
func (c *Core) cmdLayoutCmd(ctx context.Context, req control.Request) control.Response {
	layout := req.Layout
	if layout == "" {
		id, ok := c.resolveDisplay("")
		if !ok {
			return control.Err(fmt.Errorf("no focused display"))
		}
		d := c.state.Displays[id]
		layout = c.state.LayoutForTags(d, d.VisibleTags)
		c.runEffects(ctx, []Effect{{Kind: EffectSendLayoutCommand, Layout: layout, Cmd: req.Cmd, Args: req.Args}})
		c.retileDisplayLocked(ctx, id)
		return control.Ok()
	}
	c.runEffects(ctx, []Effect{{Kind: EffectSendLayoutCommand, Layout: layout, Cmd: req.Cmd, Args: req.Args}})
	return control.Ok()
}

func (c *Core) cmdListWindows() control.Response {
	s := c.snapshotLocked()
	return control.Response{Type: control.RespWindows, Windows: s.Windows}
}

func (c *Core) cmdListOutputs() control.Response {
	s := c.snapshotLocked()
	return control.Response{Type: control.RespOutputs, Outputs: s.Outputs}
}

func (c *Core) cmdExecOrFocus(ctx context.Context, req control.Request) control.Response {
	for _, w := range c.state.Windows {
		if w.BundleID == req.AppID {
			c.runEffects(ctx, []Effect{{Kind: EffectFocusWindow, WindowID: w.ID, PID: w.PID}})
			return control.Ok()
		}
	}
	c.runEffects(ctx, []Effect{{Kind: EffectExecCommand, Command: req.Command, Path: req.Path}})
	return control.Ok()
}

func (c *Core) cmdRuleAdd(ctx context.Context, req control.Request) control.Response {
	if req.Rule == nil {
		return control.Err(fmt.Errorf("missing rule"))
	}
	c.state.Rules.Add(*req.Rule)
	c.applyRuleChange(ctx)
	return control.Ok()
}

func (c *Core) cmdRuleDel(ctx context.Context, req control.Request) control.Response {
	if !c.state.Rules.Remove(req.RuleName) {
		return control.Err(fmt.Errorf("no such rule: %q", req.RuleName))
	}
	c.applyRuleChange(ctx)
	return control.Ok()
}

func (c *Core) applyRuleChange(ctx context.Context) {
	affected, moves := c.state.ApplyRulesToAllWindows()
	c.recordRuleEvaluationsLocked()
	displays := make([]platform.DisplayID, 0, len(affected))
	for id := range affected {
		displays = append(displays, id)
	}
	c.runEffects(ctx, []Effect{
		{Kind: EffectApplyWindowMoves, Moves: moves},
		{Kind: EffectRetileDisplays, Displays: displays},
	})
}

func (c *Core) cmdSetCursorWarp(req control.Request) control.Response {
	switch state.CursorWarpMode(req.CursorWarp) {
	case state.CursorWarpDisabled, state.CursorWarpOnFocusChange, state.CursorWarpOnOutputChange:
		c.state.CursorWarpMode = state.CursorWarpMode(req.CursorWarp)
		return control.Ok()
	default:
		return control.Err(fmt.Errorf("unknown cursor warp mode: %q", req.CursorWarp))
	}
}

func (c *Core) cmdSetOuterGap(ctx context.Context, req control.Request) control.Response {
	if req.Gap == nil {
		return control.Err(fmt.Errorf("missing gap"))
	}
	c.state.OuterGap = state.Insets{Top: req.Gap.Top, Right: req.Gap.Right, Bottom: req.Gap.Bottom, Left: req.Gap.Left}
	c.retileAllLocked(ctx)
	return control.Ok()
}

func (c *Core) cmdBind(req control.Request) control.Response {
	chord, err := hotkey.ParseChord(req.Chord)
	if err != nil {
		return control.Err(err)
	}
	c.hotkeys.Bind(chord, req.Command)
	return control.Ok()
}

func (c *Core) cmdUnbind(req control.Request) control.Response {
	chord, err := hotkey.ParseChord(req.Chord)
	if err != nil {
		return control.Err(err)
	}
	if !c.hotkeys.Unbind(chord) {
		return control.Err(fmt.Errorf("no such binding: %q", req.Chord))
	}
	return control.Ok()
}

func (c *Core) cmdAddExecPath(req control.Request) control.Response {
	switch req.ExecPathMode {
	case "append":
		c.layouts.AppendExecPath(req.ExecPathDir)
	default:
		c.layouts.PrependExecPath(req.ExecPathDir)
	}
	return control.Ok()
}
