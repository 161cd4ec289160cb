package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/hotkey"
)

// tickInterval is how often the run loop polls the platform for display
// changes, re-checks AX liveness, and rebuilds a dirty hotkey table.
const tickInterval = 50 * time.Millisecond

// Run is the core's single event-loop thread. It owns every mutation of
// state: OS polling and hotkey dispatch happen only here, and command
// dispatch (on other goroutines, via Dispatch) is serialised against
// this loop by c.mu rather than routed through a channel, grounded in
// how the command server already calls into a mutex-guarded core.
func (c *Core) Run(ctx context.Context) error {
	c.mu.Lock()
	if err := c.syncAllLocked(ctx); err != nil {
		c.logger.Warnf("initial sync failed: %v", err)
	}
	c.retileAllLocked(ctx)
	c.mu.Unlock()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.quit:
			return nil
		case ev, ok := <-c.tap.Events():
			if !ok {
				continue
			}
			c.handleHotkeyEvent(ctx, ev)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Core) handleHotkeyEvent(ctx context.Context, ev hotkey.Event) {
	req, err := parseHotkeyCommand(ev.Command)
	if err != nil {
		c.logger.Warnf("hotkey command %q: %v", ev.Command, err)
		return
	}
	c.Dispatch(ctx, req)
}

// tick runs the periodic bookkeeping pass: full state sync against the
// platform, display reconciliation, a focus-callback poll, and a hotkey
// table rebuild if bindings changed since the last tick. Everything here
// runs under c.mu, the same lock Dispatch holds, so a tick and a command
// can never interleave mid-mutation.
func (c *Core) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.syncAllLocked(ctx); err != nil {
		c.logger.Warnf("sync failed: %v", err)
	}
	c.pollDisplaysLocked(ctx)
	c.pollFocusLocked(ctx)

	if c.hotkeys.TakeDirty() {
		if err := c.tap.Rebuild(ctx, c.hotkeys.Bindings()); err != nil {
			c.logger.Warnf("hotkey rebuild: %v", err)
		}
	}
}

func (c *Core) syncAllLocked(ctx context.Context) error {
	// Displays are reconciled first so windows discovered in the same
	// pass are assigned to a display the state already knows.
	c.pollDisplaysLocked(ctx)

	before := c.snapshotForDiffLocked()
	defer c.publishDiffLocked(before)

	result, err := c.state.SyncAll(ctx, c.ws)
	if err != nil {
		return err
	}
	if result.Changed {
		c.runEffects(ctx, []Effect{{Kind: EffectApplyWindowMoves, Moves: result.WindowMoves}})
		c.retileAllLocked(ctx)
	} else if len(result.WindowMoves) > 0 {
		c.runEffects(ctx, []Effect{{Kind: EffectApplyWindowMoves, Moves: result.WindowMoves}})
	}
	return nil
}

func (c *Core) pollDisplaysLocked(ctx context.Context) {
	before := c.snapshotForDiffLocked()
	defer c.publishDiffLocked(before)

	infos, err := c.ws.ListDisplays(ctx)
	if err != nil {
		c.logger.Warnf("list displays: %v", err)
		return
	}
	result := c.state.HandleDisplayChange(infos)
	if len(result.Disconnected) == 0 && len(result.Connected) == 0 {
		return
	}
	c.runEffects(ctx, []Effect{{Kind: EffectApplyWindowMoves, Moves: result.WindowMoves}})
	for id := range result.Retile {
		c.retileDisplayLocked(ctx, id)
	}
}

func (c *Core) pollFocusLocked(ctx context.Context) {
	before := c.snapshotForDiffLocked()
	defer c.publishDiffLocked(before)

	pid, id, axOK, err := c.ws.FocusedWindow(ctx)
	if err != nil {
		return
	}
	outcome := c.state.ReconcileExternalFocus(pid, id, axOK, time.Now())
	if outcome.Spurious {
		if w, ok := c.state.Windows[outcome.IntendedID]; ok {
			c.focusWindowLocked(ctx, w.ID, w.PID, false)
		}
		return
	}
	if outcome.TagSwitched {
		c.runEffects(ctx, []Effect{{Kind: EffectApplyWindowMoves, Moves: outcome.Moves}})
		c.retileDisplayLocked(ctx, outcome.Display)
	}
}

// parseHotkeyCommand turns the opaque command string a chord is bound to
// into a dispatchable request, using the same verb vocabulary as the
// command socket. Unrecognised verbs or malformed argument counts are
// reported as errors rather than silently ignored, since a typo in a
// config's hotkey table should surface in the log.
func parseHotkeyCommand(cmd string) (control.Request, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return control.Request{}, fmt.Errorf("empty command")
	}
	verb, args := fields[0], fields[1:]

	needArgs := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s: want %d argument(s), got %d", verb, n, len(args))
		}
		return nil
	}
	atoi := func(s string) (int, error) { return strconv.Atoi(s) }

	switch verb {
	case control.CmdTagView, control.CmdTagToggle, control.CmdWindowMoveToTag, control.CmdWindowToggleTag:
		if err := needArgs(1); err != nil {
			return control.Request{}, err
		}
		tag, err := atoi(args[0])
		if err != nil {
			return control.Request{}, err
		}
		return control.Request{Type: verb, Tag: tag}, nil
	case control.CmdTagViewLast, control.CmdWindowToggleFull, control.CmdWindowToggleFloat,
		control.CmdWindowClose, control.CmdRetile, control.CmdQuit:
		return control.Request{Type: verb}, nil
	case control.CmdWindowFocus, control.CmdWindowSwap, control.CmdOutputFocus:
		if err := needArgs(1); err != nil {
			return control.Request{}, err
		}
		return control.Request{Type: verb, Direction: args[0]}, nil
	case control.CmdOutputSend:
		if err := needArgs(1); err != nil {
			return control.Request{}, err
		}
		return control.Request{Type: verb, Display: args[0]}, nil
	case control.CmdLayoutSetDefault:
		if err := needArgs(1); err != nil {
			return control.Request{}, err
		}
		return control.Request{Type: verb, Layout: args[0]}, nil
	case control.CmdExec:
		return control.Request{Type: verb, Command: strings.Join(args, " ")}, nil
	default:
		return control.Request{}, fmt.Errorf("unknown hotkey command verb %q", verb)
	}
}
