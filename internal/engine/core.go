// Package engine owns the process-wide state and turns commands, OS
// events, and timer ticks into window moves, focus changes, and layout
// round-trips. It is the only package permitted to mutate a *state.State.
package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/metrics"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/rules"
	"github.com/tilewm/tilewm/internal/state"
	"github.com/tilewm/tilewm/internal/util"
)

// Core ties together process-wide state, the platform facades, the
// layout-engine manager, and the hotkey table. Every exported method
// that touches state takes Core's lock, serialising command dispatch,
// OS-event application, and timer bookkeeping the way the distilled
// specification's single-threaded core loop intends, without requiring
// command handling to be routed through a dedicated channel.
type Core struct {
	mu sync.Mutex

	state *state.State

	ws platform.WindowSystem
	wm platform.WindowManipulator

	layouts  *layoutengine.Manager
	hotkeys  *hotkey.Table
	tap      hotkey.Tap
	hub      *control.Hub
	metrics  *metrics.Collector
	logger   *util.Logger
	evalLog  *evaluationLog
	mainID   platform.DisplayID
	haveMain bool

	quit     chan struct{}
	quitOnce sync.Once
}

// New constructs a Core with an empty process-wide state.
func New(ws platform.WindowSystem, wm platform.WindowManipulator, layouts *layoutengine.Manager, hotkeys *hotkey.Table, tap hotkey.Tap, hub *control.Hub, metricsCollector *metrics.Collector, logger *util.Logger) *Core {
	return &Core{
		state:   state.New(),
		ws:      ws,
		wm:      wm,
		layouts: layouts,
		hotkeys: hotkeys,
		tap:     tap,
		hub:     hub,
		metrics: metricsCollector,
		logger:  logger,
		evalLog: newEvaluationLog(0),
		quit:    make(chan struct{}),
	}
}

// Hub returns the event hub commands and the core loop publish to.
func (c *Core) Hub() *control.Hub { return c.hub }

// requestQuit signals the core loop to stop, idempotently. Caller must
// hold c.mu (it is only ever called from within Dispatch).
func (c *Core) requestQuit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Done returns a channel closed once a quit command has been dispatched.
func (c *Core) Done() <-chan struct{} { return c.quit }

// ApplySeed replaces the rule table, default layout, tag overrides,
// gaps, and cursor-warp mode from a declarative configuration seed
// (either the start-up config file or a hot reload), then re-evaluates
// every window against the new rule table.
func (c *Core) ApplySeed(rulesTable []rules.Rule, defaultLayout string, tagLayouts map[state.Tags]string, outerGap state.Insets, cursorWarp state.CursorWarpMode, execPath []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.snapshotForDiffLocked()
	defer c.publishDiffLocked(before)

	c.state.Rules = rules.NewTable(rulesTable)
	if defaultLayout != "" {
		c.state.DefaultLayout = defaultLayout
	}
	for tag, layout := range tagLayouts {
		if n := tag.First(); n > 0 {
			c.state.TagLayouts[n] = layout
		}
	}
	c.state.OuterGap = outerGap
	c.state.CursorWarpMode = cursorWarp
	if len(execPath) > 0 {
		c.layouts.SetExecPath(execPath)
	}
	affected, moves := c.state.ApplyRulesToAllWindows()
	c.recordRuleEvaluationsLocked()
	c.applyWindowMovesLocked(context.Background(), moves)
	for id := range affected {
		c.retileDisplayLocked(context.Background(), id)
	}
}

// snapshotLocked builds a StateView. Caller must hold c.mu.
func (c *Core) snapshotLocked() control.StateView {
	windows := make([]control.WindowView, 0, len(c.state.Windows))
	for _, w := range c.state.Windows {
		windows = append(windows, windowView(w))
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].ID < windows[j].ID })

	outputs := make([]control.DisplayView, 0, len(c.state.Displays))
	for _, d := range c.state.Displays {
		outputs = append(outputs, displayView(d))
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })

	return control.StateView{
		Windows:        windows,
		Outputs:        outputs,
		FocusedWindow:  c.state.FocusedWindow,
		FocusedDisplay: c.state.FocusedDisplay,
		DefaultLayout:  c.state.DefaultLayout,
	}
}

// Snapshot returns the current StateView, used by the event server's
// snapshot-on-subscribe feature.
func (c *Core) Snapshot() control.StateView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func windowView(w *state.Window) control.WindowView {
	return control.WindowView{
		ID:         w.ID,
		PID:        w.PID,
		Owner:      w.Owner,
		BundleID:   w.BundleID,
		Title:      w.Title,
		Tags:       uint8(w.Tags),
		Display:    w.Display,
		Hidden:     w.Hidden(),
		Floating:   w.Floating,
		Fullscreen: w.Fullscreen,
		X:          w.Frame.X,
		Y:          w.Frame.Y,
		Width:      w.Frame.Width,
		Height:     w.Frame.Height,
	}
}

func displayView(d *state.Display) control.DisplayView {
	return control.DisplayView{
		ID:            d.ID,
		Name:          d.Name,
		VisibleTags:   uint8(d.VisibleTags),
		CurrentLayout: d.CurrentLayout,
		X:             d.UsableBounds.X,
		Y:             d.UsableBounds.Y,
		Width:         d.UsableBounds.Width,
		Height:        d.UsableBounds.Height,
	}
}
