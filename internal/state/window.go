package state

import (
	"time"

	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/rules"
)

// Window is a managed entity tracked by the core. See the package's
// invariants: every Window.Display must exist in State.Displays, and a
// Window is hidden iff SavedFrame is non-nil.
type Window struct {
	ID       platform.WindowID
	PID      int
	Owner    string // application display name
	BundleID string
	Title    string

	Tags Tags

	Frame      Rect  // current frame, in world coordinates
	SavedFrame *Rect // present iff hidden by tag-view

	Display platform.DisplayID

	Floating   bool
	Fullscreen bool

	AXID        string
	Subrole     string
	WindowLevel int

	CloseButton      platform.ButtonState
	FullscreenButton platform.ButtonState
	MinimizeButton   platform.ButtonState
	ZoomButton       platform.ButtonState

	// OrphanedFrom is set when the window's display disconnects; it
	// names the display id the window is waiting to return to.
	OrphanedFrom *platform.DisplayID

	FocusedAt time.Time
}

// Hidden reports whether the window is currently hidden by tag-view.
func (w *Window) Hidden() bool { return w.SavedFrame != nil }

// IsTiled reports whether the window participates in tiling: visible,
// not floating, and not fullscreen.
func (w *Window) IsTiled() bool {
	return !w.Hidden() && !w.Floating && !w.Fullscreen
}

// NonNormal reports whether the window's level marks it as something
// other than a normal top-level window (dialogs, panels, popups, ...).
func (w *Window) NonNormal() bool { return w.WindowLevel != 0 }

// RuleAttrs extracts the plain-value attributes the rules package
// matches against, keeping state decoupled from rules' representation
// of a window.
func (w *Window) RuleAttrs() rules.Attrs {
	return rules.Attrs{
		AppName:          w.Owner,
		AppID:            w.BundleID,
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

// IgnoredWindow is a window the rules engine has excluded from
// management, retained with enough identity and attributes to be
// re-evaluated on every sync pass without re-querying AX.
type IgnoredWindow struct {
	ID       platform.WindowID
	PID      int
	Owner    string
	BundleID string
	Title    string

	AXID        string
	Subrole     string
	WindowLevel int

	CloseButton      platform.ButtonState
	FullscreenButton platform.ButtonState
	MinimizeButton   platform.ButtonState
	ZoomButton       platform.ButtonState
}

// RuleAttrs extracts the plain-value attributes the rules package
// matches against.
func (w *IgnoredWindow) RuleAttrs() rules.Attrs {
	return rules.Attrs{
		AppName:          w.Owner,
		AppID:            w.BundleID,
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

// windowInfoRuleAttrs builds the rule-matching attributes for a window
// the platform has just reported, before a Window or IgnoredWindow
// exists for it.
func windowInfoRuleAttrs(info platform.WindowInfo, ext platform.ExtendedAttributes) rules.Attrs {
	return rules.Attrs{
		AppName:          info.Owner,
		AppID:            info.BundleID,
		Title:            info.Title,
		AXID:             ext.AXID,
		Subrole:          ext.Subrole,
		WindowLevel:      ext.WindowLevel,
		CloseButton:      ext.CloseButton,
		FullscreenButton: ext.FullscreenBtn,
		MinimizeButton:   ext.MinimizeBtn,
		ZoomButton:       ext.ZoomButton,
	}
}
