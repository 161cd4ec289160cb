// Package control implements the daemon's two Unix-domain sockets: a
// command socket (one JSON request per connection, one JSON response
// back) and an event socket (a subscription envelope followed by a
// stream of JSON events until the client disconnects).
package control

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/rules"
)

const (
	// CommandSocketFileName is the command socket's filename within the
	// runtime directory.
	CommandSocketFileName = "command.sock"
	// EventSocketFileName is the event-stream socket's filename.
	EventSocketFileName = "events.sock"
	// PIDFileName guards against double startup.
	PIDFileName = "yashikid.pid"
)

// Command verb names, mirroring the CLI's own verb set one-for-one.
const (
	CmdTagView             = "tag-view"
	CmdTagToggle           = "tag-toggle"
	CmdTagViewLast         = "tag-view-last"
	CmdWindowMoveToTag     = "window-move-to-tag"
	CmdWindowToggleTag     = "window-toggle-tag"
	CmdWindowFocus         = "window-focus"
	CmdWindowSwap          = "window-swap"
	CmdWindowToggleFull    = "window-toggle-fullscreen"
	CmdWindowToggleFloat   = "window-toggle-float"
	CmdWindowClose         = "window-close"
	CmdOutputFocus         = "output-focus"
	CmdOutputSend          = "output-send"
	CmdRetile              = "retile"
	CmdLayoutSetDefault    = "layout-set-default"
	CmdLayoutSet           = "layout-set"
	CmdLayoutGet           = "layout-get"
	CmdLayoutCmd           = "layout-cmd"
	CmdListWindows         = "list-windows"
	CmdListOutputs         = "list-outputs"
	CmdGetState            = "get-state"
	CmdExec                = "exec"
	CmdExecOrFocus         = "exec-or-focus"
	CmdRuleAdd             = "rule-add"
	CmdRuleDel             = "rule-del"
	CmdListRules           = "list-rules"
	CmdSetCursorWarp       = "set-cursor-warp"
	CmdSetOuterGap         = "set-outer-gap"
	CmdQuit                = "quit"
	CmdBind                = "bind"
	CmdUnbind              = "unbind"
	CmdListBindings        = "list-bindings"
	CmdSetExecPath         = "set-exec-path"
	CmdAddExecPath         = "add-exec-path"
	CmdExecPath            = "exec-path"
)

// Direction names used by window-focus, window-swap, and output-focus.
const (
	DirLeft  = "left"
	DirRight = "right"
	DirUp    = "up"
	DirDown  = "down"
	DirNext  = "next"
	DirPrev  = "prev"
)

// Request is the command socket's tagged union: Type selects which of
// the remaining fields the dispatcher reads. Every other field is the
// zero value when not applicable to Type.
type Request struct {
	Type string `json:"type"`

	Tag int `json:"tag,omitempty"`

	WindowID  platform.WindowID `json:"windowId,omitempty"`
	Display   string            `json:"display,omitempty"` // id or name specifier
	Direction string            `json:"direction,omitempty"`

	Layout string   `json:"layout,omitempty"`
	Cmd    string   `json:"cmd,omitempty"`
	Args   []string `json:"args,omitempty"`

	Command string `json:"command,omitempty"`
	Path    string `json:"path,omitempty"`
	AppID   string `json:"appId,omitempty"` // exec-or-focus's focus match

	Rule     *rules.Rule `json:"rule,omitempty"`
	RuleName string      `json:"ruleName,omitempty"`

	CursorWarp string `json:"cursorWarp,omitempty"`
	Gap        *Gap   `json:"gap,omitempty"`

	Chord        string   `json:"chord,omitempty"`
	ExecPath     []string `json:"execPath,omitempty"`
	ExecPathDir  string   `json:"execPathDir,omitempty"`
	ExecPathMode string   `json:"execPathMode,omitempty"` // "prepend" | "append"
}

// Gap is the CSS-style four-sided outer gap, as sent by set-outer-gap.
type Gap struct {
	Top, Right, Bottom, Left int
}

// Response is the command socket's tagged union reply.
type Response struct {
	Type string `json:"type"`

	Error string `json:"error,omitempty"`

	Windows  []WindowView  `json:"windows,omitempty"`
	Outputs  []DisplayView `json:"outputs,omitempty"`
	State    *StateView    `json:"state,omitempty"`
	Rules    []rules.Rule  `json:"rules,omitempty"`
	Bindings []BindingView `json:"bindings,omitempty"`
	Layout   string        `json:"layout,omitempty"`
	ExecPath []string      `json:"execPath,omitempty"`
}

// Response type discriminators.
const (
	RespOk       = "ok"
	RespError    = "error"
	RespWindows  = "windows"
	RespOutputs  = "outputs"
	RespState    = "state"
	RespRules    = "rules"
	RespBindings = "bindings"
	RespLayout   = "layout"
	RespExecPath = "execPath"
)

// Ok is the bare-acknowledgement response.
func Ok() Response { return Response{Type: RespOk} }

// Err wraps an error as an error response.
func Err(err error) Response {
	if err == nil {
		return Ok()
	}
	return Response{Type: RespError, Error: err.Error()}
}

// WindowView is the wire-serializable projection of a managed window.
type WindowView struct {
	ID         platform.WindowID  `json:"id"`
	PID        int                `json:"pid"`
	Owner      string             `json:"owner"`
	BundleID   string             `json:"bundleId"`
	Title      string             `json:"title"`
	Tags       uint8              `json:"tags"`
	Display    platform.DisplayID `json:"display"`
	Hidden     bool               `json:"hidden"`
	Floating   bool               `json:"floating"`
	Fullscreen bool               `json:"fullscreen"`
	X          int                `json:"x"`
	Y          int                `json:"y"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
}

// DisplayView is the wire-serializable projection of a physical output.
type DisplayView struct {
	ID            platform.DisplayID `json:"id"`
	Name          string             `json:"name"`
	VisibleTags   uint8              `json:"visibleTags"`
	CurrentLayout string             `json:"currentLayout"`
	X             int                `json:"x"`
	Y             int                `json:"y"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
}

// StateView is the full get-state snapshot.
type StateView struct {
	Windows        []WindowView       `json:"windows"`
	Outputs        []DisplayView      `json:"outputs"`
	FocusedWindow  platform.WindowID  `json:"focusedWindow"`
	FocusedDisplay platform.DisplayID `json:"focusedDisplay"`
	DefaultLayout  string             `json:"defaultLayout"`
}

// BindingView is the wire-serializable projection of one hotkey binding.
type BindingView struct {
	Chord   string `json:"chord"`
	Command string `json:"command"`
}

// BindingsFromTable converts a hotkey table snapshot into wire views.
func BindingsFromTable(bindings []hotkey.Binding) []BindingView {
	out := make([]BindingView, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, BindingView{Chord: b.Chord.String(), Command: b.Command})
	}
	return out
}

// runtimeDir resolves the directory the daemon's sockets and PID file
// live in, honouring YASHIKID_RUNTIME_DIR for tests and overrides.
func runtimeDir() (string, error) {
	if env := os.Getenv("YASHIKID_RUNTIME_DIR"); env != "" {
		return env, nil
	}
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "tilewm"), nil
}

// DefaultCommandSocketPath returns the command socket's path.
func DefaultCommandSocketPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CommandSocketFileName), nil
}

// DefaultEventSocketPath returns the event socket's path.
func DefaultEventSocketPath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, EventSocketFileName), nil
}

// DefaultPIDFilePath returns the PID file's path.
func DefaultPIDFilePath() (string, error) {
	dir, err := runtimeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, PIDFileName), nil
}

// roundTripDeadline is a five-second round-trip bound. Nothing reads it;
// the client package applies its own defaultTimeout of the same length.
const roundTripDeadline = 5 * time.Second
