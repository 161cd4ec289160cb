// Package client talks to a running daemon over its command and event
// sockets.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/rules"
)

// defaultTimeout bounds how long Do waits for a response when the
// caller's context carries no deadline of its own.
const defaultTimeout = 5 * time.Second

// Client sends one command request per call and reads its response.
type Client struct {
	socketPath string
}

// New creates a client for the command socket at path. An empty path
// resolves to the default runtime location.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultCommandSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Do sends req and returns the daemon's response, or a transport error
// if the socket couldn't be reached or the response couldn't be
// decoded. A response of type "error" is NOT turned into a Go error —
// callers that care inspect resp.Error themselves, matching the
// dispatcher's "always produces a response" guarantee.
func (c *Client) Do(ctx context.Context, req control.Request) (control.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return control.Response{}, fmt.Errorf("dial command socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return control.Response{}, fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return control.Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) simple(ctx context.Context, req control.Request) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Type == control.RespError {
		return errors.New(resp.Error)
	}
	return nil
}

func (c *Client) TagView(ctx context.Context, tag int) error {
	return c.simple(ctx, control.Request{Type: control.CmdTagView, Tag: tag})
}

func (c *Client) TagToggle(ctx context.Context, tag int) error {
	return c.simple(ctx, control.Request{Type: control.CmdTagToggle, Tag: tag})
}

func (c *Client) TagViewLast(ctx context.Context) error {
	return c.simple(ctx, control.Request{Type: control.CmdTagViewLast})
}

func (c *Client) WindowMoveToTag(ctx context.Context, tag int) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowMoveToTag, Tag: tag})
}

func (c *Client) WindowToggleTag(ctx context.Context, tag int) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowToggleTag, Tag: tag})
}

func (c *Client) WindowFocus(ctx context.Context, direction string) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowFocus, Direction: direction})
}

func (c *Client) WindowSwap(ctx context.Context, direction string) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowSwap, Direction: direction})
}

func (c *Client) WindowToggleFullscreen(ctx context.Context) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowToggleFull})
}

func (c *Client) WindowToggleFloat(ctx context.Context) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowToggleFloat})
}

func (c *Client) WindowClose(ctx context.Context) error {
	return c.simple(ctx, control.Request{Type: control.CmdWindowClose})
}

func (c *Client) OutputFocus(ctx context.Context, direction string) error {
	return c.simple(ctx, control.Request{Type: control.CmdOutputFocus, Direction: direction})
}

func (c *Client) OutputSend(ctx context.Context, display string) error {
	return c.simple(ctx, control.Request{Type: control.CmdOutputSend, Display: display})
}

func (c *Client) Retile(ctx context.Context, display string) error {
	return c.simple(ctx, control.Request{Type: control.CmdRetile, Display: display})
}

func (c *Client) LayoutSetDefault(ctx context.Context, layout string) error {
	return c.simple(ctx, control.Request{Type: control.CmdLayoutSetDefault, Layout: layout})
}

func (c *Client) LayoutSet(ctx context.Context, tag int, layout string) error {
	return c.simple(ctx, control.Request{Type: control.CmdLayoutSet, Tag: tag, Layout: layout})
}

func (c *Client) LayoutGet(ctx context.Context, tag int) (string, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdLayoutGet, Tag: tag})
	if err != nil {
		return "", err
	}
	if resp.Type == control.RespError {
		return "", errors.New(resp.Error)
	}
	return resp.Layout, nil
}

func (c *Client) LayoutCmd(ctx context.Context, layout, cmd string, args []string) error {
	return c.simple(ctx, control.Request{Type: control.CmdLayoutCmd, Layout: layout, Cmd: cmd, Args: args})
}

func (c *Client) ListWindows(ctx context.Context) ([]control.WindowView, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdListWindows})
	if err != nil {
		return nil, err
	}
	if resp.Type == control.RespError {
		return nil, errors.New(resp.Error)
	}
	return resp.Windows, nil
}

func (c *Client) ListOutputs(ctx context.Context) ([]control.DisplayView, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdListOutputs})
	if err != nil {
		return nil, err
	}
	if resp.Type == control.RespError {
		return nil, errors.New(resp.Error)
	}
	return resp.Outputs, nil
}

func (c *Client) GetState(ctx context.Context) (control.StateView, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdGetState})
	if err != nil {
		return control.StateView{}, err
	}
	if resp.Type == control.RespError {
		return control.StateView{}, errors.New(resp.Error)
	}
	if resp.State == nil {
		return control.StateView{}, nil
	}
	return *resp.State, nil
}

func (c *Client) Exec(ctx context.Context, command, path string) error {
	return c.simple(ctx, control.Request{Type: control.CmdExec, Command: command, Path: path})
}

func (c *Client) ExecOrFocus(ctx context.Context, command, path, appID string) error {
	return c.simple(ctx, control.Request{Type: control.CmdExecOrFocus, Command: command, Path: path, AppID: appID})
}

func (c *Client) RuleAdd(ctx context.Context, rule rules.Rule) error {
	return c.simple(ctx, control.Request{Type: control.CmdRuleAdd, Rule: &rule})
}

func (c *Client) RuleDel(ctx context.Context, name string) error {
	return c.simple(ctx, control.Request{Type: control.CmdRuleDel, RuleName: name})
}

func (c *Client) ListRules(ctx context.Context) ([]rules.Rule, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdListRules})
	if err != nil {
		return nil, err
	}
	if resp.Type == control.RespError {
		return nil, errors.New(resp.Error)
	}
	return resp.Rules, nil
}

func (c *Client) SetCursorWarp(ctx context.Context, mode string) error {
	return c.simple(ctx, control.Request{Type: control.CmdSetCursorWarp, CursorWarp: mode})
}

func (c *Client) SetOuterGap(ctx context.Context, gap control.Gap) error {
	return c.simple(ctx, control.Request{Type: control.CmdSetOuterGap, Gap: &gap})
}

func (c *Client) Quit(ctx context.Context) error {
	return c.simple(ctx, control.Request{Type: control.CmdQuit})
}

func (c *Client) Bind(ctx context.Context, chord, command string) error {
	return c.simple(ctx, control.Request{Type: control.CmdBind, Chord: chord, Command: command})
}

func (c *Client) Unbind(ctx context.Context, chord string) error {
	return c.simple(ctx, control.Request{Type: control.CmdUnbind, Chord: chord})
}

func (c *Client) ListBindings(ctx context.Context) ([]control.BindingView, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdListBindings})
	if err != nil {
		return nil, err
	}
	if resp.Type == control.RespError {
		return nil, errors.New(resp.Error)
	}
	return resp.Bindings, nil
}

func (c *Client) SetExecPath(ctx context.Context, path []string) error {
	return c.simple(ctx, control.Request{Type: control.CmdSetExecPath, ExecPath: path})
}

func (c *Client) AddExecPath(ctx context.Context, dir, mode string) error {
	return c.simple(ctx, control.Request{Type: control.CmdAddExecPath, ExecPathDir: dir, ExecPathMode: mode})
}

func (c *Client) ExecPath(ctx context.Context) ([]string, error) {
	resp, err := c.Do(ctx, control.Request{Type: control.CmdExecPath})
	if err != nil {
		return nil, err
	}
	if resp.Type == control.RespError {
		return nil, errors.New(resp.Error)
	}
	return resp.ExecPath, nil
}
