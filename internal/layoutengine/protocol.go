// Package layoutengine implements the core's side of the line-delimited
// JSON protocol spoken to external layout-engine subprocesses: framing,
// lazy spawn, exec-path discovery, and round-trip dispatch.
package layoutengine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tilewm/tilewm/internal/platform"
)

// LayoutRequest asks an engine to tile the given windows within a
// width x height rectangle, in the engine's own coordinate space (the
// caller translates to world coordinates by the display's offset).
type LayoutRequest struct {
	Width   int                 `json:"width"`
	Height  int                 `json:"height"`
	Windows []platform.WindowID `json:"windows"`
}

// CommandRequest is an engine-specific verb, used for focus
// notifications (cmd "focus-changed") and for layout-cmd IPC commands.
type CommandRequest struct {
	Cmd  string   `json:"cmd"`
	Args []string `json:"args"`
}

// encodeRequest frames a request as the single-key tagged object the
// protocol expects: {"Layout":{...}} or {"Command":{...}}.
func encodeRequest(tag string, body any) ([]byte, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	out := append([]byte(`{"`+tag+`":`), buf...)
	out = append(out, '}')
	return out, nil
}

// WindowRect is one engine-computed placement.
type WindowRect struct {
	ID     platform.WindowID `json:"id"`
	X      int               `json:"x"`
	Y      int               `json:"y"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
}

// LayoutResult is the engine's reply to a LayoutRequest: one rect per
// requested window id.
type LayoutResult struct {
	Windows []WindowRect `json:"windows"`
}

type errorBody struct {
	Message string `json:"message"`
}

// ResponseKind discriminates the four shapes a reply line can take.
type ResponseKind int

const (
	ResponseLayout ResponseKind = iota
	ResponseOk
	ResponseNeedsRetile
	ResponseError
)

// Response is a decoded engine reply.
type Response struct {
	Kind   ResponseKind
	Layout LayoutResult
	ErrMsg string
}

// decodeResponse parses one protocol line. Bare-string replies ("Ok",
// "NeedsRetile") and single-key tagged objects ("Layout", "Error") are
// both accepted, matching §6 of the protocol.
func decodeResponse(line []byte) (Response, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Response{}, fmt.Errorf("layoutengine: empty reply line")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Response{}, fmt.Errorf("layoutengine: decode string reply: %w", err)
		}
		switch s {
		case "Ok":
			return Response{Kind: ResponseOk}, nil
		case "NeedsRetile":
			return Response{Kind: ResponseNeedsRetile}, nil
		default:
			return Response{}, fmt.Errorf("layoutengine: unknown string reply %q", s)
		}
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &tagged); err != nil {
		return Response{}, fmt.Errorf("layoutengine: decode reply: %w", err)
	}
	if raw, ok := tagged["Layout"]; ok {
		var result LayoutResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return Response{}, fmt.Errorf("layoutengine: decode Layout reply: %w", err)
		}
		return Response{Kind: ResponseLayout, Layout: result}, nil
	}
	if raw, ok := tagged["Error"]; ok {
		var body errorBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return Response{}, fmt.Errorf("layoutengine: decode Error reply: %w", err)
		}
		return Response{Kind: ResponseError, ErrMsg: body.Message}, nil
	}
	return Response{}, fmt.Errorf("layoutengine: reply has no recognised tag")
}
