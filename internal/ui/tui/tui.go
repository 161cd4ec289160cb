// Package tui renders a polling textual dashboard of the daemon's state,
// used by yashikictl's tui subcommand.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/control/client"
)

const (
	defaultRefresh = 500 * time.Millisecond
	titleWidth     = 48
)

// Renderer periodically polls the daemon and renders a textual dashboard.
type Renderer struct {
	Client  *client.Client
	Writer  io.Writer
	Refresh time.Duration
}

// New returns a renderer configured with sensible defaults.
func New(cli *client.Client, w io.Writer) *Renderer {
	return &Renderer{Client: cli, Writer: w, Refresh: defaultRefresh}
}

// Run starts the render loop until the context is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Client == nil {
		return fmt.Errorf("tui renderer requires a control client")
	}

	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	r.render(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.render(ctx)
		}
	}
}

func (r *Renderer) render(ctx context.Context) {
	state, err := r.Client.GetState(ctx)

	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString("yashiki inspector — Ctrl+C to exit\n")
	buf.WriteString(time.Now().Format(time.RFC1123))
	buf.WriteString("\n\n")

	if err != nil {
		buf.WriteString(fmt.Sprintf("error: %v\n", err))
		fmt.Fprint(r.Writer, buf.String())
		return
	}

	buf.WriteString(fmt.Sprintf("Default layout: %s\n", state.DefaultLayout))
	buf.WriteString(fmt.Sprintf("Focused window: %d  Focused output: %d\n\n", state.FocusedWindow, state.FocusedDisplay))
	buf.WriteString(renderOutputs(state))
	buf.WriteString(renderWindows(state))
	fmt.Fprint(r.Writer, buf.String())
}

func renderOutputs(s control.StateView) string {
	var b strings.Builder
	b.WriteString("Outputs:\n")
	outputs := append([]control.DisplayView(nil), s.Outputs...)
	if len(outputs) == 0 {
		b.WriteString("  (none)\n\n")
		return b.String()
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].ID < outputs[j].ID })
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tTags\tLayout\tGeometry")
	for _, o := range outputs {
		mark := ""
		if o.ID == s.FocusedDisplay {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%s\n", o.ID, mark, o.Name, formatTags(o.VisibleTags), o.CurrentLayout, formatRect(o.X, o.Y, o.Width, o.Height))
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

func renderWindows(s control.StateView) string {
	var b strings.Builder
	b.WriteString("Windows:\n")
	windows := append([]control.WindowView(nil), s.Windows...)
	if len(windows) == 0 {
		b.WriteString("  (none)\n\n")
		return b.String()
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Display == windows[j].Display {
			return windows[i].ID < windows[j].ID
		}
		return windows[i].Display < windows[j].Display
	})
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOwner\tTitle\tOutput\tTags\tState")
	for _, w := range windows {
		mark := ""
		if w.ID == s.FocusedWindow {
			mark = "*"
		}
		title := w.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%d\t%s\t%s\n", w.ID, mark, w.Owner, truncate(title, titleWidth), w.Display, formatTags(w.Tags), windowState(w))
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

func formatTags(mask uint8) string {
	var tags []string
	for n := 1; n <= 8; n++ {
		if mask&(1<<(n-1)) != 0 {
			tags = append(tags, fmt.Sprintf("%d", n))
		}
	}
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, "+")
}

func formatRect(x, y, w, h int) string {
	return fmt.Sprintf("%dx%d @ %d,%d", w, h, x, y)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

func windowState(w control.WindowView) string {
	var parts []string
	if w.Hidden {
		parts = append(parts, "hidden")
	}
	if w.Floating {
		parts = append(parts, "floating")
	}
	if w.Fullscreen {
		parts = append(parts, "fullscreen")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
