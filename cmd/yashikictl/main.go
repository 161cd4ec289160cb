// Command yashikictl is the control-socket client: a thin CLI over
// internal/control/client plus an interactive dashboard and an event
// stream tail.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/control/client"
	"github.com/tilewm/tilewm/internal/ui/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	fs := flag.NewFlagSet("yashikictl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "path to the command socket")
	timeout := fs.Duration("timeout", 3*time.Second, "control request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <command> [args]\n\n", fs.Name())
		fmt.Fprintln(fs.Output(), "Commands:")
		for _, line := range []string{
			"tag-view <n>", "tag-toggle <n>", "tag-view-last",
			"window-move-to-tag <n>", "window-toggle-tag <n>",
			"window-focus <dir>", "window-swap <dir>",
			"window-toggle-fullscreen", "window-toggle-float", "window-close",
			"output-focus <dir>", "output-send <dir|name>", "retile [display]",
			"layout-set-default <name>", "layout-set <tag> <name>", "layout-get <tag>",
			"layout-cmd <layout> <cmd> [args...]",
			"list-windows", "list-outputs", "get-state",
			"exec <command>", "rule-del <name>", "list-rules",
			"set-cursor-warp <mode>", "quit",
			"bind <chord> <command>", "unbind <chord>", "list-bindings",
			"add-exec-path <dir> [prepend|append]", "exec-path",
			"subscribe [category]", "tui",
		} {
			fmt.Fprintf(fs.Output(), "  %s\n", line)
		}
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	cli, err := client.New(*socket)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	if args[0] == "tui" {
		return runTUI(cli)
	}
	if args[0] == "subscribe" {
		return runSubscribe(*socket, args[1:])
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	return dispatch(ctx, cli, args)
}

func dispatch(ctx context.Context, cli *client.Client, args []string) error {
	verb, rest := args[0], args[1:]
	switch verb {
	case "tag-view":
		n, err := tagArg(rest)
		if err != nil {
			return err
		}
		return cli.TagView(ctx, n)
	case "tag-toggle":
		n, err := tagArg(rest)
		if err != nil {
			return err
		}
		return cli.TagToggle(ctx, n)
	case "tag-view-last":
		return cli.TagViewLast(ctx)
	case "window-move-to-tag":
		n, err := tagArg(rest)
		if err != nil {
			return err
		}
		return cli.WindowMoveToTag(ctx, n)
	case "window-toggle-tag":
		n, err := tagArg(rest)
		if err != nil {
			return err
		}
		return cli.WindowToggleTag(ctx, n)
	case "window-focus":
		return requireOneArg(rest, "direction", cli.WindowFocus, ctx)
	case "window-swap":
		return requireOneArg(rest, "direction", cli.WindowSwap, ctx)
	case "window-toggle-fullscreen":
		return cli.WindowToggleFullscreen(ctx)
	case "window-toggle-float":
		return cli.WindowToggleFloat(ctx)
	case "window-close":
		return cli.WindowClose(ctx)
	case "output-focus":
		return requireOneArg(rest, "direction", cli.OutputFocus, ctx)
	case "output-send":
		return requireOneArg(rest, "display", cli.OutputSend, ctx)
	case "retile":
		display := ""
		if len(rest) > 0 {
			display = rest[0]
		}
		return cli.Retile(ctx, display)
	case "layout-set-default":
		return requireOneArg(rest, "layout", cli.LayoutSetDefault, ctx)
	case "layout-set":
		if len(rest) != 2 {
			return fmt.Errorf("layout-set requires <tag> <name>")
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("layout-set: invalid tag %q", rest[0])
		}
		return cli.LayoutSet(ctx, n, rest[1])
	case "layout-get":
		n, err := tagArg(rest)
		if err != nil {
			return err
		}
		layout, err := cli.LayoutGet(ctx, n)
		if err != nil {
			return err
		}
		fmt.Println(layout)
		return nil
	case "layout-cmd":
		if len(rest) < 2 {
			return fmt.Errorf("layout-cmd requires <layout> <cmd> [args...]")
		}
		return cli.LayoutCmd(ctx, rest[0], rest[1], rest[2:])
	case "list-windows":
		windows, err := cli.ListWindows(ctx)
		if err != nil {
			return err
		}
		for _, w := range windows {
			fmt.Printf("%d\t%s\t%q\ttags=%d\toutput=%d\n", w.ID, w.Owner, w.Title, w.Tags, w.Display)
		}
		return nil
	case "list-outputs":
		outputs, err := cli.ListOutputs(ctx)
		if err != nil {
			return err
		}
		for _, o := range outputs {
			fmt.Printf("%d\t%s\ttags=%d\tlayout=%s\n", o.ID, o.Name, o.VisibleTags, o.CurrentLayout)
		}
		return nil
	case "get-state":
		state, err := cli.GetState(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%d windows, %d outputs, focused window=%d, focused output=%d\n",
			len(state.Windows), len(state.Outputs), state.FocusedWindow, state.FocusedDisplay)
		return nil
	case "exec":
		if len(rest) == 0 {
			return fmt.Errorf("exec requires a command")
		}
		return cli.Exec(ctx, strings.Join(rest, " "), "")
	case "rule-del":
		return requireOneArg(rest, "name", cli.RuleDel, ctx)
	case "list-rules":
		rules, err := cli.ListRules(ctx)
		if err != nil {
			return err
		}
		for _, r := range rules {
			fmt.Println(r.Name)
		}
		return nil
	case "set-cursor-warp":
		return requireOneArg(rest, "mode", cli.SetCursorWarp, ctx)
	case "quit":
		return cli.Quit(ctx)
	case "bind":
		if len(rest) < 2 {
			return fmt.Errorf("bind requires <chord> <command...>")
		}
		return cli.Bind(ctx, rest[0], strings.Join(rest[1:], " "))
	case "unbind":
		return requireOneArg(rest, "chord", cli.Unbind, ctx)
	case "list-bindings":
		bindings, err := cli.ListBindings(ctx)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			fmt.Printf("%s -> %s\n", b.Chord, b.Command)
		}
		return nil
	case "add-exec-path":
		if len(rest) == 0 {
			return fmt.Errorf("add-exec-path requires <dir> [prepend|append]")
		}
		mode := "prepend"
		if len(rest) > 1 {
			mode = rest[1]
		}
		return cli.AddExecPath(ctx, rest[0], mode)
	case "exec-path":
		path, err := cli.ExecPath(ctx)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(path, string(os.PathListSeparator)))
		return nil
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}

func tagArg(rest []string) (int, error) {
	if len(rest) != 1 {
		return 0, fmt.Errorf("expected exactly one tag number")
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, fmt.Errorf("invalid tag number %q", rest[0])
	}
	return n, nil
}

func requireOneArg(rest []string, name string, f func(context.Context, string) error, ctx context.Context) error {
	if len(rest) != 1 {
		return fmt.Errorf("expected exactly one %s argument", name)
	}
	return f(ctx, rest[0])
}

func runTUI(cli *client.Client) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	renderer := tui.New(cli, os.Stdout)
	if err := renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSubscribe(socket string, categories []string) error {
	var filter control.Filter
	for _, cat := range categories {
		switch cat {
		case "window":
			filter.Window = true
		case "focus":
			filter.Focus = true
		case "display":
			filter.Display = true
		case "tags":
			filter.Tags = true
		case "layout":
			filter.Layout = true
		default:
			return fmt.Errorf("unknown event category %q", cat)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stream, err := client.Subscribe(ctx, socket, control.Subscription{Filter: filter})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	for ev := range stream.Events() {
		fmt.Printf("%s window=%d display=%d\n", ev.Type, ev.WindowID, ev.DisplayID)
	}
	return stream.Err()
}
