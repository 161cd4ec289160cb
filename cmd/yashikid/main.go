// Command yashikid is the tiling window manager daemon: it owns the
// process-wide window/display state, serves the command and event
// sockets, and drives the core loop that polls the platform and dispatches
// to layout-engine subprocesses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tilewm/tilewm/internal/config"
	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/engine"
	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/metrics"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/util"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "yashiki", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	metricsEnabled := flag.Bool("metrics", true, "collect runtime counters")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	pidPath, err := control.DefaultPIDFilePath()
	if err != nil {
		exitErr(fmt.Errorf("resolve pid file: %w", err))
	}
	release, err := acquirePIDFile(pidPath)
	if err != nil {
		exitErr(fmt.Errorf("acquire pid file: %w", err))
	}
	defer release()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}
	ruleSet, err := cfg.Rules()
	if err != nil {
		exitErr(fmt.Errorf("compile rules: %w", err))
	}
	bindings, err := cfg.CompiledBindings()
	if err != nil {
		exitErr(fmt.Errorf("compile bindings: %w", err))
	}

	hotkeys := hotkey.NewTable()
	for _, b := range bindings {
		hotkeys.Bind(b.Chord, b.Command)
	}

	ws, wm := platform.Unavailable{Reason: "platform bindings"}, platform.Unavailable{Reason: "platform bindings"}
	tap := hotkey.NewUnavailable()
	layouts := layoutengine.NewManager(layoutengine.ExecLauncher{}, cfg.LayoutExecPath)
	defer layouts.Close()
	hub := control.NewHub()
	collector := metrics.NewCollector(*metricsEnabled)

	core := engine.New(ws, wm, layouts, hotkeys, tap, hub, collector, logger)
	core.ApplySeed(ruleSet, cfg.DefaultLayout, cfg.TagLayoutOverrides(), cfg.OuterGapInsets(), cfg.CursorWarpMode(), cfg.LayoutExecPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmdSrv, err := control.NewServer(core, logger, "")
	if err != nil {
		exitErr(fmt.Errorf("start command server: %w", err))
	}
	evSrv, err := control.NewEventServer(core.Hub(), core.Snapshot, logger, "")
	if err != nil {
		exitErr(fmt.Errorf("start event server: %w", err))
	}

	reloadRequests := make(chan string, 1)
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	if cfgFullPath, err := filepath.Abs(*cfgPath); err == nil {
		if err := config.Watch(cfgFullPath, logger, reloadRequests, stopWatch); err != nil {
			logger.Warnf("config watch unavailable: %v", err)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errs := make(chan error, 3)
	go func() { errs <- core.Run(ctx) }()
	go func() { errs <- cmdSrv.Serve(ctx) }()
	go func() { errs <- evSrv.Serve(ctx) }()

	reload := func(reason string) {
		logger.Infof("%s, reloading config", reason)
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			logger.Errorf("reload failed: %v", err)
			return
		}
		ruleSet, err := cfg.Rules()
		if err != nil {
			logger.Errorf("reload failed: %v", err)
			return
		}
		core.ApplySeed(ruleSet, cfg.DefaultLayout, cfg.TagLayoutOverrides(), cfg.OuterGapInsets(), cfg.CursorWarpMode(), cfg.LayoutExecPath)
	}

	for {
		select {
		case err := <-errs:
			if err != nil && err != context.Canceled {
				logger.Errorf("daemon exited: %v", err)
				os.Exit(1)
			}
			logger.Infof("daemon stopped")
			return
		case <-core.Done():
			logger.Infof("quit command received, shutting down")
			cancel()
		case reason := <-reloadRequests:
			reload(reason)
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				reload("received SIGHUP")
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

// acquirePIDFile creates path exclusively and writes the current pid,
// refusing to start a second daemon against the same runtime directory.
// No third-party lock-file library appears anywhere in the pack, so this
// stays on os.OpenFile's O_EXCL guarantee.
func acquirePIDFile(path string) (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("daemon already running (or stale pid file at %s)", path)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
