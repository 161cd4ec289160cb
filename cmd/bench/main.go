// Command bench replays a fixture of commands against an in-memory
// platform.Fake and a real engine.Core, reporting per-command latency
// and allocation stats.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/tilewm/tilewm/internal/config"
	"github.com/tilewm/tilewm/internal/control"
	"github.com/tilewm/tilewm/internal/engine"
	"github.com/tilewm/tilewm/internal/hotkey"
	"github.com/tilewm/tilewm/internal/layoutengine"
	"github.com/tilewm/tilewm/internal/metrics"
	"github.com/tilewm/tilewm/internal/platform"
	"github.com/tilewm/tilewm/internal/state"
	"github.com/tilewm/tilewm/internal/util"
)

type benchFixture struct {
	Name     string                 `json:"name"`
	Windows  []platform.WindowInfo  `json:"windows"`
	Displays []platform.DisplayInfo `json:"displays"`
	Commands []control.Request      `json:"commands"`
}

type benchLatencyStats struct {
	MinUs    float64 `json:"minUs"`
	MeanUs   float64 `json:"meanUs"`
	MedianUs float64 `json:"medianUs"`
	P95Us    float64 `json:"p95Us"`
	MaxUs    float64 `json:"maxUs"`
}

type benchAllocationStats struct {
	Total         uint64  `json:"totalAllocations"`
	PerCommand    float64 `json:"allocationsPerCommand"`
	HeapAllocByte int64   `json:"heapAllocDeltaBytes"`
}

type benchSummary struct {
	Fixture             string               `json:"fixture"`
	Iterations          int                  `json:"iterations"`
	CommandsPerIter     int                  `json:"commandsPerIteration"`
	TotalCommands       int                  `json:"totalCommands"`
	Latency             benchLatencyStats    `json:"latency"`
	Allocations         benchAllocationStats `json:"allocations"`
	TotalDurationMs      float64             `json:"totalDurationMs"`
	CommandsPerSecond    float64             `json:"commandsPerSecond"`
}

type benchReport struct {
	Summary    benchSummary `json:"summary"`
	LatencyUs  []float64    `json:"latencyUs,omitempty"`
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config seeding rules/layouts (optional)")
	fixturePath := flag.String("fixture", "", "path to a JSON command fixture (required)")
	iterations := flag.Int("iterations", 20, "number of times to replay the fixture")
	cpuProfile := flag.String("cpu-profile", "", "write CPU profile to file")
	memProfile := flag.String("mem-profile", "", "write heap profile to file")
	outputPath := flag.String("output", "-", "write JSON report to file ('-' for stdout)")
	humanSummary := flag.Bool("human", false, "print a tabular summary alongside the JSON report")
	logLevel := flag.String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	flag.Parse()

	if *fixturePath == "" {
		exitErr(errors.New("-fixture is required"))
	}
	if *iterations <= 0 {
		exitErr(errors.New("iterations must be positive"))
	}

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		exitErr(fmt.Errorf("load fixture: %w", err))
	}
	if len(fixture.Commands) == 0 {
		exitErr(errors.New("fixture contains no commands"))
	}

	var cfg *config.Config
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			exitErr(fmt.Errorf("load config: %w", err))
		}
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			exitErr(fmt.Errorf("create cpu profile: %w", err))
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			exitErr(fmt.Errorf("start cpu profile: %w", err))
		}
		defer pprof.StopCPUProfile()
	}

	ctx := context.Background()

	runtime.GC()
	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	durations := make([]time.Duration, 0, len(fixture.Commands)*(*iterations))
	for i := 0; i < *iterations; i++ {
		core := newBenchCore(fixture, cfg, logger)
		for _, req := range fixture.Commands {
			t0 := time.Now()
			resp := core.Dispatch(ctx, req)
			durations = append(durations, time.Since(t0))
			if resp.Type == control.RespError {
				logger.Warnf("iteration %d: %s -> %s", i+1, req.Type, resp.Error)
			}
		}
	}
	total := time.Since(start)

	runtime.GC()
	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			exitErr(fmt.Errorf("create mem profile: %w", err))
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			exitErr(fmt.Errorf("write heap profile: %w", err))
		}
	}

	report := buildReport(fixture, *iterations, durations, total, startMem, endMem)
	if err := writeReport(report, *outputPath); err != nil {
		exitErr(fmt.Errorf("write report: %w", err))
	}
	if *humanSummary {
		printHumanSummary(report.Summary, os.Stdout)
	}
}

// benchLauncher + benchProcess implement layoutengine.Launcher/Process
// in-memory, so bench runs never spawn or depend on the real
// yashiki-layout-tatami binary. It arranges windows in one even row,
// which is enough to exercise the retile round trip's framing and
// translation code without depending on subprocess scheduling.
type benchLauncher struct{}

func (benchLauncher) Launch(ctx context.Context, path string, args []string) (layoutengine.Process, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	p := &benchProcess{stdin: inW, stdout: outR}
	go p.serve(inR, outW)
	return p, nil
}

type benchProcess struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	mu     sync.Mutex
	killed bool
}

func (p *benchProcess) Stdin() io.WriteCloser  { return p.stdin }
func (p *benchProcess) Stdout() io.ReadCloser  { return p.stdout }
func (p *benchProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	p.stdin.Close()
	return nil
}
func (p *benchProcess) Wait() error { return nil }

func (p *benchProcess) serve(in io.Reader, out io.WriteCloser) {
	defer out.Close()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		var tagged map[string]json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &tagged); err != nil {
			continue
		}
		if raw, ok := tagged["Layout"]; ok {
			var req struct {
				Width, Height int
				Windows       []platform.WindowID
			}
			json.Unmarshal(raw, &req)
			type rect struct {
				ID                      platform.WindowID
				X, Y, Width, Height int
			}
			rects := make([]rect, len(req.Windows))
			n := len(req.Windows)
			for i, id := range req.Windows {
				w := req.Width / max1(n)
				rects[i] = rect{ID: id, X: i * w, Y: 0, Width: w, Height: req.Height}
			}
			buf, _ := json.Marshal(struct {
				Windows []rect `json:"windows"`
			}{Windows: rects})
			fmt.Fprintf(out, "{\"Layout\":%s}\n", buf)
			continue
		}
		fmt.Fprintln(out, `"Ok"`)
	}
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func newBenchCore(fixture benchFixture, cfg *config.Config, logger *util.Logger) *engine.Core {
	fake := platform.NewFake()
	for _, d := range fixture.Displays {
		fake.SetDisplay(d)
	}
	for _, w := range fixture.Windows {
		fake.SetWindow(w, platform.ExtendedAttributes{})
		fake.SetProcessAXAccessible(w.PID, true)
	}

	layouts := layoutengine.NewManager(benchLauncher{}, []string{"bench"})
	core := engine.New(fake, fake, layouts, hotkey.NewTable(), hotkey.NewUnavailable(), control.NewHub(), metrics.NewCollector(false), logger)

	if cfg != nil {
		ruleSet, err := cfg.Rules()
		if err == nil {
			core.ApplySeed(ruleSet, cfg.DefaultLayout, cfg.TagLayoutOverrides(), cfg.OuterGapInsets(), cfg.CursorWarpMode(), nil)
		}
	} else {
		core.ApplySeed(nil, "bench", nil, state.Insets{}, state.CursorWarpDisabled, nil)
	}
	return core
}

func buildReport(fixture benchFixture, iterations int, durations []time.Duration, total time.Duration, start, end runtime.MemStats) benchReport {
	latency, latencyUs := buildLatencyStats(durations)
	allocs := end.Mallocs - start.Mallocs
	summary := benchSummary{
		Fixture:           fixture.Name,
		Iterations:        iterations,
		CommandsPerIter:   len(fixture.Commands),
		TotalCommands:     len(durations),
		Latency:           latency,
		Allocations: benchAllocationStats{
			Total:         allocs,
			PerCommand:    safeDivide(int(allocs), len(durations)),
			HeapAllocByte: int64(end.HeapAlloc) - int64(start.HeapAlloc),
		},
		TotalDurationMs:   float64(total) / float64(time.Millisecond),
		CommandsPerSecond: commandsPerSecond(total, len(durations)),
	}
	return benchReport{Summary: summary, LatencyUs: latencyUs}
}

func buildLatencyStats(durations []time.Duration) (benchLatencyStats, []float64) {
	if len(durations) == 0 {
		return benchLatencyStats{}, nil
	}
	us := make([]float64, len(durations))
	var total time.Duration
	for i, d := range durations {
		us[i] = float64(d) / float64(time.Microsecond)
		total += d
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	toUs := func(d time.Duration) float64 { return float64(d) / float64(time.Microsecond) }
	return benchLatencyStats{
		MinUs:    toUs(sorted[0]),
		MeanUs:   toUs(total / time.Duration(len(sorted))),
		MedianUs: toUs(percentile(sorted, 0.50)),
		P95Us:    toUs(percentile(sorted, 0.95)),
		MaxUs:    toUs(sorted[len(sorted)-1]),
	}, us
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p*float64(len(sorted)-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func safeDivide(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func commandsPerSecond(total time.Duration, commands int) float64 {
	if total <= 0 || commands == 0 {
		return 0
	}
	return float64(commands) / total.Seconds()
}

func loadFixture(path string) (benchFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return benchFixture{}, err
	}
	var fixture benchFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return benchFixture{}, err
	}
	if fixture.Name == "" {
		fixture.Name = filepath.Base(path)
	}
	return fixture, nil
}

func writeReport(report benchReport, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" && outputPath != "-" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printHumanSummary(s benchSummary, w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Fixture:\t%s\n", s.Fixture)
	fmt.Fprintf(tw, "Iterations:\t%d\n", s.Iterations)
	fmt.Fprintf(tw, "Commands/iteration:\t%d\n", s.CommandsPerIter)
	fmt.Fprintf(tw, "Total commands:\t%d\n", s.TotalCommands)
	fmt.Fprintf(tw, "Latency (us):\tmin %.2f | mean %.2f | median %.2f | p95 %.2f | max %.2f\n",
		s.Latency.MinUs, s.Latency.MeanUs, s.Latency.MedianUs, s.Latency.P95Us, s.Latency.MaxUs)
	fmt.Fprintf(tw, "Allocations:\t%d total (%.2f / command)\n", s.Allocations.Total, s.Allocations.PerCommand)
	fmt.Fprintf(tw, "Commands/sec:\t%.2f\n", s.CommandsPerSecond)
	tw.Flush()
	fmt.Fprintln(w)
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
