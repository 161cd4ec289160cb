package layoutengine

import (
	"context"
	"io"
	"sync"
)

// fakeProcess is an in-memory Process backed by two pipes, letting tests
// drive a scripted "engine" goroutine without spawning a real subprocess.
type fakeProcess struct {
	toEngine   *io.PipeReader
	toEngineW  io.WriteCloser
	fromEngine *io.PipeReader
	toClientW  *io.PipeWriter

	mu     sync.Mutex
	killed bool
}

func newFakeProcess() (*fakeProcess, io.Reader, io.Writer) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	p := &fakeProcess{
		toEngine:   inR,
		toEngineW:  inW,
		fromEngine: outR,
		toClientW:  outW,
	}
	return p, inR, outW
}

func (p *fakeProcess) Stdin() io.WriteCloser { return p.toEngineW }
func (p *fakeProcess) Stdout() io.ReadCloser { return p.fromEngine }

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.killed {
		return nil
	}
	p.killed = true
	_ = p.toEngineW.Close()
	_ = p.toClientW.Close()
	return nil
}

func (p *fakeProcess) Wait() error { return nil }

func (p *fakeProcess) isKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeLauncher hands out a single pre-built fakeProcess per call, in
// order, and records the paths/args it was asked to launch.
type fakeLauncher struct {
	mu    sync.Mutex
	procs []*fakeProcess
	calls []string
}

func (l *fakeLauncher) Launch(ctx context.Context, path string, args []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, path)
	if len(l.procs) == 0 {
		p, _, _ := newFakeProcess()
		return p, nil
	}
	p := l.procs[0]
	l.procs = l.procs[1:]
	return p, nil
}
