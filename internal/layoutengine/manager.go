package layoutengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const binaryPrefix = "yashiki-layout-"

// Manager multiplexes named layout engines. Each name gets at most one
// lazily-spawned subprocess; a failed round trip kills that subprocess so
// the next call respawns it fresh, with no retry inside the same call.
type Manager struct {
	launcher Launcher

	mu       sync.Mutex
	execPath []string
	clients  map[string]*client
}

// NewManager returns a manager with the given exec path, searched in
// order to resolve engine names to binaries. An empty path defaults to
// the daemon's own directory followed by the OS PATH.
func NewManager(launcher Launcher, execPath []string) *Manager {
	if len(execPath) == 0 {
		execPath = defaultExecPath()
	}
	return &Manager{
		launcher: launcher,
		execPath: append([]string(nil), execPath...),
		clients:  make(map[string]*client),
	}
}

func defaultExecPath() []string {
	path := []string{}
	if exe, err := os.Executable(); err == nil {
		path = append(path, filepath.Dir(exe))
	}
	path = append(path, filepath.SplitList(os.Getenv("PATH"))...)
	return path
}

// ExecPath returns the current search path, in order.
func (m *Manager) ExecPath() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.execPath...)
}

// SetExecPath replaces the search path outright (set-exec-path).
func (m *Manager) SetExecPath(path []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execPath = append([]string(nil), path...)
}

// PrependExecPath inserts dir at the front of the search path.
func (m *Manager) PrependExecPath(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execPath = append([]string{dir}, m.execPath...)
}

// AppendExecPath adds dir to the end of the search path.
func (m *Manager) AppendExecPath(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execPath = append(m.execPath, dir)
}

// resolve searches the exec path for the binary backing an engine name.
func (m *Manager) resolve(name string) (string, error) {
	m.mu.Lock()
	dirs := append([]string(nil), m.execPath...)
	m.mu.Unlock()

	binary := binaryPrefix + name
	for _, dir := range dirs {
		candidate := filepath.Join(dir, binary)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("layoutengine: %s not found on exec path", binary)
}

// clientFor returns the live client for name, spawning one if needed.
func (m *Manager) clientFor(ctx context.Context, name string) (*client, error) {
	m.mu.Lock()
	if c, ok := m.clients[name]; ok && !c.isDead() {
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	binPath, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	proc, err := m.launcher.Launch(ctx, binPath, nil)
	if err != nil {
		return nil, fmt.Errorf("layoutengine: spawn %s: %w", name, err)
	}
	c := newClient(name, proc)

	m.mu.Lock()
	m.clients[name] = c
	m.mu.Unlock()
	return c, nil
}

// Layout asks the named engine to tile windows within width x height.
func (m *Manager) Layout(ctx context.Context, name string, req LayoutRequest) (LayoutResult, error) {
	resp, err := m.roundTrip(ctx, name, "Layout", req)
	if err != nil {
		return LayoutResult{}, err
	}
	switch resp.Kind {
	case ResponseLayout:
		return resp.Layout, nil
	case ResponseError:
		return LayoutResult{}, fmt.Errorf("layoutengine %s: %s", name, resp.ErrMsg)
	default:
		return LayoutResult{}, fmt.Errorf("layoutengine %s: unexpected reply to Layout request", name)
	}
}

// Command sends an engine-specific verb (e.g. focus-changed, or a
// layout-cmd IPC passthrough) and returns the raw reply.
func (m *Manager) Command(ctx context.Context, name string, req CommandRequest) (Response, error) {
	return m.roundTrip(ctx, name, "Command", req)
}

func (m *Manager) roundTrip(ctx context.Context, name, tag string, body any) (Response, error) {
	payload, err := encodeRequest(tag, body)
	if err != nil {
		return Response{}, err
	}
	c, err := m.clientFor(ctx, name)
	if err != nil {
		return Response{}, err
	}
	resp, err := c.roundTrip(ctx, payload)
	if err != nil {
		m.mu.Lock()
		delete(m.clients, name)
		m.mu.Unlock()
		return Response{}, err
	}
	return resp, nil
}

// Close kills every live engine subprocess.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*client)
	m.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
