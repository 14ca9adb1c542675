package peer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolgen/config"
)

// Options configures a Manager.
type Options struct {
	// StartupGrace is how long a new process must stay alive before it is
	// considered ready. Defaults to config.DefaultStartupGrace.
	StartupGrace time.Duration

	// ShutdownTimeout bounds the wait between SIGTERM and kill.
	// Defaults to config.DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger is an optional logger. Defaults to a no-op logger.
	Logger *zap.Logger

	// Environ returns the base environment for new processes.
	// Defaults to os.Environ.
	Environ func() []string

	// LookupEnv resolves ${NAME} placeholders. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func (o *Options) applyDefaults() {
	if o.StartupGrace <= 0 {
		o.StartupGrace = config.DefaultStartupGrace
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Environ == nil {
		o.Environ = os.Environ
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
}

// Manager starts and caches one process per server name.
//
// Contract:
// - Concurrency: safe for concurrent use; concurrent Acquire calls for the
// same name share one start.
// - Ownership: handles stay owned by the Manager; callers must not stop them.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]*Handle
	pending map[string]*pendingStart
	starts  singleflight.Group
}

// pendingStart is the context shared by every Acquire waiting on one
// start. It is canceled when the last waiter gives up.
type pendingStart struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewManager creates a Manager with no running processes.
func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{
		opts:    opts,
		logger:  opts.Logger.Named("peer"),
		handles: make(map[string]*Handle),
		pending: make(map[string]*pendingStart),
	}
}

// Acquire returns the live handle for name, starting the process described
// by cfg if none is cached or the cached one has died.
//
// A nil cfg with no live handle fails with config.ErrConfiguration. Launch
// failures, including an exit during the startup grace period, fail with
// ErrProcessStart.
func (m *Manager) Acquire(ctx context.Context, name string, cfg *config.Server) (*Handle, error) {
	if h := m.live(name); h != nil {
		return h, nil
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no server configured named %q", config.ErrConfiguration, name)
	}

	for {
		h, err := m.awaitStart(ctx, name, cfg)
		// The shared start was canceled by waiters that left before this
		// one joined; start again.
		if errors.Is(err, context.Canceled) && ctx.Err() == nil {
			continue
		}
		return h, err
	}
}

// awaitStart joins the start of name, beginning one if none is running,
// and waits for it or for ctx. The start itself runs until it completes or
// every waiter has given up.
func (m *Manager) awaitStart(ctx context.Context, name string, cfg *config.Server) (*Handle, error) {
	startCtx := m.join(ctx, name)
	defer m.leave(name)

	ch := m.starts.DoChan(name, func() (any, error) {
		if h := m.live(name); h != nil {
			return h, nil
		}
		h, err := m.start(startCtx, name, cfg)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.handles[name] = h
		m.mu.Unlock()
		return h, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) join(ctx context.Context, name string) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[name]
	if !ok {
		sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		p = &pendingStart{ctx: sctx, cancel: cancel}
		m.pending[name] = p
	}
	p.waiters++
	return p.ctx
}

func (m *Manager) leave(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pending[name]
	p.waiters--
	if p.waiters == 0 {
		p.cancel()
		delete(m.pending, name)
	}
}

// live returns the cached handle for name if its process is running.
// A dead or discarded cached handle is evicted and released.
func (m *Manager) live(name string) *Handle {
	m.mu.Lock()
	h, ok := m.handles[name]
	usable := ok && h.Alive() && !h.Discarded()
	if ok && !usable {
		delete(m.handles, name)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if !usable {
		m.logger.Info("evicting server",
			zap.String("server", name),
			zap.Bool("discarded", h.Discarded()),
			zap.NamedError("exit", h.ExitErr()))
		h.stop(0)
		return nil
	}
	return h
}

func (m *Manager) start(ctx context.Context, name string, cfg *config.Server) (*Handle, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("%w: server %q has no command", config.ErrConfiguration, name)
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Dir
	cmd.Env = config.MergeEnv(m.opts.Environ(), cfg.ResolveEnv(m.opts.LookupEnv))

	m.logger.Info("starting server",
		zap.String("server", name),
		zap.String("command", cfg.Command),
		zap.Strings("args", cfg.Args))

	h, err := startHandle(name, cmd, m.logger)
	if err != nil {
		return nil, &StartError{Server: name, Command: cfg.Command, Err: err}
	}

	timer := time.NewTimer(m.opts.StartupGrace)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-h.Exited():
		h.stop(0)
		exit := h.ExitErr()
		if exit == nil {
			exit = errors.New("exited during startup")
		} else {
			exit = fmt.Errorf("exited during startup: %w", exit)
		}
		return nil, &StartError{Server: name, Command: cfg.Command, Stderr: h.StderrTail(), Err: exit}
	case <-ctx.Done():
		h.stop(m.opts.ShutdownTimeout)
		return nil, ctx.Err()
	}

	m.logger.Debug("server ready", zap.String("server", name), zap.Int("pid", h.PID()))
	return h, nil
}

// ShutdownAll terminates every cached process and clears the cache.
// Processes are stopped in parallel. Failures are logged, never returned.
// Safe to call any number of times.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*Handle)
	m.mu.Unlock()

	if len(handles) == 0 {
		return
	}

	var g errgroup.Group
	for name, h := range handles {
		g.Go(func() error {
			if h.stop(m.opts.ShutdownTimeout) {
				m.logger.Warn("server ignored SIGTERM, killed",
					zap.String("server", name),
					zap.Duration("timeout", m.opts.ShutdownTimeout))
			} else {
				m.logger.Debug("server stopped", zap.String("server", name))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Close shuts down every process. It always returns nil.
func (m *Manager) Close() error {
	m.ShutdownAll()
	return nil
}

// Servers returns the sorted names of cached handles.
func (m *Manager) Servers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.handles))
	for name := range m.handles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of cached handles.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}
