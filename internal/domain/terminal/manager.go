package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/termhost/internal/domain/executor"
)

// Config tunes session defaults and the I/O pump.
type Config struct {
	// Shell overrides $SHELL when set.
	Shell string
	Cols  int
	Rows  int
	// Env is appended to the standard interactive environment.
	Env []string
	// KillGrace is how long Kill waits for the process to exit on its own.
	KillGrace time.Duration
	// DrainTimeout bounds waiting for output after the process exited.
	DrainTimeout time.Duration
	ReadChunk    int
	InputQueue   int
}

// DefaultConfig returns the defaults used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		Cols:         80,
		Rows:         24,
		KillGrace:    2 * time.Second,
		DrainTimeout: 2 * time.Second,
		ReadChunk:    32 * 1024,
		InputQueue:   256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Cols <= 0 {
		c.Cols = d.Cols
	}
	if c.Rows <= 0 {
		c.Rows = d.Rows
	}
	if c.KillGrace < 0 {
		c.KillGrace = 0
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = d.ReadChunk
	}
	if c.InputQueue <= 0 {
		c.InputQueue = d.InputQueue
	}
	return c
}

// CreateRequest describes a new session. Zero Dir, Cols and Rows fall back to
// the host working directory and the configured size.
type CreateRequest struct {
	ID   string
	Dir  string
	Cols int
	Rows int
	Sink Sink
}

// Manager owns the session lifecycle. It is the only writer of session status
// and the only component that removes sessions from the registry.
type Manager struct {
	cfg      Config
	prober   *Prober
	registry *Registry
	executor *executor.Executor
	logger   *zap.Logger
	observer Observer

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a manager spawning sessions through prober.
func NewManager(cfg Config, prober *Prober) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		prober:   prober,
		registry: NewRegistry(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
}

// WithLogger adds structured logging.
func (m *Manager) WithLogger(logger *zap.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithObserver adds lifecycle metrics.
func (m *Manager) WithObserver(o Observer) *Manager {
	if o != nil {
		m.observer = o
	}
	return m
}

// WithExecutor enables RunOnce.
func (m *Manager) WithExecutor(e *executor.Executor) *Manager {
	m.executor = e
	return m
}

// Create spawns a session and starts its pump. The id is reserved before the
// spawn, so concurrent creates of one id never both start a process.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (Info, error) {
	if req.ID == "" {
		return Info{}, fmt.Errorf("%w: session id is required", ErrInvalidArgument)
	}
	if req.Cols < 0 || req.Rows < 0 {
		return Info{}, fmt.Errorf("%w: dimensions must not be negative", ErrInvalidArgument)
	}
	if req.Cols > MaxDimension || req.Rows > MaxDimension {
		return Info{}, fmt.Errorf("%w: dimensions must not exceed %d", ErrInvalidArgument, MaxDimension)
	}

	cols, rows := req.Cols, req.Rows
	if cols == 0 {
		cols = m.cfg.Cols
	}
	if rows == 0 {
		rows = m.cfg.Rows
	}

	dir, err := ResolveDir(req.Dir)
	if err != nil {
		return Info{}, err
	}
	shell, err := ResolveShell(m.cfg.Shell)
	if err != nil {
		return Info{}, err
	}

	s := newSession(req.ID, req.Sink, shell, dir, cols, rows, m.cfg.InputQueue)
	if err := m.reserve(s); err != nil {
		return Info{}, err
	}

	b, err := m.prober.Probe(ctx, SpawnSpec{
		Shell: shell,
		Dir:   dir,
		Cols:  cols,
		Rows:  rows,
		Env:   BaseEnv(m.cfg.Env),
	})
	if err != nil {
		m.registry.Remove(s.id, s)
		m.logger.Error("Failed to spawn session",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return Info{}, err
	}

	if !s.attach(b) {
		// killed or shut down while spawning
		b.Kill()
		b.Close()
		go b.Wait()
		if m.isClosed() {
			return Info{}, ErrManagerClosed
		}
		return Info{}, fmt.Errorf("%w: session %s was killed while starting", ErrSpawnFailure, s.id)
	}
	m.startPump(s, b)
	m.observer.SessionStarted(string(b.Kind()))

	info := s.Info()
	m.logger.Info("Session started",
		zap.String("session_id", info.ID),
		zap.String("backend", string(info.Kind)),
		zap.String("shell", info.Shell),
		zap.String("working_dir", info.WorkingDir),
		zap.Int("pid", info.PID),
	)
	return info, nil
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) reserve(s *Session) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrManagerClosed
	}
	if !m.registry.Insert(s) {
		return fmt.Errorf("%w: %s", ErrDuplicateSession, s.id)
	}
	return nil
}

// Write queues data for the session's process and returns immediately.
func (m *Manager) Write(id string, data []byte) error {
	s, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if len(data) == 0 {
		return nil
	}
	return s.enqueue(data)
}

// Resize records new dimensions and, on a native pty, resizes the terminal.
func (m *Manager) Resize(id string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidArgument)
	}
	if cols > MaxDimension || rows > MaxDimension {
		return fmt.Errorf("%w: dimensions must not exceed %d", ErrInvalidArgument, MaxDimension)
	}
	s, ok := m.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s.resize(cols, rows)
}

// Kill removes the session and terminates its process, force-killing it when
// it does not exit within the grace period. It returns once the process is
// gone.
func (m *Manager) Kill(id string) error {
	done, err := m.KillAsync(id)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// KillAsync removes the session before returning, so every later call sees
// the id as unknown, and terminates the process in the background. The
// returned channel is closed once the process is gone.
func (m *Manager) KillAsync(id string) (<-chan struct{}, error) {
	s, ok := m.registry.Get(id)
	if !ok || !m.registry.Remove(id, s) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.terminate(s, m.cfg.KillGrace, ReasonKilled)
	}()
	return done, nil
}

// Get returns a snapshot of a live session.
func (m *Manager) Get(id string) (Info, error) {
	s, ok := m.registry.Get(id)
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s.Info(), nil
}

// List returns snapshots of every live session.
func (m *Manager) List() []Info {
	sessions := m.registry.List()
	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.registry.Len()
}

// Backends lists the configured tier chain.
func (m *Manager) Backends() []Kind {
	return m.prober.Kinds()
}

// RunOnce runs a command to completion through the one-shot executor.
func (m *Manager) RunOnce(ctx context.Context, req executor.Request) executor.Result {
	if m.executor == nil {
		return executor.Result{ExitCode: AbnormalExitCode, Error: "one-shot execution is not configured"}
	}
	return m.executor.Run(ctx, req)
}

// Shutdown force-kills every live session without grace, emits their exit
// events and rejects later creates. It waits for the pumps until ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.registry.Drain()
	m.mu.Unlock()

	m.logger.Info("Shutting down terminal sessions", zap.Int("count", len(sessions)))

	var g errgroup.Group
	for _, s := range sessions {
		g.Go(func() error {
			m.terminate(s, 0, ReasonShutdown)
			return nil
		})
	}
	g.Wait()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("terminal shutdown: %w", ctx.Err())
	}
}

// terminate stops a session that was already removed from the registry.
func (m *Manager) terminate(s *Session, grace time.Duration, reason string) {
	b := s.handleOrAbort(AbnormalExitCode)
	if b == nil {
		m.finish(s, AbnormalExitCode, reason)
		return
	}

	if grace > 0 {
		if err := b.Terminate(); err != nil {
			m.logger.Debug("Failed to signal session",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
		}
		select {
		case <-s.done:
			return
		case <-time.After(grace):
		}
	}

	if err := b.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		m.logger.Debug("Failed to kill session",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
	}
	m.release(s, b)
	m.finish(s, AbnormalExitCode, reason)
}

// finish is the single exit transition: status, registry removal, handle
// release and the exit event happen once, whoever gets here first.
func (m *Manager) finish(s *Session, code int, reason string) {
	s.exitOnce.Do(func() {
		code = s.markExited(code)
		m.registry.Remove(s.id, s)
		if b := s.handle(); b != nil {
			b.Close()
		}
		close(s.done)
		s.emitExit(code)

		backend := s.kindName()
		m.observer.SessionExited(backend, reason)
		m.logger.Info("Session exited",
			zap.String("session_id", s.id),
			zap.String("backend", backend),
			zap.String("reason", reason),
			zap.Int("exit_code", code),
		)
	})
}
