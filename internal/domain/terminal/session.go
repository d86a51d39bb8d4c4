package terminal

import (
	"fmt"
	"sync"
	"time"
)

// Session is one managed shell process plus its metadata.
//
// Status, exit code and the backend handle are written only by the Manager;
// dimensions are written by Resize under mu.
type Session struct {
	id        string
	sink      Sink
	createdAt time.Time

	mu         sync.RWMutex
	kind       Kind
	label      string
	shell      string
	workingDir string
	cols       int
	rows       int
	status     Status
	exitCode   int
	backend    Backend

	// input is the writer queue; FIFO order is the write order
	input chan []byte

	// emitMu orders data against the final exit event
	emitMu   sync.Mutex
	silenced bool

	readerDone chan struct{}
	done       chan struct{}
	exitOnce   sync.Once
}

func newSession(id string, sink Sink, shell, dir string, cols, rows, queue int) *Session {
	if sink == nil {
		sink = Discard
	}
	return &Session{
		id:         id,
		sink:       sink,
		createdAt:  time.Now(),
		shell:      shell,
		workingDir: dir,
		cols:       cols,
		rows:       rows,
		status:     StatusStarting,
		input:      make(chan []byte, queue),
		readerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ID returns the caller-supplied session id.
func (s *Session) ID() string { return s.id }

// Done is closed once the session has exited and its exit event was sent.
func (s *Session) Done() <-chan struct{} { return s.done }

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:         s.id,
		Kind:       s.kind,
		Label:      s.label,
		Shell:      s.shell,
		WorkingDir: s.workingDir,
		Cols:       s.cols,
		Rows:       s.rows,
		Status:     s.status,
		CreatedAt:  s.createdAt,
	}
	if s.backend != nil {
		info.PID = s.backend.Pid()
	}
	if s.status == StatusExited {
		code := s.exitCode
		info.ExitCode = &code
	}
	return info
}

// attach moves a starting session to running. It fails when the session was
// already finished, e.g. by a shutdown racing the spawn.
func (s *Session) attach(b Backend) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusStarting {
		return false
	}
	s.backend = b
	s.kind = b.Kind()
	s.label = b.Label()
	s.status = StatusRunning
	return true
}

// handleOrAbort returns the backend, or marks a session that has none yet as
// exited so a racing attach fails.
func (s *Session) handleOrAbort(code int) Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil && s.status == StatusStarting {
		s.status = StatusExited
		s.exitCode = code
	}
	return s.backend
}

func (s *Session) handle() Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func (s *Session) kindName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.kind)
}

// markExited records the terminal state once and returns the exit code that
// stands, which is the first one recorded.
func (s *Session) markExited(code int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusExited {
		s.status = StatusExited
		s.exitCode = code
	}
	return s.exitCode
}

// enqueue copies data onto the writer queue without blocking the caller.
func (s *Session) enqueue(data []byte) error {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	if status == StatusExited {
		return fmt.Errorf("%w: session %s has exited", ErrWriteFailure, s.id)
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)

	select {
	case <-s.done:
		return fmt.Errorf("%w: session %s has exited", ErrWriteFailure, s.id)
	default:
	}

	select {
	case s.input <- chunk:
		return nil
	default:
		return fmt.Errorf("%w: input queue full for session %s", ErrWriteFailure, s.id)
	}
}

func (s *Session) resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusExited {
		return fmt.Errorf("%w: session %s has exited", ErrWriteFailure, s.id)
	}

	s.cols = cols
	s.rows = rows
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Resize(cols, rows); err != nil {
		return fmt.Errorf("failed to resize session %s: %w", s.id, err)
	}
	return nil
}

// emitData forwards a chunk unless the exit event was already delivered.
func (s *Session) emitData(data []byte) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.silenced {
		return
	}
	s.sink.OnData(s.id, data)
}

// emitExit delivers the exit event and silences the session.
func (s *Session) emitExit(code int) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.silenced = true
	s.sink.OnExit(s.id, code)
}
