package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/shared/proc"
)

var (
	ErrTimeoutExceeded = errors.New("command timed out")
	ErrEmptyCommand    = errors.New("command is required")
	ErrInvalidTimeout  = errors.New("invalid timeout")
)

// MaxTimeout is the longest per-request timeout a caller may ask for.
const MaxTimeout = 24 * time.Hour

// TimeoutFromMillis converts a caller supplied millisecond timeout. Zero means
// the configured default.
func TimeoutFromMillis(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("%w: timeout_ms must not be negative", ErrInvalidTimeout)
	}
	if ms > MaxTimeout.Milliseconds() {
		return 0, fmt.Errorf("%w: timeout_ms must not exceed %d", ErrInvalidTimeout, MaxTimeout.Milliseconds())
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Config holds executor defaults.
type Config struct {
	// Shell runs the command with -c. Empty means /bin/sh.
	Shell          string
	Timeout        time.Duration
	MaxOutputBytes int
	Env            []string
	// WaitDelay bounds waiting for output pipes held open by orphaned
	// grandchildren after the command itself exited.
	WaitDelay time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Shell:          "/bin/sh",
		Timeout:        30 * time.Second,
		MaxOutputBytes: 1 << 20,
		WaitDelay:      500 * time.Millisecond,
	}
}

// Request is one command to run.
type Request struct {
	Command string
	Dir     string
	// Timeout overrides the configured timeout when positive.
	Timeout time.Duration
}

// Result is the outcome of a run. ExitCode is -1 when the command did not exit
// on its own.
type Result struct {
	Success   bool          `json:"success"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
	TimedOut  bool          `json:"timed_out"`
	Truncated bool          `json:"truncated"`
	Duration  time.Duration `json:"duration_ns"`
}

// Observer receives run outcomes.
type Observer interface {
	ExecFinished(status string, d time.Duration)
}

// Executor runs one-shot commands. It is safe for concurrent use.
type Executor struct {
	cfg      Config
	logger   *zap.Logger
	observer Observer
}

// New creates an executor, filling zero fields from DefaultConfig.
func New(cfg Config) *Executor {
	d := DefaultConfig()
	if cfg.Shell == "" {
		cfg.Shell = d.Shell
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = d.MaxOutputBytes
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = d.WaitDelay
	}
	return &Executor{cfg: cfg, logger: zap.NewNop()}
}

// WithLogger adds structured logging.
func (e *Executor) WithLogger(logger *zap.Logger) *Executor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithObserver adds run metrics.
func (e *Executor) WithObserver(o Observer) *Executor {
	e.observer = o
	return e
}

// Run executes req and always returns a Result; failures are described in
// Result.Error rather than returned.
func (e *Executor) Run(ctx context.Context, req Request) Result {
	start := time.Now()
	res := e.run(ctx, req)
	res.Duration = time.Since(start)

	status := "success"
	switch {
	case res.TimedOut:
		status = "timeout"
	case !res.Success:
		status = "failure"
	}
	if e.observer != nil {
		e.observer.ExecFinished(status, res.Duration)
	}
	e.logger.Debug("One-shot command finished",
		zap.String("command", req.Command),
		zap.String("status", status),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func (e *Executor) run(ctx context.Context, req Request) Result {
	if req.Command == "" {
		return failed(ErrEmptyCommand)
	}

	dir, err := resolveDir(req.Dir)
	if err != nil {
		return failed(err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.cfg.Shell, "-c", req.Command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), e.cfg.Env...)
	proc.SetProcessGroup(cmd)
	cmd.Cancel = func() error {
		return proc.KillGroup(cmd.Process)
	}
	cmd.WaitDelay = e.cfg.WaitDelay

	stdout := newCappedBuffer(e.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	res := Result{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  proc.ExitCode(runErr),
		Truncated: stdout.truncated || stderr.truncated,
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = proc.AbnormalExitCode
		res.Error = fmt.Sprintf("%v after %s", ErrTimeoutExceeded, timeout)
	case runErr != nil:
		res.Error = runErr.Error()
	default:
		res.Success = true
	}
	return res
}

func failed(err error) Result {
	return Result{ExitCode: proc.AbnormalExitCode, Error: err.Error()}
}

func resolveDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", fmt.Errorf("working directory does not exist: %s", abs)
	}
	return abs, nil
}

// cappedBuffer keeps the first limit bytes and reports whether more arrived.
// Writes never fail so the child is not killed by a short write.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if len(p) > remaining {
		b.truncated = true
		if remaining > 0 {
			b.buf.Write(p[:remaining])
		}
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
