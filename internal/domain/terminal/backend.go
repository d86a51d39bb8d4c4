package terminal

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"

	"github.com/GriffinCanCode/termhost/internal/shared/proc"
)

// Backend is the uniform capability set every tier provides. A Backend is
// owned by exactly one Session and never handed out beyond the manager.
type Backend interface {
	Kind() Kind
	// Label is a human-readable description of the tier, e.g. for UIs that
	// want to warn about degraded capability.
	Label() string
	Pid() int
	// Output is the merged output stream of the process.
	Output() io.Reader
	Write(p []byte) (int, error)
	// Resize notifies the live process where the tier supports it and is a
	// no-op otherwise.
	Resize(cols, rows int) error
	// Terminate asks the process group to stop.
	Terminate() error
	// Kill force-kills the process group.
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	// It must be called exactly once.
	Wait() int
	// Close releases descriptors. Safe to call more than once.
	Close() error
}

// SpawnSpec describes the shell a tier should start.
type SpawnSpec struct {
	Shell string
	Dir   string
	Cols  int
	Rows  int
	// Env is the base environment; tiers add their own size variables.
	Env []string
}

// SpawnFunc starts a shell for one tier.
type SpawnFunc func(ctx context.Context, spec SpawnSpec) (Backend, error)

// process holds what all tiers share: the command and the descriptors the
// parent must release.
type process struct {
	kind    Kind
	label   string
	cmd     *exec.Cmd
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

func (p *process) Kind() Kind    { return p.kind }
func (p *process) Label() string { return p.label }

func (p *process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Terminate() error {
	return proc.Terminate(p.cmd.Process)
}

func (p *process) Kill() error {
	return proc.SignalGroup(p.cmd.Process, syscall.SIGKILL)
}

func (p *process) Wait() int {
	return proc.ExitCode(p.cmd.Wait())
}

func (p *process) Close() error {
	p.closeOnce.Do(func() {
		for _, c := range p.closers {
			if err := c.Close(); err != nil && p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}
