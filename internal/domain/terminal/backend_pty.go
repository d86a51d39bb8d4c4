package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

type ptyBackend struct {
	process
	ptmx *os.File
}

// SpawnNativePTY starts the shell on a real pseudo-terminal. The shell becomes
// a session leader with the pty as its controlling terminal, so resize reaches
// it as SIGWINCH.
func SpawnNativePTY(ctx context.Context, spec SpawnSpec) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Shell)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	ptmx, err := pty.StartWithSize(cmd, winsize(spec.Cols, spec.Rows))
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &ptyBackend{
		process: process{
			kind:    KindNativePTY,
			label:   "native pty",
			cmd:     cmd,
			closers: []io.Closer{ptmx},
		},
		ptmx: ptmx,
	}, nil
}

func (b *ptyBackend) Output() io.Reader { return b.ptmx }

func (b *ptyBackend) Write(p []byte) (int, error) {
	return b.ptmx.Write(p)
}

func (b *ptyBackend) Resize(cols, rows int) error {
	return pty.Setsize(b.ptmx, winsize(cols, rows))
}

func winsize(cols, rows int) *pty.Winsize {
	return &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
}
