package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/GriffinCanCode/termhost/internal/shared/proc"
)

// emulatorCandidates are helper utilities that allocate a terminal device and
// run a child inside it. util-linux and BSD script(1) differ in syntax.
var emulatorCandidates = []string{"script"}

type pipedBackend struct {
	process
	stdin  io.WriteCloser
	output *os.File
}

// SpawnEmulatedPTY returns a SpawnFunc that runs the shell inside a pty
// emulation helper. helper overrides discovery on PATH when non-empty.
// The helper's own terminal cannot be resized from here, so Resize only
// updates the recorded size.
func SpawnEmulatedPTY(helper string) SpawnFunc {
	return func(ctx context.Context, spec SpawnSpec) (Backend, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := findEmulator(helper)
		if err != nil {
			return nil, err
		}

		cmd := exec.Command(path, emulatorArgs(spec.Shell)...)
		cmd.Dir = spec.Dir
		cmd.Env = append(sizedEnv(spec), "SHELL="+spec.Shell)

		return startPiped(cmd, KindEmulatedPTY, "emulated pty via "+path)
	}
}

// SpawnPlainPipe starts the shell in interactive mode on ordinary pipes.
// stdout and stderr share one pipe so their relative order is kept.
func SpawnPlainPipe(ctx context.Context, spec SpawnSpec) (Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Shell, "-i")
	cmd.Dir = spec.Dir
	cmd.Env = sizedEnv(spec)

	return startPiped(cmd, KindPlainPipe, "plain pipes (no pty)")
}

func findEmulator(helper string) (string, error) {
	if helper != "" {
		path, err := exec.LookPath(helper)
		if err != nil {
			return "", fmt.Errorf("%w: helper %q: %w", ErrTierUnavailable, helper, err)
		}
		return path, nil
	}
	for _, name := range emulatorCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no pty helper on PATH", ErrTierUnavailable)
}

// emulatorArgs builds the helper command line. util-linux script runs the
// command through $SHELL -c, BSD script takes the argv directly.
func emulatorArgs(shell string) []string {
	if runtime.GOOS == "linux" {
		return []string{"-q", "-f", "-e", "-c", shellQuote(shell) + " -i", "/dev/null"}
	}
	return []string{"-q", "/dev/null", shell, "-i"}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func startPiped(cmd *exec.Cmd, kind Kind, label string) (Backend, error) {
	proc.SetProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}

	out, w, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to open output pipe: %w", err)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		stdin.Close()
		out.Close()
		w.Close()
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	// the child holds its own copy of the write end
	w.Close()

	return &pipedBackend{
		process: process{
			kind:    kind,
			label:   label,
			cmd:     cmd,
			closers: []io.Closer{stdin, out},
		},
		stdin:  stdin,
		output: out,
	}, nil
}

func (b *pipedBackend) Output() io.Reader { return b.output }

func (b *pipedBackend) Write(p []byte) (int, error) {
	return b.stdin.Write(p)
}

// Resize has no live effect without a terminal device.
func (b *pipedBackend) Resize(cols, rows int) error { return nil }
