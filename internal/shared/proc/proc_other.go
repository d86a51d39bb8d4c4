//go:build !unix

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// SetProcessGroup is a no-op where process groups are unavailable.
func SetProcessGroup(cmd *exec.Cmd) {}

// SignalGroup signals p directly; only SIGKILL is reliably supported here.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if sig == syscall.SIGKILL {
		return p.Kill()
	}
	return p.Signal(sig)
}
