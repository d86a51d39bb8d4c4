//go:build unix

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// SetProcessGroup makes cmd the leader of a new process group once started.
// Commands that already request a new session (pty children) are left alone.
func SetProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	if !cmd.SysProcAttr.Setsid {
		cmd.SysProcAttr.Setpgid = true
	}
}

// SignalGroup delivers sig to the whole process group led by p, falling back
// to p alone when the group is already gone.
func SignalGroup(p *os.Process, sig syscall.Signal) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	return p.Signal(sig)
}
