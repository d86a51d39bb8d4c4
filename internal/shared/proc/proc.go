package proc

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// AbnormalExitCode is reported for processes that terminated without an
// exit status of their own (signals, failed waits).
const AbnormalExitCode = -1

// TerminateSignals are sent, in order, when a child is asked to stop
// gracefully. Interactive shells ignore SIGTERM but exit on SIGHUP.
var TerminateSignals = []syscall.Signal{syscall.SIGHUP, syscall.SIGTERM}

// ExitCode maps the error returned by exec.Cmd.Wait to an exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return AbnormalExitCode
}

// Terminate sends every TerminateSignals entry to the process group of p.
func Terminate(p *os.Process) error {
	var errs []error
	for _, sig := range TerminateSignals {
		if err := SignalGroup(p, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// KillGroup force-kills the process group led by p.
func KillGroup(p *os.Process) error {
	return SignalGroup(p, syscall.SIGKILL)
}
