package terminal

import (
	"errors"

	"github.com/GriffinCanCode/termhost/internal/shared/proc"
)

var (
	ErrDuplicateSession = errors.New("session already exists")
	ErrUnknownSession   = errors.New("session not found")
	ErrSpawnFailure     = errors.New("no shell backend could be started")
	ErrWriteFailure     = errors.New("session rejected input")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrManagerClosed    = errors.New("terminal manager is shut down")

	// ErrTierUnavailable is returned by a tier that cannot run on this host
	// at all, as opposed to one that tried and failed.
	ErrTierUnavailable = errors.New("backend tier unavailable")
)

// AbnormalExitCode is the exit code reported when a session ends without an
// exit status of its own, including every forced kill.
const AbnormalExitCode = proc.AbnormalExitCode
