package terminal

// Observer receives lifecycle counters. The monitoring package implements it;
// the manager falls back to a no-op observer.
type Observer interface {
	SessionStarted(backend string)
	SessionExited(backend, reason string)
	SpawnFailed(backend string)
	BytesTransferred(direction string, n int)
}

// Exit reasons reported to the Observer.
const (
	ReasonExited   = "exited"
	ReasonKilled   = "killed"
	ReasonShutdown = "shutdown"
)

type nopObserver struct{}

func (nopObserver) SessionStarted(string) {}
func (nopObserver) SessionExited(string, string) {}
func (nopObserver) SpawnFailed(string) {}
func (nopObserver) BytesTransferred(string, int) {}
