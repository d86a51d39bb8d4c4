package terminal

// Sink receives the event stream of the sessions it was attached to.
//
// OnData is called from the session's reader goroutine in arrival order and
// must not retain data beyond the call unless it owns the slice (every chunk
// is a fresh copy). OnExit is called exactly once per session and nothing is
// delivered for that id afterwards.
type Sink interface {
	OnData(id string, data []byte)
	OnExit(id string, code int)
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are ignored.
type SinkFuncs struct {
	Data func(id string, data []byte)
	Exit func(id string, code int)
}

func (f SinkFuncs) OnData(id string, data []byte) {
	if f.Data != nil {
		f.Data(id, data)
	}
}

func (f SinkFuncs) OnExit(id string, code int) {
	if f.Exit != nil {
		f.Exit(id, code)
	}
}

// Discard drops every event.
var Discard Sink = SinkFuncs{}
