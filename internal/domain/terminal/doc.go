// Package terminal manages interactive shell sessions for UI surfaces that
// cannot own OS processes themselves.
//
// Each session is one shell process started through the strongest backend the
// host supports, probed in order on every create:
//   - native-pty: a real pseudo-terminal (job control, curses, resize)
//   - emulated-pty: a helper utility such as script(1) that owns the terminal
//   - plain-pipe: stdin/stdout pipes with the shell in interactive mode
//
// Architecture:
//   - Manager is the lifecycle owner: it is the only writer of session status
//     and the only component that removes sessions from the Registry
//   - every session runs a reader, a serialized writer and an exit watcher
//   - output and exit notifications go to the Sink supplied at creation;
//     the exit notification is always the last event for an id
//
// Example Usage:
//
//	mgr := terminal.NewManager(terminal.DefaultConfig(), terminal.NewProber(terminal.DefaultTiers("")))
//	info, err := mgr.Create(ctx, terminal.CreateRequest{ID: "t1", Sink: sink})
//	// → info.Kind reports which backend served the request
//
//	mgr.Write("t1", []byte("ls -la\n"))
//	mgr.Resize("t1", 120, 40)
//	mgr.Kill("t1")
//
//	// on host shutdown
//	mgr.Shutdown(ctx)
package terminal
