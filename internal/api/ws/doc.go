// Package ws provides the WebSocket surface for terminal sessions.
//
// Every connection is a sink: sessions created over it stream their output
// to it and are killed when it closes. Payload bytes travel base64 encoded.
//
// Message Types (Client → Server):
//   - create: Start a session (id, cwd, cols, rows)
//   - write: Send input to a session (data or data_base64)
//   - resize: Change a session's dimensions
//   - kill: Terminate a session
//   - run: Run one command to completion (command, cwd, timeout_ms)
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - connected: Sent once after the upgrade
//   - created: Session started, carries its snapshot
//   - data: Session output
//   - exit: Session ended, carries the exit code
//   - result: Outcome of a run
//   - ok: Acknowledges write, resize and kill
//   - error: Request failed
//   - pong: Reply to ping
//
// Requests may carry a request_id that is echoed on the reply.
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
